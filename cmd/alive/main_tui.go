//go:build tui

package main

import (
	"github.com/spf13/cobra"

	"github.com/unowned-ai/alive/pkg/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Show terminal UI",
	Long:  `Display an interactive terminal UI for recording moments and browsing the planet.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, backing, err := openStore()
		if err != nil {
			return err
		}
		defer backing.Close()

		return tui.ShowTUI(backing.DB(), store)
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unowned-ai/alive/pkg/moments"
)

var planetCmd = &cobra.Command{
	Use:   "planet",
	Short: "Browse the public feed",
	Long:  `The planet is the public feed: your public moments mixed with moments from others.`,
}

var listPlanetCmd = &cobra.Command{
	Use:   "list",
	Short: "List the public feed, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, backing, err := openStore()
		if err != nil {
			return err
		}
		defer backing.Close()

		feed := store.ListPublicMoments(cmd.Context())
		if jsonOutput {
			if feed == nil {
				feed = []moments.Moment{}
			}
			return printJSON(cmd.OutOrStdout(), feed)
		}
		printMoments(cmd.OutOrStdout(), feed, store.Location())
		return nil
	},
}

var sunshineCmd = &cobra.Command{
	Use:   "sunshine [moment-id]",
	Short: "Send one sunshine to a moment on the public feed",
	Long: `Send one sunshine to a moment on the public feed. Sunshine on your own public
moments is saved; sunshine on moments from others only lasts for this session.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, backing, err := openStore()
		if err != nil {
			return err
		}
		defer backing.Close()

		feed, err := store.SendSunshine(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to send sunshine: %w", err)
		}
		for _, m := range feed {
			if m.ID == args[0] {
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), m)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Sunshine sent. %s now has %d.\n", m.ID, m.SunshineCount)
				return nil
			}
		}
		return fmt.Errorf("moment not on the public feed: %s", args[0])
	},
}

func initPlanetCmd() {
	planetCmd.AddCommand(listPlanetCmd, sunshineCmd)
}

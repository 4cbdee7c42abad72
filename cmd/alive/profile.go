package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unowned-ai/alive/pkg/moments"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or change your profile",
}

var showProfileCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, backing, err := openStore()
		if err != nil {
			return err
		}
		defer backing.Close()

		profile, ok := store.Profile(cmd.Context())
		if jsonOutput {
			if !ok {
				return printJSON(cmd.OutOrStdout(), nil)
			}
			return printJSON(cmd.OutOrStdout(), profile)
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Nickname: %s\nAvatar:   %s\n", profile.NickName, profile.AvatarURL)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a profile",
	Long:  `Store a profile. Without flags the default profile is used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		profile := moments.DefaultProfile()
		if nick, _ := cmd.Flags().GetString("nick"); nick != "" {
			profile.NickName = nick
		}
		if avatar, _ := cmd.Flags().GetString("avatar"); avatar != "" {
			profile.AvatarURL = avatar
		}

		store, backing, err := openStore()
		if err != nil {
			return err
		}
		defer backing.Close()

		if err := store.SaveProfile(cmd.Context(), profile); err != nil {
			return fmt.Errorf("failed to save profile: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s.\n", profile.NickName)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored profile (moments are kept)",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, backing, err := openStore()
		if err != nil {
			return err
		}
		defer backing.Close()

		if err := store.ClearProfile(cmd.Context()); err != nil {
			return fmt.Errorf("failed to clear profile: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

func initProfileCmd() {
	loginCmd.Flags().String("nick", "", "Nickname")
	loginCmd.Flags().String("avatar", "", "Avatar image URL")

	profileCmd.AddCommand(showProfileCmd, loginCmd, logoutCmd)
}

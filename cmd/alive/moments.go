package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/unowned-ai/alive/pkg/moments"
)

var jsonOutput bool

var momentsCmd = &cobra.Command{
	Use:   "moments",
	Short: "Record and manage your moments",
	Long:  `Create, list, update, and delete your own moments.`,
}

var createMomentCmd = &cobra.Command{
	Use:   "create",
	Short: "Record a new moment",
	Long: `Record a new moment for today. A moment needs text, at least one image, or both.
Recording the first moment of a day extends or restarts your streak.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		content, _ := cmd.Flags().GetString("content")
		tagsStr, _ := cmd.Flags().GetString("tags")
		isPublic, _ := cmd.Flags().GetBool("public")
		imagePaths, _ := cmd.Flags().GetStringSlice("image")

		images := make([]string, 0, len(imagePaths))
		for _, p := range imagePaths {
			url, err := imageDataURL(p)
			if err != nil {
				return err
			}
			images = append(images, url)
		}
		if err := moments.Validate(content, images); err != nil {
			return err
		}

		store, backing, err := openStore()
		if err != nil {
			return err
		}
		defer backing.Close()

		all, err := store.SaveMoment(cmd.Context(), content, parseTags(tagsStr), isPublic, images)
		if errors.Is(err, moments.ErrStreakNotUpdated) {
			cmd.PrintErrf("Warning: %v\n", err)
		} else if err != nil {
			return fmt.Errorf("failed to save moment: %w", err)
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), all[0])
		}
		printMoment(cmd.OutOrStdout(), all[0], store.Location())
		st := store.Stats(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "Streak: %d day(s) (%s)\n", st.StreakDays, moments.GrowthStageFor(st.StreakDays))
		return nil
	},
}

var listMomentsCmd = &cobra.Command{
	Use:   "list",
	Short: "List your moments, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, backing, err := openStore()
		if err != nil {
			return err
		}
		defer backing.Close()

		ms := store.ListMoments(cmd.Context())
		if jsonOutput {
			if ms == nil {
				ms = []moments.Moment{}
			}
			return printJSON(cmd.OutOrStdout(), ms)
		}
		printMoments(cmd.OutOrStdout(), ms, store.Location())
		return nil
	},
}

var updateMomentCmd = &cobra.Command{
	Use:   "update [moment-id]",
	Short: "Change the visibility or sunshine count of a moment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		makePublic, _ := cmd.Flags().GetBool("public")
		makePrivate, _ := cmd.Flags().GetBool("private")

		var patch moments.Patch
		switch {
		case makePublic && makePrivate:
			return errors.New("--public and --private are mutually exclusive")
		case makePublic:
			v := true
			patch.IsPublic = &v
		case makePrivate:
			v := false
			patch.IsPublic = &v
		}
		if cmd.Flags().Changed("sunshine") {
			n, _ := cmd.Flags().GetInt("sunshine")
			if n < 0 {
				return errors.New("--sunshine cannot be negative")
			}
			patch.SunshineCount = &n
		}
		if patch.IsPublic == nil && patch.SunshineCount == nil {
			return errors.New("nothing to update (use --public, --private or --sunshine)")
		}

		store, backing, err := openStore()
		if err != nil {
			return err
		}
		defer backing.Close()

		all, err := store.UpdateMoment(cmd.Context(), id, patch)
		if err != nil {
			return fmt.Errorf("failed to update moment: %w", err)
		}
		for _, m := range all {
			if m.ID == id {
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), m)
				}
				printMoment(cmd.OutOrStdout(), m, store.Location())
				return nil
			}
		}
		return fmt.Errorf("moment not found: %s", id)
	},
}

var deleteMomentCmd = &cobra.Command{
	Use:   "delete [moment-id]",
	Short: "Delete a moment (your streak is kept)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, backing, err := openStore()
		if err != nil {
			return err
		}
		defer backing.Close()

		before := len(store.ListMoments(cmd.Context()))
		all, err := store.DeleteMoment(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to delete moment: %w", err)
		}
		if len(all) == before {
			return fmt.Errorf("moment not found: %s", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Moment %s deleted.\n", args[0])
		return nil
	},
}

var searchMomentsCmd = &cobra.Command{
	Use:   "search",
	Short: "Find moments by tags",
	Long:  `Find your moments carrying any of the given tags, ranked by the number of matching tags.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tagsStr, _ := cmd.Flags().GetString("tags")
		tags := parseTags(tagsStr)
		if len(tags) == 0 {
			return errors.New("at least one tag is required (--tags)")
		}

		store, backing, err := openStore()
		if err != nil {
			return err
		}
		defer backing.Close()

		results := store.SearchByTags(cmd.Context(), tags)
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), results)
		}
		if len(results) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No moments found.")
			return nil
		}
		for _, r := range results {
			fmt.Fprintf(cmd.OutOrStdout(), "Matched tags: %d\n", r.MatchCount)
			printMoment(cmd.OutOrStdout(), r.Moment, store.Location())
		}
		return nil
	},
}

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Suggest something to write about",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), moments.RandomInspiration())
		fmt.Fprintf(cmd.OutOrStdout(), "Tags: %s\n", strings.Join(moments.PresetTags, " "))
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Erase all moments, the streak and the profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return errors.New("refusing to erase everything without --yes")
		}

		store, backing, err := openStore()
		if err != nil {
			return err
		}
		defer backing.Close()

		if err := store.ClearAll(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "All data cleared.")
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show your streak and totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, backing, err := openStore()
		if err != nil {
			return err
		}
		defer backing.Close()

		st := store.Stats(cmd.Context())
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), st)
		}

		w := cmd.OutOrStdout()
		last := st.LastRecordDate
		if last == "" {
			last = "never"
		}
		fmt.Fprintf(w, "Streak:         %d day(s)\n", st.StreakDays)
		fmt.Fprintf(w, "Growth stage:   %s\n", moments.GrowthStageFor(st.StreakDays))
		fmt.Fprintf(w, "Moments:        %d\n", st.TotalMoments)
		fmt.Fprintf(w, "Sunshine:       %d\n", st.TotalSunshine)
		fmt.Fprintf(w, "Last recorded:  %s\n", last)
		if received := store.ReceivedSunshine(cmd.Context()); len(received) > 0 {
			fmt.Fprintf(w, "Moments that received sunshine: %d\n", len(received))
		}
		return nil
	},
}

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Show your moments grouped by day",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, backing, err := openStore()
		if err != nil {
			return err
		}
		defer backing.Close()

		groups := store.Timeline(cmd.Context())
		if jsonOutput {
			if groups == nil {
				groups = []moments.DayGroup{}
			}
			return printJSON(cmd.OutOrStdout(), groups)
		}
		if len(groups) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No moments found.")
			return nil
		}

		w := cmd.OutOrStdout()
		loc := store.Location()
		for _, g := range groups {
			fmt.Fprintf(w, "%s\n", g.Day)
			for _, m := range g.Moments {
				line := strings.SplitN(m.Content, "\n", 2)[0]
				if line == "" {
					line = fmt.Sprintf("[%d image(s)]", len(m.Images))
				}
				fmt.Fprintf(w, "  %s  %s\n", time.UnixMilli(m.CreatedAt).In(loc).Format("15:04"), line)
			}
		}
		return nil
	},
}

func initMomentsCmd() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")

	createMomentCmd.Flags().String("content", "", "What happened")
	createMomentCmd.Flags().String("tags", "", "Comma-separated list of tags, e.g. '#small-joys,#loved'")
	createMomentCmd.Flags().Bool("public", false, "Share the moment on the public feed")
	createMomentCmd.Flags().StringSlice("image", nil, "Image file to attach (repeatable, at most 3)")

	updateMomentCmd.Flags().Bool("public", false, "Make the moment public")
	updateMomentCmd.Flags().Bool("private", false, "Make the moment private")
	updateMomentCmd.Flags().Int("sunshine", 0, "Set the sunshine count")

	searchMomentsCmd.Flags().String("tags", "", "Comma-separated list of tags to search for")

	clearCmd.Flags().Bool("yes", false, "Confirm erasing all data")

	momentsCmd.AddCommand(createMomentCmd, listMomentsCmd, updateMomentCmd, deleteMomentCmd, searchMomentsCmd, promptCmd, clearCmd)
}

// Command chitasctl inspects progress exports and daily content from the shell.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/TeacherRG/chitas-for-kids-sub000/internal/achievement"
	"github.com/TeacherRG/chitas-for-kids-sub000/internal/content"
	"github.com/TeacherRG/chitas-for-kids-sub000/internal/progress"
	"github.com/TeacherRG/chitas-for-kids-sub000/internal/streak"
)

var version = "dev"

func main() {
	if err := rootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd(out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "chitasctl",
		Short:         "Inspect Chitas progress exports and daily content",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)

	cmd.AddCommand(statsCmd(), levelsCmd(), contentCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chitasctl version %s\n", version)
		},
	})
	return cmd
}

func statsCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "stats <record.json>",
		Short: "Print streak, level and badges of an exported progress record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			if date != "" {
				parsed, err := streak.ParseDate(date)
				if err != nil {
					return fmt.Errorf("invalid --date %q: %w", date, err)
				}
				now = parsed
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var rec progress.Record
			if err := json.Unmarshal(data, &rec); err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}
			if rec.Completions == nil {
				rec.Completions = streak.CompletionMap{}
			}

			summary := progress.Summarize(rec, now)
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "date:    %s\n", summary.Date)
			fmt.Fprintf(w, "streak:  %d (max %d)\n", summary.Streak.Current, summary.Streak.Max)
			fmt.Fprintf(w, "level:   %s %s (%d%% to %d)\n", summary.Level.Level.Icon, summary.Level.Level.Name, summary.Level.Percent, summary.Level.NextThreshold)
			fmt.Fprintf(w, "score:   %d, stars: %d, days: %d\n", summary.Score, summary.Stars, summary.TotalDays)
			for _, b := range summary.Badges {
				if b.Unlocked {
					fmt.Fprintf(w, "badge:   %s %s\n", b.Icon, b.Label)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "evaluate as of this day (YYYY-MM-DD), default today")
	return cmd
}

func levelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "levels [streak]",
		Short: "List level tiers, or show the level reached by a streak",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 0 {
					return fmt.Errorf("streak must be a non-negative integer, got %q", args[0])
				}
				p := achievement.Progress(n)
				fmt.Fprintf(w, "%s %s %d%%\n", p.Level.Icon, p.Level.Name, p.Percent)
				return nil
			}

			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "LEVEL\tNAME\tFROM")
			for _, l := range achievement.Levels() {
				fmt.Fprintf(tw, "%d\t%s %s\t%d\n", l.Index, l.Icon, l.Name, l.MinStreak)
			}
			return tw.Flush()
		},
	}
}

func contentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Work with daily content files",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate <dir>",
		Short: "Check every day file in dir and report problems",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateContent(cmd.Context(), content.NewDirLoader(args[0]), cmd.OutOrStdout())
		},
	})
	return cmd
}

func validateContent(ctx context.Context, loader content.Loader, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	dates, err := loader.Dates(ctx)
	if err != nil {
		return err
	}

	bad := 0
	for _, date := range dates {
		day, err := loader.Load(ctx, date)
		if err != nil {
			bad++
			fmt.Fprintf(w, "%s: %v\n", date, err)
			continue
		}
		problems := content.Validate(day)
		if len(problems) > 0 {
			bad++
		}
		for _, p := range problems {
			fmt.Fprintf(w, "%s: %s\n", date, p)
		}
	}

	fmt.Fprintf(w, "%d days checked, %d with problems\n", len(dates), bad)
	if bad > 0 {
		return fmt.Errorf("%d days failed validation", bad)
	}
	return nil
}

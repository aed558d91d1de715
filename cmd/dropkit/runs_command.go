package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"dropkit/internal/journal"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded export runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJournal(ctx, func(js *journal.Store) error {
				runs, err := js.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No export runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						run.ID,
						run.StartedAt.Local().Format(time.DateTime),
						string(run.Status),
						strconv.Itoa(run.Records),
						strconv.Itoa(run.Sites),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Started", "Status", "Records", "Sites"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
				))
				return nil
			})
		},
	}
	runsCmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")

	runsCmd.AddCommand(newRunsShowCommand(ctx))
	return runsCmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one export run in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJournal(ctx, func(js *journal.Store) error {
				run, err := js.Get(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("load run %s: %w", args[0], err)
				}
				rows := [][]string{
					{"ID", run.ID},
					{"Status", string(run.Status)},
					{"Started", run.StartedAt.Local().Format(time.DateTime)},
					{"Finished", formatFinished(run.FinishedAt)},
					{"Records", strconv.Itoa(run.Records)},
					{"Sites", strconv.Itoa(run.Sites)},
					{"Invalid records", strconv.Itoa(run.InvalidRecords)},
					{"Skipped records", strconv.Itoa(run.SkippedRecords)},
					{"Skipped features", strconv.Itoa(run.SkippedFeatures)},
					{"Tabular output", run.TabularPath},
					{"Shapefile output", run.ShapefilePath},
					{"Note", run.Note},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
				return nil
			})
		},
	}
}

func withJournal(ctx *commandContext, fn func(*journal.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	js, err := journal.Open(cfg.JournalPath())
	if err != nil {
		return fmt.Errorf("open export journal: %w", err)
	}
	defer js.Close()
	return fn(js)
}

func formatFinished(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

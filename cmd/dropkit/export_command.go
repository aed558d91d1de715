package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"dropkit/internal/journal"
	"dropkit/internal/pipeline"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var noShapefile bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Aggregate records by site and write tabular and shapefile outputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			if noShapefile {
				cfg.Export.Shapefile = false
			}

			js, err := journal.Open(cfg.JournalPath())
			if err != nil {
				return fmt.Errorf("open export journal: %w", err)
			}
			defer js.Close()

			runner, err := pipeline.NewRunner(cfg, ctx.ensureLogger(), js)
			if err != nil {
				return err
			}
			result, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			rows := [][]string{
				{"Run", result.RunID},
				{"Status", string(result.Status)},
				{"Records", strconv.Itoa(result.Records)},
				{"Sites", strconv.Itoa(result.Sites)},
				{"Invalid records", strconv.Itoa(result.InvalidRecords)},
				{"Skipped records", strconv.Itoa(result.SkippedRecords)},
				{"Tabular output", result.TabularPath},
			}
			if result.ShapefilePath != "" {
				rows = append(rows, []string{"Shapefile output", result.ShapefilePath})
				rows = append(rows, []string{"Skipped features", strconv.Itoa(result.SkippedFeatures)})
			}
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))

			if result.Note != "" {
				fmt.Fprintf(out, "Note: %s\n", result.Note)
			}
			if result.InvalidRecords > 0 && cfg.Validation.GateExports {
				fmt.Fprintf(out, "%d invalid record(s) were excluded; run `dropkit validate` for details\n", result.InvalidRecords)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noShapefile, "no-shapefile", false, "Skip the shapefile export step")
	return cmd
}

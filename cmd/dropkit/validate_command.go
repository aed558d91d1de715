package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dropkit/internal/pipeline"
)

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "validate [drop-id]",
		Short: "Validate observation records against the rule document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runner, err := pipeline.NewRunner(cfg, ctx.ensureLogger(), nil)
			if err != nil {
				return err
			}

			dropID := ""
			if len(args) == 1 && !all {
				dropID = args[0]
			}
			report, err := runner.Validate(cmd.Context(), dropID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, issue := range report.RuleIssues {
				fmt.Fprintf(out, "Warning: %s\n", issue)
			}
			if report.Skipped > 0 {
				fmt.Fprintf(out, "Skipped %d nearly empty record(s)\n", report.Skipped)
			}

			if len(report.Issues) == 0 {
				fmt.Fprintf(out, "All %d record(s) passed validation\n", report.Checked)
				return nil
			}

			rows := make([][]string, 0, len(report.Issues))
			for _, issue := range report.Issues {
				rows = append(rows, []string{
					strconv.Itoa(issue.Row),
					issue.SiteID,
					issue.DropID,
					strings.Join(issue.Violations, "; "),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Row", "Site", "Drop", "Violations"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			))
			return fmt.Errorf("%d of %d record(s) failed validation", len(report.Issues), report.Checked)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Validate every record even when a drop id is given")
	return cmd
}

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"dropkit/internal/rules"
)

func newRulesCommand(ctx *commandContext) *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Rule document utilities",
	}
	rulesCmd.AddCommand(newRulesLintCommand(ctx))
	return rulesCmd
}

func newRulesLintCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: "Check the rule document for malformed rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			set, issues, err := rules.LoadFile(cfg.Paths.Rules)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(issues) > 0 {
				rows := make([][]string, 0, len(issues))
				for _, issue := range issues {
					rows = append(rows, []string{
						strconv.Itoa(issue.Index),
						issue.Type,
						issue.Reason,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Index", "Type", "Problem"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft},
				))
				return fmt.Errorf("%d malformed rule(s) in %s", len(issues), cfg.Paths.Rules)
			}

			fmt.Fprintf(out, "%d rule(s) loaded cleanly\n", len(set.Rules))
			return nil
		},
	}
}

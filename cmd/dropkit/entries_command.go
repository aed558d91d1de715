package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dropkit/internal/derive"
	"dropkit/internal/records"
	"dropkit/internal/rules"
	"dropkit/internal/schema"
)

func newEntriesCommand(ctx *commandContext) *cobra.Command {
	entriesCmd := &cobra.Command{
		Use:   "entries",
		Short: "Inspect and append observation entries",
	}
	entriesCmd.AddCommand(newEntriesListCommand(ctx))
	entriesCmd.AddCommand(newEntriesAddCommand(ctx))
	return entriesCmd
}

func newEntriesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tmpl, recs, err := loadEntryStore(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(recs) == 0 {
				fmt.Fprintln(out, "No entries stored")
				return nil
			}

			headers := append([]string{"Site", "Drop"}, tmpl.DataFields()...)
			rows := make([][]string, 0, len(recs))
			for _, rec := range recs {
				row := []string{siteOf(rec), rec[schema.DropIDField]}
				for _, field := range tmpl.DataFields() {
					row = append(row, rec[field])
				}
				rows = append(rows, row)
			}
			fmt.Fprintln(out, renderTable(headers, rows, nil))
			return nil
		},
	}
}

func newEntriesAddCommand(ctx *commandContext) *cobra.Command {
	var videoPath string
	var basePath string
	var values []string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append one entry to the store",
		Long: "Append one observation entry. Field values come from --set flags; " +
			"when --base points at a base-data CSV, the row whose VIDEO_FILENAME " +
			"matches the video seeds the entry first. A missing DROP_ID is numbered " +
			"automatically per site.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, tmpl, existing, err := loadEntryStore(ctx)
			if err != nil {
				return err
			}

			rec := schema.Record{}
			if basePath != "" {
				baseStore := records.NewStore(basePath, tmpl)
				baseRows, err := baseStore.Load()
				if err != nil {
					return fmt.Errorf("load base data: %w", err)
				}
				if seed := records.MatchBaseRow(baseRows, videoPath); seed != nil {
					for field, value := range seed {
						rec[field] = value
					}
				}
			}
			for _, pair := range values {
				field, value, ok := strings.Cut(pair, "=")
				if !ok {
					return fmt.Errorf("--set %q is not FIELD=VALUE", pair)
				}
				field = strings.TrimSpace(field)
				if !tmpl.Has(field) {
					return fmt.Errorf("field %q is not in the template", field)
				}
				rec[field] = value
			}

			if strings.TrimSpace(rec[schema.DropIDField]) == "" {
				siteID := siteOf(rec)
				rec[schema.DropIDField] = records.FormatDropID(records.NextDropNumber(existing, siteID))
			}
			records.PrepareForSave(rec, videoPath)

			set, _, err := rules.LoadFile(cfg.Paths.Rules)
			if err != nil {
				return fmt.Errorf("load rules: %w", err)
			}
			derive.NormalizeConditionalSumGroups(rec, set)
			derive.ApplyAutoFillFixpoint(rec, set)
			for _, derr := range derive.ApplyAllCalculated(rec, set) {
				fmt.Fprintf(cmd.OutOrStdout(), "Warning: %v\n", derr)
			}

			if err := store.Append(rec); err != nil {
				return fmt.Errorf("append entry: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored entry %s for site %s\n",
				rec[schema.DropIDField], siteOf(rec))
			return nil
		},
	}

	cmd.Flags().StringVar(&videoPath, "video", "", "Video file the entry annotates")
	cmd.Flags().StringVar(&basePath, "base", "", "Base-data CSV used to seed the entry")
	cmd.Flags().StringArrayVar(&values, "set", nil, "Field value as FIELD=VALUE (repeatable)")
	return cmd
}

func siteOf(rec schema.Record) string {
	id, _ := schema.SiteID(rec)
	return id
}

func loadEntryStore(ctx *commandContext) (*records.Store, *schema.Template, []schema.Record, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	if strings.TrimSpace(cfg.Paths.Template) == "" {
		return nil, nil, nil, fmt.Errorf("paths.template is not set")
	}
	tmpl, err := schema.LoadTemplateCSV(cfg.Paths.Template)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load template: %w", err)
	}
	store := records.NewStore(cfg.EntriesPath(), tmpl)
	recs, err := store.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load entries: %w", err)
	}
	return store, tmpl, recs, nil
}

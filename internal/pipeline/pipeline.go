package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"dropkit/internal/aggregate"
	"dropkit/internal/config"
	"dropkit/internal/derive"
	"dropkit/internal/export"
	"dropkit/internal/journal"
	"dropkit/internal/logging"
	"dropkit/internal/records"
	"dropkit/internal/rules"
	"dropkit/internal/schema"
)

// RecordIssue describes the rule violations found on one record.
type RecordIssue struct {
	// Row is the 1-based position of the record in the entry store.
	Row        int
	SiteID     string
	DropID     string
	Violations []string
}

// ValidationReport summarizes a validation pass over the entry store.
type ValidationReport struct {
	Checked    int
	Skipped    int
	RuleIssues []rules.Issue
	Issues     []RecordIssue
}

// Result captures the outcome of an export run.
type Result struct {
	RunID           string
	Status          journal.Status
	Records         int
	Sites           int
	SkippedRecords  int
	InvalidRecords  int
	SkippedFeatures int
	TabularPath     string
	ShapefilePath   string
	// Note explains a partial outcome, such as a failed shapefile step.
	Note   string
	Issues []RecordIssue
}

// Runner executes validation and export passes against the configured
// template, rule document, and entry store.
type Runner struct {
	cfg     *config.Config
	logger  *slog.Logger
	journal *journal.Store
}

// NewRunner constructs a runner. The journal store may be nil, in which case
// runs are not recorded.
func NewRunner(cfg *config.Config, logger *slog.Logger, js *journal.Store) (*Runner, error) {
	if cfg == nil {
		return nil, Wrap(ErrConfiguration, "pipeline", "new", "config is required", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{cfg: cfg, logger: logger, journal: js}, nil
}

type inputs struct {
	template   *schema.Template
	rules      *rules.Set
	ruleIssues []rules.Issue
	records    []schema.Record
}

func (r *Runner) loadInputs() (*inputs, error) {
	templatePath := strings.TrimSpace(r.cfg.Paths.Template)
	if templatePath == "" {
		return nil, Wrap(ErrConfiguration, "pipeline", "load", "paths.template is not set", nil)
	}
	tmpl, err := schema.LoadTemplateCSV(templatePath)
	if err != nil {
		return nil, Wrap(ErrPrerequisite, "pipeline", "load template", templatePath, err)
	}

	set, issues, err := rules.LoadFile(r.cfg.Paths.Rules)
	if err != nil {
		return nil, Wrap(ErrPrerequisite, "pipeline", "load rules", r.cfg.Paths.Rules, err)
	}
	for _, issue := range issues {
		r.logger.Warn("skipping malformed rule",
			logging.Component("rules"),
			logging.Int("index", issue.Index),
			logging.String("type", issue.Type),
			logging.String("reason", issue.Reason))
	}

	store := records.NewStore(r.cfg.EntriesPath(), tmpl)
	recs, err := store.Load()
	if err != nil {
		return nil, Wrap(ErrIO, "pipeline", "load entries", r.cfg.EntriesPath(), err)
	}

	return &inputs{template: tmpl, rules: set, ruleIssues: issues, records: recs}, nil
}

// prepare normalizes one record in place and returns its violations. A
// nearly-empty record is reported with skipped=true and zero violations when
// the skip policy is enabled.
func (r *Runner) prepare(rec schema.Record, in *inputs) (violations []string, skipped bool) {
	derive.NormalizeConditionalSumGroups(rec, in.rules)
	derive.ApplyAutoFillFixpoint(rec, in.rules)
	for _, err := range derive.ApplyAllCalculated(rec, in.rules) {
		violations = append(violations, err.Error())
	}

	policy := r.cfg.Validation
	if policy.SkipNearlyEmpty && in.template.NearlyEmpty(rec, policy.NearlyEmptyThreshold) {
		return nil, true
	}
	violations = append(violations, rules.Validate(rec, in.rules)...)
	return violations, false
}

// Validate runs the rule engine over the entry store without exporting.
// A non-empty dropID restricts the pass to the matching record.
func (r *Runner) Validate(ctx context.Context, dropID string) (*ValidationReport, error) {
	in, err := r.loadInputs()
	if err != nil {
		return nil, err
	}

	matched := false
	report := &ValidationReport{RuleIssues: in.ruleIssues}
	for i, stored := range in.records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if dropID != "" && stored[schema.DropIDField] != dropID {
			continue
		}
		matched = true
		rec := stored.Clone()
		violations, skipped := r.prepare(rec, in)
		if skipped {
			report.Skipped++
			continue
		}
		report.Checked++
		if len(violations) > 0 {
			report.Issues = append(report.Issues, RecordIssue{
				Row:        i + 1,
				SiteID:     siteOf(rec),
				DropID:     rec[schema.DropIDField],
				Violations: violations,
			})
		}
	}
	if dropID != "" && !matched {
		return nil, Wrap(ErrNotFound, "pipeline", "validate", "no record with drop id "+dropID, nil)
	}
	return report, nil
}

// Run executes a full export: validate, aggregate by site, write the tabular
// output, and write the shapefile when enabled. A shapefile failure degrades
// the run to partial; the tabular output stands on its own.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	in, err := r.loadInputs()
	if err != nil {
		return nil, err
	}
	if err := r.cfg.EnsureDirectories(); err != nil {
		return nil, Wrap(ErrIO, "pipeline", "ensure directories", "", err)
	}

	lock := flock.New(filepath.Join(r.cfg.Paths.ExportDir, ".export.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, Wrap(ErrIO, "pipeline", "lock export directory", "", err)
	}
	if !locked {
		return nil, Wrap(ErrPrerequisite, "pipeline", "lock export directory", "another export is already running", nil)
	}
	defer func() { _ = lock.Unlock() }()

	result := &Result{Status: journal.StatusDone}
	if r.journal != nil {
		id, err := r.journal.Begin(ctx)
		if err != nil {
			return nil, Wrap(ErrIO, "pipeline", "journal begin", "", err)
		}
		result.RunID = id
	}

	out, runErr := r.export(ctx, in, result)
	if r.journal != nil {
		status := result.Status
		if runErr != nil {
			status = journal.StatusFailed
		}
		finishErr := r.journal.Finish(context.WithoutCancel(ctx), journal.Run{
			ID:              result.RunID,
			Status:          status,
			Records:         result.Records,
			Sites:           result.Sites,
			SkippedRecords:  result.SkippedRecords,
			SkippedFeatures: result.SkippedFeatures,
			InvalidRecords:  result.InvalidRecords,
			TabularPath:     result.TabularPath,
			ShapefilePath:   result.ShapefilePath,
			Note:            result.Note,
		})
		if finishErr != nil {
			r.logger.Warn("failed to record export run",
				logging.Component("journal"), logging.Error(finishErr))
		}
	}
	if runErr != nil {
		return nil, runErr
	}
	return out, nil
}

func (r *Runner) export(ctx context.Context, in *inputs, result *Result) (*Result, error) {
	kept := make([]schema.Record, 0, len(in.records))
	for i, stored := range in.records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec := stored.Clone()
		violations, skipped := r.prepare(rec, in)
		if skipped {
			result.SkippedRecords++
			kept = append(kept, rec)
			continue
		}
		if len(violations) > 0 {
			result.Issues = append(result.Issues, RecordIssue{
				Row:        i + 1,
				SiteID:     siteOf(rec),
				DropID:     rec[schema.DropIDField],
				Violations: violations,
			})
			result.InvalidRecords++
			if r.cfg.Validation.GateExports {
				continue
			}
		}
		kept = append(kept, rec)
	}
	result.Records = len(kept)

	groups, noSite := aggregate.GroupBySite(kept)
	result.SkippedRecords += noSite
	result.Sites = len(groups)
	if noSite > 0 {
		r.logger.Warn("records without a site identifier were skipped",
			logging.Component("aggregate"), logging.Int("count", noSite))
	}

	plan := aggregate.NewPlan(in.template, kept)
	for field, name := range r.cfg.Export.Methods {
		method, ok := aggregate.ParseMethod(name)
		if !ok {
			return nil, Wrap(ErrConfiguration, "pipeline", "method override",
				fmt.Sprintf("%s: unknown method %q", field, name), nil)
		}
		plan.Override(field, method)
	}
	table := aggregate.Aggregate(groups, plan)

	base := filepath.Join(r.cfg.Paths.ExportDir, "aggregated_"+time.Now().Format("20060102_150405"))
	tabularPath := base + tabularExtension(r.cfg.DelimiterRune())
	if err := export.WriteTabular(tabularPath, table, r.cfg.DelimiterRune()); err != nil {
		return nil, Wrap(ErrIO, "pipeline", "write tabular", tabularPath, err)
	}
	result.TabularPath = tabularPath
	r.logger.Info("tabular export written",
		logging.Component("export"),
		logging.String("path", tabularPath),
		logging.Int("sites", result.Sites))

	if r.cfg.Export.Shapefile {
		point, err := export.WritePointFeatures(base, table)
		if err != nil {
			result.Status = journal.StatusPartial
			result.Note = fmt.Sprintf("shapefile step failed: %v", err)
			r.logger.Warn("shapefile export failed; tabular output kept",
				logging.Component("export"), logging.Error(err))
			r.cleanupShapefile(base)
		} else {
			result.ShapefilePath = point.ShapefilePath
			result.SkippedFeatures = point.Skipped
			if point.Skipped > 0 {
				r.logger.Warn("sites without usable coordinates were left out of the shapefile",
					logging.Component("export"), logging.Int("count", point.Skipped))
			}
		}
	}

	return result, nil
}

// cleanupShapefile removes the partial sidecar files a failed shapefile
// write may leave behind.
func (r *Runner) cleanupShapefile(base string) {
	for _, ext := range []string{".shp", ".shx", ".dbf", "dbf", ".prj"} {
		_ = os.Remove(base + ext)
	}
	_ = os.Remove(base + "_fields.csv")
}

func siteOf(rec schema.Record) string {
	id, _ := schema.SiteID(rec)
	return id
}

func tabularExtension(delimiter rune) string {
	if delimiter == '\t' {
		return ".tsv"
	}
	return ".csv"
}

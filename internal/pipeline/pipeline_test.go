package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dropkit/internal/config"
	"dropkit/internal/journal"
	"dropkit/internal/logging"
)

const testHeader = "POINT_ID,LATITUDE,LONGITUDE,SG_PRESENT,SG_COVER,NOTES\n"

func testConfig(t *testing.T, entryRows ...string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	templatePath := filepath.Join(dir, "template.csv")
	if err := os.WriteFile(templatePath, []byte(testHeader), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}

	rulesDoc := `{"rules": [
		{"type": "range", "field": "SG_COVER", "min": 0, "max": 100},
		{"type": "conditional", "if_field": "SG_PRESENT", "if_value": "1",
		 "then_field": "SG_COVER", "then_condition": "greater_than", "then_value": "0"}
	]}`
	rulesPath := filepath.Join(dir, "rules.json")
	if err := os.WriteFile(rulesPath, []byte(rulesDoc), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	dataDir := filepath.Join(dir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatalf("mkdir data: %v", err)
	}
	entries := testHeader + strings.Join(entryRows, "\n")
	if len(entryRows) > 0 {
		entries += "\n"
	}
	if err := os.WriteFile(filepath.Join(dataDir, "data_entries.csv"), []byte(entries), 0o644); err != nil {
		t.Fatalf("write entries: %v", err)
	}

	cfg := config.Default()
	cfg.Paths.DataDir = dataDir
	cfg.Paths.ExportDir = filepath.Join(dir, "export")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Paths.Template = templatePath
	cfg.Paths.Rules = rulesPath
	cfg.Export.Shapefile = false
	return &cfg
}

func newTestRunner(t *testing.T, cfg *config.Config, js *journal.Store) *Runner {
	t.Helper()
	runner, err := NewRunner(cfg, logging.NewNop(), js)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return runner
}

func TestValidateReportsViolations(t *testing.T) {
	cfg := testConfig(t,
		"S1,-18.1,146.2,1,40,calm",
		"S1,-18.1,146.2,1,150,choppy",
		"S2,-18.4,146.5,0,0,")
	runner := newTestRunner(t, cfg, nil)

	report, err := runner.Validate(context.Background(), "")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if report.Checked != 3 {
		t.Fatalf("Checked = %d, want 3", report.Checked)
	}
	if len(report.Issues) != 1 {
		t.Fatalf("Issues = %+v, want one record flagged", report.Issues)
	}
	issue := report.Issues[0]
	if issue.Row != 2 || issue.SiteID != "S1" {
		t.Fatalf("issue identity = row %d site %q", issue.Row, issue.SiteID)
	}
	if len(issue.Violations) != 1 || !strings.Contains(issue.Violations[0], "SG_COVER") {
		t.Fatalf("violations = %v", issue.Violations)
	}
}

func TestValidateMissingTemplate(t *testing.T) {
	cfg := testConfig(t)
	cfg.Paths.Template = filepath.Join(t.TempDir(), "absent.csv")
	runner := newTestRunner(t, cfg, nil)

	_, err := runner.Validate(context.Background(), "")
	if !errors.Is(err, ErrPrerequisite) {
		t.Fatalf("err = %v, want ErrPrerequisite", err)
	}
}

func TestRunWritesTabular(t *testing.T) {
	cfg := testConfig(t,
		"S1,-18.1,146.2,1,40,calm",
		"S1,-18.1,146.2,1,60,",
		"S2,-18.4,146.5,0,0,windy")
	runner := newTestRunner(t, cfg, nil)

	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != journal.StatusDone {
		t.Fatalf("status = %s", result.Status)
	}
	if result.Records != 3 || result.Sites != 2 {
		t.Fatalf("records=%d sites=%d", result.Records, result.Sites)
	}

	data, err := os.ReadFile(result.TabularPath)
	if err != nil {
		t.Fatalf("read tabular output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("tabular rows = %d, want header plus two sites", len(lines))
	}
	if !strings.HasPrefix(lines[0], "POINT_ID,") {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "S1,") || !strings.HasPrefix(lines[2], "S2,") {
		t.Fatalf("site order not preserved: %v", lines[1:])
	}
}

func TestRunGatesInvalidRecords(t *testing.T) {
	cfg := testConfig(t,
		"S1,-18.1,146.2,1,40,calm",
		"S1,-18.1,146.2,1,150,bad")
	runner := newTestRunner(t, cfg, nil)

	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.InvalidRecords != 1 {
		t.Fatalf("InvalidRecords = %d, want 1", result.InvalidRecords)
	}
	if result.Records != 1 {
		t.Fatalf("Records = %d, gated record should not aggregate", result.Records)
	}

	cfg.Validation.GateExports = false
	runner = newTestRunner(t, cfg, nil)
	result, err = runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run without gate: %v", err)
	}
	if result.Records != 2 {
		t.Fatalf("Records = %d, want invalid record kept when gate is off", result.Records)
	}
}

func TestRunJournalsOutcome(t *testing.T) {
	cfg := testConfig(t, "S1,-18.1,146.2,1,40,calm")
	js, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer js.Close()
	runner := newTestRunner(t, cfg, js)

	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.RunID == "" {
		t.Fatal("missing run id")
	}

	run, err := js.Get(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("journal get: %v", err)
	}
	if run.Status != journal.StatusDone || run.Sites != 1 {
		t.Fatalf("journaled run = %+v", run)
	}
	if run.TabularPath != result.TabularPath {
		t.Fatalf("journaled path %q != %q", run.TabularPath, result.TabularPath)
	}
}

func TestRunWritesShapefile(t *testing.T) {
	cfg := testConfig(t,
		"S1,-18.1,146.2,1,40,calm",
		"S2,-18.4,146.5,0,0,")
	cfg.Export.Shapefile = true
	runner := newTestRunner(t, cfg, nil)

	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != journal.StatusDone {
		t.Fatalf("status = %s note = %q", result.Status, result.Note)
	}
	if result.ShapefilePath == "" {
		t.Fatal("missing shapefile path")
	}
	for _, ext := range []string{".shp", ".dbf", ".prj"} {
		path := strings.TrimSuffix(result.ShapefilePath, ".shp") + ext
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s: %v", path, err)
		}
	}
}

func TestRunShapefileDegradesToPartial(t *testing.T) {
	dir := t.TempDir()
	templatePath := filepath.Join(dir, "template.csv")
	header := "POINT_ID,SG_COVER\n"
	if err := os.WriteFile(templatePath, []byte(header), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	dataDir := filepath.Join(dir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "data_entries.csv"), []byte(header+"S1,40\n"), 0o644); err != nil {
		t.Fatalf("write entries: %v", err)
	}

	cfg := config.Default()
	cfg.Paths.DataDir = dataDir
	cfg.Paths.ExportDir = filepath.Join(dir, "export")
	cfg.Paths.Template = templatePath
	cfg.Export.Shapefile = true
	runner := newTestRunner(t, &cfg, nil)

	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != journal.StatusPartial {
		t.Fatalf("status = %s, want partial without coordinate columns", result.Status)
	}
	if result.Note == "" || result.TabularPath == "" {
		t.Fatalf("partial run must keep tabular output and a note: %+v", result)
	}
	if _, err := os.Stat(result.TabularPath); err != nil {
		t.Fatalf("tabular output missing: %v", err)
	}
}

func TestRunNearlyEmptySkipsValidation(t *testing.T) {
	cfg := testConfig(t,
		"S1,-18.1,146.2,1,40,calm",
		"S1,,,,,")
	cfg.Validation.SkipNearlyEmpty = true
	cfg.Validation.NearlyEmptyThreshold = 0.2
	runner := newTestRunner(t, cfg, nil)

	report, err := runner.Validate(context.Background(), "")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if report.Checked != 1 || report.Skipped != 1 {
		t.Fatalf("checked=%d skipped=%d", report.Checked, report.Skipped)
	}
	if len(report.Issues) != 0 {
		t.Fatalf("issues = %+v", report.Issues)
	}
}

func TestValidateSingleDrop(t *testing.T) {
	dir := t.TempDir()
	header := "POINT_ID,DROP_ID,SG_COVER\n"
	templatePath := filepath.Join(dir, "template.csv")
	if err := os.WriteFile(templatePath, []byte(header), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	rulesPath := filepath.Join(dir, "rules.json")
	rulesDoc := `{"rules": [{"type": "range", "field": "SG_COVER", "min": 0, "max": 100}]}`
	if err := os.WriteFile(rulesPath, []byte(rulesDoc), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	dataDir := filepath.Join(dir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	entries := header + "S1,drop1,40\nS1,drop2,150\n"
	if err := os.WriteFile(filepath.Join(dataDir, "data_entries.csv"), []byte(entries), 0o644); err != nil {
		t.Fatalf("write entries: %v", err)
	}

	cfg := config.Default()
	cfg.Paths.DataDir = dataDir
	cfg.Paths.ExportDir = filepath.Join(dir, "export")
	cfg.Paths.Template = templatePath
	cfg.Paths.Rules = rulesPath
	runner := newTestRunner(t, &cfg, nil)

	report, err := runner.Validate(context.Background(), "drop1")
	if err != nil {
		t.Fatalf("Validate drop1: %v", err)
	}
	if report.Checked != 1 || len(report.Issues) != 0 {
		t.Fatalf("drop1: checked=%d issues=%v", report.Checked, report.Issues)
	}

	report, err = runner.Validate(context.Background(), "drop2")
	if err != nil {
		t.Fatalf("Validate drop2: %v", err)
	}
	if len(report.Issues) != 1 {
		t.Fatalf("drop2 issues = %v", report.Issues)
	}

	if _, err := runner.Validate(context.Background(), "drop9"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRunBadMethodOverride(t *testing.T) {
	cfg := testConfig(t, "S1,-18.1,146.2,1,40,calm")
	cfg.Export.Methods = map[string]string{"SG_COVER": "median"}
	runner := newTestRunner(t, cfg, nil)

	_, err := runner.Run(context.Background())
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}

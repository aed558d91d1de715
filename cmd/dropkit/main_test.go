package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dropkit/internal/config"
	"dropkit/internal/testsupport"
)

func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()

	content := fmt.Sprintf(`[paths]
data_dir = %q
export_dir = %q
log_dir = %q
template = %q
rules = %q

[export]
delimiter = %q
shapefile = %v

[validation]
gate_exports = %v
skip_nearly_empty = %v
nearly_empty_threshold = %v

[logging]
format = %q
level = %q
`,
		cfg.Paths.DataDir, cfg.Paths.ExportDir, cfg.Paths.LogDir,
		cfg.Paths.Template, cfg.Paths.Rules,
		cfg.Export.Delimiter, cfg.Export.Shapefile,
		cfg.Validation.GateExports, cfg.Validation.SkipNearlyEmpty,
		cfg.Validation.NearlyEmptyThreshold,
		cfg.Logging.Format, cfg.Logging.Level)

	path := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("output %q does not contain %q", haystack, needle)
	}
}

func testEnv(t *testing.T, entryRows ...string) string {
	t.Helper()

	cfg := testsupport.NewConfig(t,
		testsupport.WithTemplate("POINT_ID,LATITUDE,LONGITUDE,SG_PRESENT,SG_COVER,NOTES"),
		testsupport.WithRules(`{"rules": [{"type": "range", "field": "SG_COVER", "min": 0, "max": 100}]}`),
		testsupport.WithEntries(strings.Join(
			append([]string{"POINT_ID,LATITUDE,LONGITUDE,SG_PRESENT,SG_COVER,NOTES"}, entryRows...),
			"\n")+"\n"),
	)
	return writeTestConfig(t, cfg)
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, _, _, err := config.Load(target); err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
}

func TestValidateCommandPasses(t *testing.T) {
	configPath := testEnv(t, "S1,-18.1,146.2,1,40,calm")

	out, err := runCLI(t, configPath, "validate")
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	requireContains(t, out, "passed validation")
}

func TestValidateCommandFlagsViolations(t *testing.T) {
	configPath := testEnv(t,
		"S1,-18.1,146.2,1,40,calm",
		"S1,-18.1,146.2,1,150,choppy")

	out, err := runCLI(t, configPath, "validate")
	if err == nil {
		t.Fatalf("expected failure, got:\n%s", out)
	}
	requireContains(t, out, "SG_COVER")
	requireContains(t, err.Error(), "failed validation")
}

func TestExportCommandWritesOutputsAndJournals(t *testing.T) {
	configPath := testEnv(t,
		"S1,-18.1,146.2,1,40,calm",
		"S2,-18.4,146.5,0,0,")

	out, err := runCLI(t, configPath, "export")
	if err != nil {
		t.Fatalf("export: %v\n%s", err, out)
	}
	requireContains(t, out, "Tabular output")

	out, err = runCLI(t, configPath, "runs")
	if err != nil {
		t.Fatalf("runs: %v\n%s", err, out)
	}
	requireContains(t, out, "done")
}

func TestRulesLintFlagsMalformed(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithTemplate("POINT_ID,SG_COVER"),
		testsupport.WithRules(`{"rules": [{"type": "range", "field": "SG_COVER", "min": 10, "max": 0}]}`),
	)
	configPath := writeTestConfig(t, cfg)

	out, err := runCLI(t, configPath, "rules", "lint")
	if err == nil {
		t.Fatalf("expected lint failure, got:\n%s", out)
	}
	requireContains(t, err.Error(), "malformed rule")
}

func TestEntriesAddAssignsDropID(t *testing.T) {
	configPath := testEnv(t, "S1,-18.1,146.2,1,40,drop one")

	out, err := runCLI(t, configPath, "entries", "add",
		"--video", "/surveys/S1_cam2.mp4",
		"--set", "POINT_ID=S1",
		"--set", "SG_PRESENT=1",
		"--set", "SG_COVER=55")
	if err != nil {
		t.Fatalf("entries add: %v\n%s", err, out)
	}
	requireContains(t, out, "Stored entry drop1 for site S1")

	out, err = runCLI(t, configPath, "entries", "list")
	if err != nil {
		t.Fatalf("entries list: %v\n%s", err, out)
	}
	requireContains(t, out, "55")
}

// Package testsupport provides helpers shared by dropkit package tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"dropkit/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.ExportDir = filepath.Join(base, "export")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Export.Shapefile = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithTemplate writes a template CSV carrying the given header line and sets
// the config's template path to it.
func WithTemplate(header string) ConfigOption {
	return func(b *configBuilder) {
		path := filepath.Join(b.baseDir, "template.csv")
		writeFile(b.t, path, header+"\n")
		b.cfg.Paths.Template = path
	}
}

// WithRules writes a rule document and sets the config's rules path to it.
func WithRules(document string) ConfigOption {
	return func(b *configBuilder) {
		path := filepath.Join(b.baseDir, "rules.json")
		writeFile(b.t, path, document)
		b.cfg.Paths.Rules = path
	}
}

// WithEntries writes the entry store CSV inside the config's data directory.
func WithEntries(content string) ConfigOption {
	return func(b *configBuilder) {
		if err := os.MkdirAll(b.cfg.Paths.DataDir, 0o755); err != nil {
			b.t.Fatalf("mkdir data dir: %v", err)
		}
		writeFile(b.t, b.cfg.EntriesPath(), content)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}

func writeFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

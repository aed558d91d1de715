package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and file location configuration.
type Paths struct {
	// DataDir holds the observation entry store and base-data CSVs.
	DataDir string `toml:"data_dir"`
	// ExportDir receives aggregated outputs and the export journal.
	ExportDir string `toml:"export_dir"`
	LogDir    string `toml:"log_dir"`
	// Template is the CSV whose header defines the observation fields.
	Template string `toml:"template"`
	// Rules is the JSON rule document for the template.
	Rules string `toml:"rules"`
	// Entries overrides the entry store location; defaults to
	// <data_dir>/data_entries.csv.
	Entries string `toml:"entries"`
}

// Export contains output settings for the aggregation pipeline.
type Export struct {
	// Delimiter for the tabular export: "comma" or "tab".
	Delimiter string `toml:"delimiter"`
	// Shapefile toggles the geospatial export step.
	Shapefile bool `toml:"shapefile"`
	// Methods maps field names to aggregation method overrides
	// (first_non_na, binary_any, token_freq_slash, sum, mean, mean_se,
	// exclude).
	Methods map[string]string `toml:"methods"`
}

// Validation contains record validation policy.
type Validation struct {
	// GateExports excludes records with rule violations from aggregation.
	GateExports bool `toml:"gate_exports"`
	// SkipNearlyEmpty skips validation of records whose non-metadata
	// fields are mostly unfilled.
	SkipNearlyEmpty bool `toml:"skip_nearly_empty"`
	// NearlyEmptyThreshold is the filled fraction below which a record
	// counts as nearly empty.
	NearlyEmptyThreshold float64 `toml:"nearly_empty_threshold"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for dropkit.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Export     Export     `toml:"export"`
	Validation Validation `toml:"validation"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/dropkit/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. A missing file is not
// an error; defaults apply.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("dropkit.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories dropkit writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.ExportDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// EntriesPath returns the observation entry store location.
func (c *Config) EntriesPath() string {
	if strings.TrimSpace(c.Paths.Entries) != "" {
		return c.Paths.Entries
	}
	return filepath.Join(c.Paths.DataDir, "data_entries.csv")
}

// JournalPath returns the export-run journal database location.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.ExportDir, "export_journal.db")
}

// DelimiterRune maps the configured delimiter name to its rune.
func (c *Config) DelimiterRune() rune {
	if strings.EqualFold(strings.TrimSpace(c.Export.Delimiter), "tab") {
		return '\t'
	}
	return ','
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

package config

const (
	defaultDataDir              = "~/.local/share/dropkit/data"
	defaultExportDir            = "~/.local/share/dropkit/exports"
	defaultLogDir               = "~/.local/share/dropkit/logs"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultDelimiter            = "comma"
	defaultNearlyEmptyThreshold = 0.2
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			ExportDir: defaultExportDir,
			LogDir:    defaultLogDir,
		},
		Export: Export{
			Delimiter: defaultDelimiter,
			Shapefile: true,
		},
		Validation: Validation{
			GateExports:          true,
			SkipNearlyEmpty:      false,
			NearlyEmptyThreshold: defaultNearlyEmptyThreshold,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

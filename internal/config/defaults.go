package config

const (
	defaultLogDir         = "~/.local/share/docsplit/logs"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultSizeLimitBytes = 1_000_000_000
	defaultDocumentLimit  = 1500
	defaultWorkers        = 2
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Limits: Limits{
			SizeLimitBytes: defaultSizeLimitBytes,
			DocumentLimit:  defaultDocumentLimit,
		},
		Split: Split{
			Workers: defaultWorkers,
			Strict:  true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		History: History{
			Enabled: true,
		},
	}
}

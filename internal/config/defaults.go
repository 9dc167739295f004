package config

import "strings"

// ApplyDefaults fills in any unspecified configuration fields with
// sensible defaults, following the same zero-value-replacement
// strategy as the example pack's server configuration.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applySyncDefaults(&cfg.Sync)
	applyMetricsDefaults(&cfg.Metrics)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applySyncDefaults(cfg *SyncConfig) {
	if cfg.BlockSize == 0 {
		cfg.BlockSize = 256 * 1024 // 256 KiB
	}
	if cfg.ParityLevel == 0 {
		cfg.ParityLevel = 1
	}
	if cfg.ParityDir == "" {
		cfg.ParityDir = "."
	}
	if cfg.ContentFile == "" {
		cfg.ContentFile = "content.json"
	}
	if cfg.HashAlgo == "" {
		cfg.HashAlgo = "blake2b"
	}
	if cfg.PrevHashAlgo == "" {
		cfg.PrevHashAlgo = "xxhash"
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Listen == "" {
		cfg.Listen = ":9090"
	}
}

// GetDefaultConfig returns a Config with all default values applied
// and no disks configured; callers add disks via a config file.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

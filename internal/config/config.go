// Package config loads goparity's layered configuration: CLI flags,
// then environment variables, then a YAML file, then built-in
// defaults, mirroring the precedence order the example pack's server
// configuration uses.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is goparity's top-level configuration.
//
// Configuration sources, in order of precedence:
//  1. CLI flags (highest priority)
//  2. Environment variables (GOPARITY_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	Logging LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Sync    SyncConfig     `mapstructure:"sync" yaml:"sync"`
	Metrics MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	Disks   []DiskConfig   `mapstructure:"disks" yaml:"disks" validate:"dive"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	// Format is the log output format: text or json.
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`
	// Output is where logs are written: stdout, stderr, or a file path.
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// ByteSize is an amount of bytes that accepts human-readable config
// values such as "256KiB" or "1Gi" via byteSizeDecodeHook.
type ByteSize uint64

// SyncConfig controls the sync engine (C4-C7).
type SyncConfig struct {
	// BlockSize is the size, in bytes, of one block on every disk and
	// parity level.
	BlockSize ByteSize `mapstructure:"block_size" yaml:"block_size"`
	// ParityLevel is the number of parity levels, 1..6.
	ParityLevel int `mapstructure:"parity_level" yaml:"parity_level" validate:"gte=1,lte=6"`
	// ParityDir holds the parity.<level> files.
	ParityDir string `mapstructure:"parity_dir" yaml:"parity_dir"`
	// ContentFile is the path to the content-file checkpoint.
	ContentFile string `mapstructure:"content_file" yaml:"content_file"`
	// HashAlgo names the current hash algorithm: "blake2b" or "xxhash".
	HashAlgo string `mapstructure:"hash_algo" yaml:"hash_algo" validate:"oneof=blake2b xxhash"`
	// PrevHashAlgo names the previous hash algorithm, consulted while an
	// index's info entry has Rehash set.
	PrevHashAlgo string `mapstructure:"prev_hash_algo" yaml:"prev_hash_algo" validate:"oneof=blake2b xxhash"`
	// AutosaveBytes is the checkpoint threshold; 0 disables autosave.
	AutosaveBytes ByteSize `mapstructure:"autosave_bytes" yaml:"autosave_bytes"`
	// IOErrorLimit bounds tolerated EIOs per run; 0 means unlimited.
	IOErrorLimit int `mapstructure:"io_error_limit" yaml:"io_error_limit"`
	// SkipFallocate disables physical pre-allocation on parity resize.
	SkipFallocate bool `mapstructure:"skip_fallocate" yaml:"skip_fallocate"`
	// ForceFull skips the "parity disks not mounted" guard.
	ForceFull bool `mapstructure:"force_full" yaml:"force_full"`
	// Prehash runs the hash pass before the sync pass.
	Prehash bool `mapstructure:"prehash" yaml:"prehash"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	// Enabled turns on the metrics HTTP listener.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Listen is the metrics server's listen address.
	Listen string `mapstructure:"listen" yaml:"listen"`
}

// DiskConfig names one data disk participating in the sync run.
type DiskConfig struct {
	Name string `mapstructure:"name" yaml:"name" validate:"required"`
	Dir  string `mapstructure:"dir" yaml:"dir" validate:"required"`
}

// Load loads configuration from file, environment, and defaults.
// Environment variables override only keys that the config file sets;
// when no config file is found, the defaults are returned as they are
// and the environment is not consulted.
//
// configPath, if empty, uses the default location
// ($XDG_CONFIG_HOME/goparity/goparity.yaml).
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return &cfg, nil
}

// SaveConfig writes cfg to path in YAML, respecting yaml tags.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: mkdir %s: %w", dir, err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Validate checks cfg against its struct tags via go-playground/validator.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("GOPARITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}

	v.AddConfigPath(getConfigDir())
	v.SetConfigName("goparity")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks composes the custom mapstructure decode hooks this
// config needs: human-readable byte sizes for ByteSize fields.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(byteSizeDecodeHook())
}

// byteSizeDecodeHook converts strings and numbers into ByteSize, using
// go-humanize to parse human-readable sizes like "256KiB" or "1Gi".
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			n, err := humanize.ParseBytes(v)
			if err != nil {
				return nil, fmt.Errorf("config: parse byte size %q: %w", v, err)
			}
			return ByteSize(n), nil
		case int:
			return ByteSize(v), nil
		case int64:
			return ByteSize(v), nil
		case uint64:
			return ByteSize(v), nil
		case float64:
			return ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "goparity")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "goparity")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "goparity.yaml")
}

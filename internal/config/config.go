package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "EVENTCORE"

// Config is the complete eventbench configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging" toml:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" toml:"telemetry"`
	Workload  WorkloadConfig  `mapstructure:"workload" toml:"workload"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level" toml:"level"`
	// Format is json or console.
	Format string `mapstructure:"format" toml:"format"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	// Enabled installs real providers; otherwise no-op providers are used.
	Enabled bool `mapstructure:"enabled" toml:"enabled"`
	// Stdout pretty-prints spans and metrics to stdout.
	Stdout bool `mapstructure:"stdout" toml:"stdout"`
}

// WorkloadConfig shapes a synthetic run.
type WorkloadConfig struct {
	// Listeners is the number of listeners registered per round.
	Listeners int `mapstructure:"listeners" toml:"listeners"`
	// Events is the number of events fired per round.
	Events int `mapstructure:"events" toml:"events"`
	// Rounds is the number of register/fire/deregister cycles.
	Rounds int `mapstructure:"rounds" toml:"rounds"`
	// Workers is the number of goroutines registering listeners.
	Workers int `mapstructure:"workers" toml:"workers"`
	// Isolate runs the manager in isolated mode.
	Isolate bool `mapstructure:"isolate" toml:"isolate"`
	// PersistentEvery registers every Nth listener on the persistent track
	// as well. Zero disables persistent registration.
	PersistentEvery int `mapstructure:"persistent_every" toml:"persistent_every"`
	// FailEvery sends an empty Message every Nth event so message handlers
	// fail. Zero disables failures.
	FailEvery int `mapstructure:"fail_every" toml:"fail_every"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Telemetry: TelemetryConfig{
			Enabled: false,
			Stdout:  true,
		},
		Workload: WorkloadConfig{
			Listeners:       16,
			Events:          1000,
			Rounds:          3,
			Workers:         4,
			Isolate:         false,
			PersistentEvery: 4,
			FailEvery:       0,
		},
	}
}

// NewViper returns a viper instance seeded with defaults and environment
// overrides. If path is non-empty the file is read as well.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		return v, nil
	}

	format, err := formatOf(path)
	if err != nil {
		return nil, err
	}
	v.SetConfigFile(path)
	v.SetConfigType(format)
	if err := v.ReadInConfig(); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return v, nil
}

// Load reads the configuration at path (optional) layered over defaults and
// environment, and validates it.
func Load(path string) (Config, error) {
	v, err := NewViper(path)
	if err != nil {
		return Config{}, err
	}
	return Decode(v)
}

// Decode unmarshals and validates the configuration held by v.
func Decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every setting and returns all failures combined.
func (c Config) Validate() error {
	var errs []error

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, &ValidationError{Path: "logging.level", Message: "must be debug, info, warn or error", Value: c.Logging.Level})
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, &ValidationError{Path: "logging.format", Message: "must be json or console", Value: c.Logging.Format})
	}

	positive := []struct {
		path  string
		value int
	}{
		{"workload.listeners", c.Workload.Listeners},
		{"workload.events", c.Workload.Events},
		{"workload.rounds", c.Workload.Rounds},
		{"workload.workers", c.Workload.Workers},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errs = append(errs, &ValidationError{Path: p.path, Message: "must be positive", Value: p.value})
		}
	}
	if c.Workload.PersistentEvery < 0 {
		errs = append(errs, &ValidationError{Path: "workload.persistent_every", Message: "must not be negative", Value: c.Workload.PersistentEvery})
	}
	if c.Workload.FailEvery < 0 {
		errs = append(errs, &ValidationError{Path: "workload.fail_every", Message: "must not be negative", Value: c.Workload.FailEvery})
	}

	return multierr.Combine(errs...)
}

// TOML renders the configuration as a TOML document.
func (c Config) TOML() ([]byte, error) {
	out, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return out, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("telemetry.enabled", d.Telemetry.Enabled)
	v.SetDefault("telemetry.stdout", d.Telemetry.Stdout)
	v.SetDefault("workload.listeners", d.Workload.Listeners)
	v.SetDefault("workload.events", d.Workload.Events)
	v.SetDefault("workload.rounds", d.Workload.Rounds)
	v.SetDefault("workload.workers", d.Workload.Workers)
	v.SetDefault("workload.isolate", d.Workload.Isolate)
	v.SetDefault("workload.persistent_every", d.Workload.PersistentEvery)
	v.SetDefault("workload.fail_every", d.Workload.FailEvery)
}

func formatOf(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		return "toml", nil
	case ".yaml", ".yml":
		return "yaml", nil
	case ".json":
		return "json", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hyperengineering/fluidbc/internal/gravity"
	"github.com/hyperengineering/fluidbc/internal/tracing"
)

// Config is the root configuration structure.
// It is read-only after Load() returns and safe for concurrent reads.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Journal    JournalConfig    `yaml:"journal"`
	Auth       AuthConfig       `yaml:"auth"`
	Log        LogConfig        `yaml:"log"`
	Simulation SimulationConfig `yaml:"simulation"`
	Tracing    tracing.Config   `yaml:"tracing"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// JournalConfig contains run journal settings.
// An empty path disables the journal.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig contains authentication settings.
// An empty key leaves the API open.
type AuthConfig struct {
	APIKey string `yaml:"-"` // env-only, never in YAML
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SimulationConfig describes the run the host sets up.
type SimulationConfig struct {
	Dimension        int     `yaml:"dimension"`
	ParameterFile    string  `yaml:"parameter_file"`
	Gravity          string  `yaml:"gravity"`
	GravityMagnitude float64 `yaml:"gravity_magnitude"`
	Workers          int     `yaml:"workers"`
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load loads configuration with precedence: defaults → YAML file → env vars.
// The file is FLUIDBC_CONFIG_PATH, or config/fluidbc.yaml; a missing file
// is not an error.
func Load() (*Config, error) {
	cfg := newDefaults()

	configPath := getEnv("FLUIDBC_CONFIG_PATH", "config/fluidbc.yaml")
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a specific path, which must exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newDefaults returns a Config with all default values.
func newDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Journal: JournalConfig{
			Path: "data/fluidbc.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Simulation: SimulationConfig{
			Dimension:        2,
			Gravity:          "vertical",
			GravityMagnitude: 9.81,
		},
		Tracing: tracing.DefaultConfig(),
	}
}

// loadYAMLFile loads configuration from a YAML file if it exists.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty env vars override config values; malformed numbers are
// reported rather than ignored.
func applyEnvOverrides(cfg *Config) error {
	var errs []error
	intVar := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	durVar := func(key string, dst *Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = Duration(d)
		}
	}
	floatVar := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	strVar := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	// Server
	intVar("FLUIDBC_PORT", &cfg.Server.Port)
	durVar("FLUIDBC_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	durVar("FLUIDBC_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	durVar("FLUIDBC_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Journal
	strVar("FLUIDBC_JOURNAL_PATH", &cfg.Journal.Path)

	// Auth
	strVar("FLUIDBC_API_KEY", &cfg.Auth.APIKey)

	// Log
	strVar("FLUIDBC_LOG_LEVEL", &cfg.Log.Level)
	strVar("FLUIDBC_LOG_FORMAT", &cfg.Log.Format)

	// Simulation
	intVar("FLUIDBC_DIMENSION", &cfg.Simulation.Dimension)
	strVar("FLUIDBC_PARAMETER_FILE", &cfg.Simulation.ParameterFile)
	strVar("FLUIDBC_GRAVITY", &cfg.Simulation.Gravity)
	floatVar("FLUIDBC_GRAVITY_MAGNITUDE", &cfg.Simulation.GravityMagnitude)
	intVar("FLUIDBC_WORKERS", &cfg.Simulation.Workers)

	// Tracing
	if v := os.Getenv("FLUIDBC_TRACING_ENABLED"); v != "" {
		cfg.Tracing.Enabled = v == "true" || v == "1"
	}
	strVar("FLUIDBC_TRACING_EXPORTER", &cfg.Tracing.Exporter)
	strVar("FLUIDBC_TRACING_FILE", &cfg.Tracing.FilePath)

	return errors.Join(errs...)
}

// validate checks the configuration for values the host cannot run with.
func (c *Config) validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Simulation.Dimension != 2 && c.Simulation.Dimension != 3 {
		errs = append(errs, fmt.Errorf("simulation.dimension must be 2 or 3, got %d", c.Simulation.Dimension))
	}
	if !slices.Contains(gravity.Names(), c.Simulation.Gravity) {
		errs = append(errs, fmt.Errorf("simulation.gravity must be one of %s, got %q",
			strings.Join(gravity.Names(), ", "), c.Simulation.Gravity))
	}
	if c.Simulation.GravityMagnitude < 0 {
		errs = append(errs, fmt.Errorf("simulation.gravity_magnitude must not be negative"))
	}
	if c.Simulation.Workers < 0 {
		errs = append(errs, fmt.Errorf("simulation.workers must not be negative"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

package app

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/vk/compreg/internal/snapshot"
	"github.com/vk/compreg/internal/spawner"
)

// EnvPrefix prefixes every environment variable Config reads.
const EnvPrefix = "COMPREG_"

// DumpNone disables the entity dump.
const DumpNone = "none"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	DefinitionsPath string `env:"DEFINITIONS_PATH"`                  // entity and resource .hcl files
	ManifestsPath   string `env:"MANIFESTS_PATH" envDefault:"modules"` // component manifests

	LogFormat       string `env:"LOG_FORMAT" envDefault:"text"`
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
	HealthcheckPort int    `env:"HEALTHCHECK_PORT"`
	WorkerCount     int    `env:"WORKERS" envDefault:"10"`
	ErrorPolicy     string `env:"ERROR_POLICY" envDefault:"abort"`
	Dump            string `env:"DUMP" envDefault:"none"`
	Describe        bool   `env:"DESCRIBE"`
}

// ConfigFromEnv reads COMPREG_* variables. A nil environ means the process
// environment.
func ConfigFromEnv(environ map[string]string) (Config, error) {
	var cfg Config
	opts := env.Options{Prefix: EnvPrefix, Environment: environ}
	if environ == nil {
		opts.Environment = env.ToMap(os.Environ())
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// NewConfig validates cfg and returns a copy.
func NewConfig(cfg Config) (*Config, error) {
	var errs []error
	if cfg.DefinitionsPath == "" && !cfg.Describe {
		errs = append(errs, errors.New("DefinitionsPath is a required configuration field and cannot be empty"))
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat))
	}
	if _, ok := parseLevel(cfg.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel))
	}
	if cfg.WorkerCount < 1 {
		errs = append(errs, fmt.Errorf("worker count must be at least 1, got %d", cfg.WorkerCount))
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		errs = append(errs, fmt.Errorf("healthcheck port %d is out of range", cfg.HealthcheckPort))
	}
	if _, err := spawner.ParsePolicy(cfg.ErrorPolicy); err != nil {
		errs = append(errs, err)
	}
	if cfg.Dump != DumpNone {
		if f, err := snapshot.ParseFormat(cfg.Dump); err != nil || f == snapshot.FormatText {
			errs = append(errs, fmt.Errorf("invalid dump format %q: must be 'none', 'json' or 'yaml'", cfg.Dump))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &cfg, nil
}

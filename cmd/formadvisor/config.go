package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const envPrefix = "FORMADVISOR_"

// Config is read from FORMADVISOR_* environment variables, optionally seeded
// from .env files.
type Config struct {
	FieldDebounce   time.Duration `env:"FIELD_DEBOUNCE" envDefault:"300ms"`
	FormDebounce    time.Duration `env:"FORM_DEBOUNCE" envDefault:"1s"`
	AdvisoryLatency time.Duration `env:"ADVISORY_LATENCY" envDefault:"0s"`
	AdvisoryRPS     float64       `env:"ADVISORY_RPS" envDefault:"0"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"text"`
	MaxAttempts     int           `env:"MAX_ATTEMPTS" envDefault:"3"`
}

// loadConfig loads envFiles (missing files are skipped) and parses the
// environment. Variables already set win over file values.
func loadConfig(envFiles ...string) (Config, error) {
	for _, file := range envFiles {
		if file == "" {
			continue
		}
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", file, err)
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if c.FieldDebounce < 0 {
		errs = append(errs, fmt.Errorf("config: %sFIELD_DEBOUNCE must not be negative", envPrefix))
	}
	if c.FormDebounce < 0 {
		errs = append(errs, fmt.Errorf("config: %sFORM_DEBOUNCE must not be negative", envPrefix))
	}
	if c.AdvisoryLatency < 0 {
		errs = append(errs, fmt.Errorf("config: %sADVISORY_LATENCY must not be negative", envPrefix))
	}
	if c.AdvisoryRPS < 0 {
		errs = append(errs, fmt.Errorf("config: %sADVISORY_RPS must not be negative", envPrefix))
	}
	if _, err := c.level(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.format(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c Config) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: invalid log level %q", c.LogLevel)
	}
	return level, nil
}

func (c Config) format() (logFormat, error) {
	switch f := logFormat(strings.ToLower(c.LogFormat)); f {
	case formatText, formatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("config: invalid log format %q: must be %q or %q", c.LogFormat, formatText, formatJSON)
	}
}

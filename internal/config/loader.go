package config

import (
	"context"
	"os"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/pable/go-lineup-metrics/internal/errkind"
)

const (
	envPrefix  = "LINEUPS_"
	envConfig  = "LINEUPS_CONFIG"
	dotEnvFile = ".env"
)

var (
	ErrInvalidConfig = crerr.New("invalid config")
	ErrLoadConfig    = crerr.New("load config failed")
)

func loadErr(err error) error {
	return errkind.Classify(crerr.Mark(err, ErrLoadConfig), errkind.Config)
}

func invalid(err error) error {
	return errkind.Classify(crerr.Mark(err, ErrInvalidConfig), errkind.Config)
}

// Load builds a Config by layering, lowest precedence first:
//  1. defaults (New)
//  2. YAML file named by LINEUPS_CONFIG
//  3. environment, after .env has been merged into it
func Load(_ context.Context) (*Config, error) {
	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(dotEnvFile); err != nil && !os.IsNotExist(err) {
		return nil, loadErr(crerr.Wrap(err, "read .env"))
	}

	k := koanf.New(".")

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, loadErr(crerr.Wrapf(err, "read %s", path))
		}
	}

	// LINEUPS_MIN_SAMPLE_LOW -> min_sample_low
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, loadErr(crerr.Wrap(err, "read environment"))
	}

	cfg := *New()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, loadErr(crerr.Wrap(err, "decode config"))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.DBPath == "":
		return invalid(crerr.New("db_path must not be empty"))
	case c.Workers < 1:
		return invalid(crerr.Newf("workers must be >= 1, got %d", c.Workers))
	case c.MinSampleLow < 1 || c.MinSampleHigh <= c.MinSampleLow:
		return invalid(crerr.Newf("sample thresholds must satisfy 0 < low < high, got %d/%d",
			c.MinSampleLow, c.MinSampleHigh))
	case c.LogFormat != "console" && c.LogFormat != "json":
		return invalid(crerr.Newf("log_format must be console or json, got %q", c.LogFormat))
	}
	return nil
}

// Package config defines the engine configuration and how it is layered from
// defaults, an optional YAML file, a .env file and LINEUPS_* environment
// variables.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// DBPath is the SQLite snapshot store location.
	DBPath string `koanf:"db_path"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is "console" or "json".
	LogFormat string `koanf:"log_format"`

	// Workers bounds concurrent game ingestions in batch mode.
	Workers int `koanf:"workers"`

	// MinSampleLow and MinSampleHigh are the possession counts separating
	// low/medium and medium/high confidence in on/off splits.
	MinSampleLow  int `koanf:"min_sample_low"`
	MinSampleHigh int `koanf:"min_sample_high"`

	// HTTPAddr is the listen address of the serve command.
	HTTPAddr string `koanf:"http_addr"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		DBPath:        filepath.Join(userHome(), ".lineups", "lineups.db"),
		LogLevel:      "info",
		LogFormat:     "console",
		Workers:       runtime.NumCPU(),
		MinSampleLow:  100,
		MinSampleHigh: 400,
		HTTPAddr:      ":8090",
	}
}

func userHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// Package config resolves carbonlog settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/caarlos0/env/v11"
)

const appName = "carbonlog"

// Storage backends accepted by CARBONLOG_BACKEND.
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

// Config is the full runtime configuration.
type Config struct {
	DataDir   string        `env:"CARBONLOG_DIR"`
	Backend   string        `env:"CARBONLOG_BACKEND" envDefault:"csv"`
	Addr      string        `env:"CARBONLOG_ADDR" envDefault:":5000"`
	LogLevel  string        `env:"CARBONLOG_LOG_LEVEL" envDefault:"info"`
	LogFormat string        `env:"CARBONLOG_LOG_FORMAT" envDefault:"text"`
	Advisor   AdvisorConfig `envPrefix:"CARBONLOG_ADVISOR_"`
}

// AdvisorConfig configures the generative advisor endpoint and its retry budget.
type AdvisorConfig struct {
	URL         string        `env:"URL" envDefault:"https://generativelanguage.googleapis.com/v1beta/models"`
	APIKey      string        `env:"API_KEY"`
	Model       string        `env:"MODEL" envDefault:"gemini-2.5-flash"`
	MaxAttempts int           `env:"MAX_ATTEMPTS" envDefault:"5"`
	BaseDelay   time.Duration `env:"BASE_DELAY" envDefault:"1s"`
	MaxDelay    time.Duration `env:"MAX_DELAY" envDefault:"16s"`
	Timeout     time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

// Load parses the environment and fills in the data directory when unset.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the rest of the program cannot act on.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendCSV, BackendSQLite:
	default:
		return fmt.Errorf("invalid backend: %s (valid values: csv, sqlite)", c.Backend)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s (valid values: text, json)", c.LogFormat)
	}
	if c.Advisor.MaxAttempts < 1 {
		return fmt.Errorf("advisor max attempts must be at least 1, got %d", c.Advisor.MaxAttempts)
	}
	return nil
}

// DefaultDataDir follows the XDG data home, falling back to ~/.local/share.
func DefaultDataDir() string {
	xdg.Reload()

	dataHome := xdg.DataHome
	if dataHome == "" {
		home := xdg.Home
		if home == "" {
			var err error
			home, err = os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), appName)
			}
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	return filepath.Join(dataHome, appName)
}

// DBPath returns the SQLite database file used by the sqlite backend.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, appName+".db")
}

// RecordsDir returns the directory holding one CSV log per identity.
func (c Config) RecordsDir() string {
	return filepath.Join(c.DataDir, "data")
}

// UsersPath returns the identity directory file used by the csv backend.
func (c Config) UsersPath() string {
	return filepath.Join(c.DataDir, "users.json")
}

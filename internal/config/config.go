// Package config loads crewbase settings: defaults, an optional TOML file,
// then environment overrides, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config holds every tunable of the service.
type Config struct {
	// Bind is the address the HTTP server listens on.
	Bind string `toml:"bind"`

	// Database is the path to the sqlite database file.
	Database string `toml:"database"`

	// ScratchDir is where uploaded files are staged before ingestion.
	ScratchDir string `toml:"scratch_dir"`

	// MaxBody caps request bodies in bytes. Uploads are workbooks, so the
	// default is generous.
	MaxBody int64 `toml:"max_body"`

	// RateRPM is the per-ip request budget per minute; 0 disables limiting.
	RateRPM int `toml:"rate_rpm"`

	// CORSOrigin is the allowed origin for browser clients; "" disables.
	CORSOrigin string `toml:"cors_origin"`

	// PidFile is the daemon pid file path.
	PidFile string `toml:"pid_file"`

	// LogLevel is a logrus level name (debug, info, warn, error).
	LogLevel string `toml:"log_level"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Bind:       "0.0.0.0:3000",
		Database:   "crewbase.db",
		ScratchDir: os.TempDir(),
		MaxBody:    50 << 20,
		RateRPM:    120,
		PidFile:    "/tmp/crewbase.pid",
		LogLevel:   "info",
	}
}

// Load reads a TOML config file over the defaults, then applies environment
// overrides. path may be "" to skip the file entirely.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv maps CREWBASE_* variables onto the config.
func (c *Config) applyEnv() {
	if v := os.Getenv("CREWBASE_BIND"); v != "" {
		c.Bind = v
	}
	if v := os.Getenv("CREWBASE_DB"); v != "" {
		c.Database = v
	}
	if v := os.Getenv("CREWBASE_SCRATCH_DIR"); v != "" {
		c.ScratchDir = v
	}
	if v := os.Getenv("CREWBASE_MAX_BODY"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.MaxBody = n
		}
	}
	if v := os.Getenv("CREWBASE_RATE_RPM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateRPM = n
		}
	}
	if v := os.Getenv("CREWBASE_CORS_ORIGIN"); v != "" {
		c.CORSOrigin = v
	}
	if v := os.Getenv("CREWBASE_PID_FILE"); v != "" {
		c.PidFile = v
	}
	if v := os.Getenv("CREWBASE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

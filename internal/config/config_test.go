package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "0.0.0.0:3000", cfg.Bind)
	assert.Equal(t, "crewbase.db", cfg.Database)
	assert.Equal(t, int64(50<<20), cfg.MaxBody)
	assert.Equal(t, 120, cfg.RateRPM)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crewbase.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
bind = "127.0.0.1:8080"
database = "/var/lib/crewbase/crew.db"
rate_rpm = 30
cors_origin = "http://localhost:5173"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.Bind)
	assert.Equal(t, "/var/lib/crewbase/crew.db", cfg.Database)
	assert.Equal(t, 30, cfg.RateRPM)
	assert.Equal(t, "http://localhost:5173", cfg.CORSOrigin)
	// untouched keys keep their defaults
	assert.Equal(t, int64(50<<20), cfg.MaxBody)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CREWBASE_BIND", "0.0.0.0:9000")
	t.Setenv("CREWBASE_DB", "env.db")
	t.Setenv("CREWBASE_MAX_BODY", "1048576")
	t.Setenv("CREWBASE_RATE_RPM", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Bind)
	assert.Equal(t, "env.db", cfg.Database)
	assert.Equal(t, int64(1048576), cfg.MaxBody)
	// malformed numeric overrides are ignored
	assert.Equal(t, 120, cfg.RateRPM)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("WARSIM_TEST_KEY", "  value  ")
	assert.Equal(t, "value", GetEnv("WARSIM_TEST_KEY", "default"))
	assert.Equal(t, "default", GetEnv("WARSIM_TEST_UNSET", "default"))
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("WARSIM_TEST_DUR", "250ms")
	assert.Equal(t, 250*time.Millisecond, GetEnvDuration("WARSIM_TEST_DUR", time.Second))

	t.Setenv("WARSIM_TEST_DUR_BAD", "soon")
	assert.Equal(t, time.Second, GetEnvDuration("WARSIM_TEST_DUR_BAD", time.Second))
	assert.Equal(t, time.Second, GetEnvDuration("WARSIM_TEST_DUR_UNSET", time.Second))
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("WARSIM_TEST_INT", "42")
	assert.Equal(t, 42, GetEnvInt("WARSIM_TEST_INT", 7))

	t.Setenv("WARSIM_TEST_INT_BAD", "many")
	assert.Equal(t, 7, GetEnvInt("WARSIM_TEST_INT_BAD", 7))
}

func TestLoadServerConfig_Defaults(t *testing.T) {
	os.Unsetenv("WARSIM_CONFIG")
	os.Unsetenv("HTTP_ADDR")
	cfg, err := LoadServerConfig()
	require.NoError(t, err)

	assert.Equal(t, ":3001", cfg.HTTPAddr)
	assert.Equal(t, 100, cfg.EventRetention)
	assert.Equal(t, 10*time.Second, cfg.PatchDelay)
	assert.Equal(t, 500*time.Millisecond, cfg.ProbeTimeout)
	assert.Equal(t, 800*time.Millisecond, cfg.CommandDelay)
	assert.Equal(t, "warsim.events", cfg.NATSSubject)
}

func TestLoadServerConfig_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warsim.yaml")
	file := `
http_addr: ":9000"
patch_delay: 2s
event_retention: 50
nats_subject: sim.events
`
	require.NoError(t, os.WriteFile(path, []byte(file), 0o644))
	t.Setenv("WARSIM_CONFIG", path)
	t.Setenv("HTTP_ADDR", ":9100")

	cfg, err := LoadServerConfig()
	require.NoError(t, err)

	// Env beats file, file beats defaults.
	assert.Equal(t, ":9100", cfg.HTTPAddr)
	assert.Equal(t, 2*time.Second, cfg.PatchDelay)
	assert.Equal(t, 50, cfg.EventRetention)
	assert.Equal(t, "sim.events", cfg.NATSSubject)
	assert.Equal(t, 8*time.Second, cfg.OpponentCooldown)
}

func TestLoadServerConfig_MissingFile(t *testing.T) {
	t.Setenv("WARSIM_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := LoadServerConfig()
	assert.Error(t, err)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":6379", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10000, cfg.MaxClients)
	assert.Equal(t, time.Duration(0), cfg.Timeout)
	assert.Equal(t, 1024, cfg.HotKeyLimit)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emberdb.yaml")
	content := `
addr: ":7000"
log_level: debug
max_clients: 50
timeout: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 50, cfg.MaxClients)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	// Unset fields keep their defaults.
	assert.Equal(t, 1024, cfg.HotKeyLimit)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("EMBERDB_MAX_CLIENTS", "7")
	t.Setenv("EMBERDB_ADDR", ":9000")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.MaxClients)
	assert.Equal(t, ":9000", cfg.Addr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/wifiradar/internal/capture"
	"github.com/banshee-data/wifiradar/internal/devices"
)

func TestFlagDefaults(t *testing.T) {
	assert.Equal(t, ":8080", *listen)
	assert.Equal(t, "synthetic", *source)
	assert.Equal(t, "", *dbPath, "archive is opt-in")
	assert.Equal(t, 115200, *baudRate)
	assert.Equal(t, 7*24*time.Hour, *retention)
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, devices.DefaultCapacity, cfg.GetCapacity())
	assert.Equal(t, devices.DefaultStaleWindow, cfg.GetStaleWindow())

	path := filepath.Join(t.TempDir(), "radar.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"capacity": 5, "eviction_policy": "evict-stale"}`), 0o644))
	cfg, err = loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.GetCapacity())
	assert.Equal(t, devices.PolicyEvictStale, cfg.GetEvictionPolicy())

	require.NoError(t, os.WriteFile(path, []byte(`{"capacity": 0}`), 0o644))
	_, err = loadConfig(path)
	assert.Error(t, err)
}

func TestNewSource(t *testing.T) {
	src, err := newSource("synthetic")
	require.NoError(t, err)
	assert.IsType(t, &capture.SyntheticSource{}, src)

	_, err = newSource("bluetooth")
	assert.ErrorContains(t, err, "unknown source")

	// Neither an interface nor a file is configured, so pcap fails with or
	// without the pcap build tag.
	_, err = newSource("pcap")
	assert.Error(t, err)
}

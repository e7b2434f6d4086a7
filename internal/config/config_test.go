package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "listen_addr: \":9090\"\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, DefaultDBPath, cfg.DatabasePath)
	assert.Equal(t, uint64(DefaultBasePrice), cfg.DefaultBasePrice)
	assert.Equal(t, uint64(DefaultGrowthRateBps), cfg.DefaultGrowthRateBps)
	assert.Equal(t, uint64(DefaultMaxSupply), cfg.DefaultMaxSupply)
	assert.Equal(t, uint64(DefaultMarketCapThreshold), cfg.DefaultMarketCapThreshold)
	assert.Equal(t, DefaultGraduationRetries, cfg.GraduationRetries)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
listen_addr: ":7070"
database_path: "/tmp/test.db"
debug_logging: true
default_base_price: 1000
default_growth_rate_bps: 200
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DatabasePath)
	assert.True(t, cfg.DebugLogging)
	assert.Equal(t, uint64(1000), cfg.DefaultBasePrice)
	assert.Equal(t, uint64(200), cfg.DefaultGrowthRateBps)
}

func TestLoadConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"base price too low", "default_base_price: 999\n"},
		{"base price too high", "default_base_price: 1000000001\n"},
		{"growth rate too low", "default_growth_rate_bps: 9\n"},
		{"growth rate too high", "default_growth_rate_bps: 1001\n"},
		{"max supply too low", "default_max_supply: 999999\n"},
		{"negative retries", "graduation_retries: -1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("CURVELAUNCH_LISTEN_ADDR", ":6060")
	path := writeConfig(t, "listen_addr: \":9090\"\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":6060", cfg.ListenAddr)
}

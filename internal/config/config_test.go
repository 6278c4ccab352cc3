package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"LISTEN_ADDR", "DATA_PATH", "LOG_LEVEL", "TOP_PRODUCTS", "TOP_CUSTOMERS", "LOAD_WORKERS"} {
		t.Setenv(k, "")
	}
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "data/ecommerce_data.csv", cfg.DataPath)
	assert.Equal(t, 10, cfg.TopProducts)
	assert.Equal(t, 5, cfg.TopCustomers)
	assert.GreaterOrEqual(t, cfg.LoadWorkers, 1)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("DATA_PATH", "/tmp/sales.csv")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("TOP_PRODUCTS", "20")
	t.Setenv("TOP_CUSTOMERS", "3")
	t.Setenv("LOAD_WORKERS", "2")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/sales.csv", cfg.DataPath)
	assert.Equal(t, 20, cfg.TopProducts)
	assert.Equal(t, 3, cfg.TopCustomers)
	assert.Equal(t, 2, cfg.LoadWorkers)

	lvl, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	t.Setenv("TOP_PRODUCTS", "ten")
	_, err := LoadFromEnv()
	require.Error(t, err)

	t.Setenv("TOP_PRODUCTS", "-1")
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	require.Error(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.LogLevel = "verbose"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.LoadWorkers = 0
	assert.Error(t, cfg.Validate())
}

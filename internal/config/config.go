// Package config handles application configuration and environment loading.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Config holds the settings of the dashboard server.
type Config struct {
	ListenAddr   string // HTTP listen address (default ":8080")
	DataPath     string // sales CSV loaded at startup
	LogLevel     string // debug, info, warn, error (default "info")
	TopProducts  int    // products in the top-N ranking (default 10)
	TopCustomers int    // customers in the top-N ranking (default 5)
	LoadWorkers  int    // parallel CSV parsers (default runtime.NumCPU())
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		ListenAddr:   ":8080",
		DataPath:     "data/ecommerce_data.csv",
		LogLevel:     "info",
		TopProducts:  10,
		TopCustomers: 5,
		LoadWorkers:  runtime.NumCPU(),
	}
}

// LoadFromEnv overlays environment variables on the defaults. It only
// fails on values that do not parse; call Validate once any flag overrides
// are applied.
func LoadFromEnv() (*Config, error) {
	cfg := Default()
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("DATA_PATH"); v != "" {
		cfg.DataPath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"TOP_PRODUCTS", &cfg.TopProducts},
		{"TOP_CUSTOMERS", &cfg.TopCustomers},
		{"LOAD_WORKERS", &cfg.LoadWorkers},
	}
	for _, e := range ints {
		v := os.Getenv(e.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.key, err)
		}
		*e.dst = n
	}
	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.DataPath == "" {
		return fmt.Errorf("DATA_PATH must not be empty")
	}
	if c.TopProducts < 0 || c.TopCustomers < 0 {
		return fmt.Errorf("ranking limits must not be negative (products=%d, customers=%d)", c.TopProducts, c.TopCustomers)
	}
	if c.LoadWorkers < 1 {
		return fmt.Errorf("LOAD_WORKERS must be at least 1, got %d", c.LoadWorkers)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps LogLevel to a slog.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown LOG_LEVEL %q", c.LogLevel)
	}
}

// Package config loads the engine's configuration, generalizing the
// teacher's env-var-only internal/infrastructure/config.Load: a YAML file
// supplies the base configuration, and environment variables (the
// teacher's original mechanism) still override individual fields for
// container-friendly deployment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the engine's top-level configuration.
type Config struct {
	// ControlAPIAddr is the listen address for the control API server.
	ControlAPIAddr string `yaml:"control_api_addr"`
	// LogLevel is the minimum zerolog level name ("debug", "info", ...).
	// LogVerbose, when set, takes precedence and selects debug.
	LogLevel string `yaml:"log_level"`
	// LogVerbose mirrors the teacher's console logger verbose flag.
	LogVerbose bool `yaml:"log_verbose"`
	// DatabaseDSN, if set, switches run-history persistence from NopStore
	// to a Postgres-backed Store.
	DatabaseDSN string `yaml:"database_dsn"`
	// ThreadPoolSize is the worker pool's target size.
	ThreadPoolSize int `yaml:"thread_pool_size"`
	// EventPoolCapacity bounds the event pool's free lists.
	EventPoolCapacity int `yaml:"event_pool_capacity"`
	// JWTSecret signs and verifies control API bearer tokens.
	JWTSecret string `yaml:"jwt_secret"`
}

// Default returns a Config with the engine's baseline defaults.
func Default() Config {
	return Config{
		ControlAPIAddr:    ":8080",
		LogLevel:          "info",
		ThreadPoolSize:    8,
		EventPoolCapacity: 64,
	}
}

// Load reads path as YAML into Default(), then applies environment
// variable overrides, matching the teacher's getEnv fallback pattern
// field-for-field.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("gaflow/config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("gaflow/config: parsing %s: %w", path, err)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.ControlAPIAddr = getEnv("GAFLOW_CONTROL_API_ADDR", cfg.ControlAPIAddr)
	cfg.LogLevel = getEnv("GAFLOW_LOG_LEVEL", cfg.LogLevel)
	cfg.DatabaseDSN = getEnv("GAFLOW_DATABASE_DSN", cfg.DatabaseDSN)
	cfg.JWTSecret = getEnv("GAFLOW_JWT_SECRET", cfg.JWTSecret)
	if v, ok := os.LookupEnv("GAFLOW_THREAD_POOL_SIZE"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ThreadPoolSize = n
		}
	}
	if v, ok := os.LookupEnv("GAFLOW_LOG_VERBOSE"); ok {
		cfg.LogVerbose = v == "1" || v == "true"
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

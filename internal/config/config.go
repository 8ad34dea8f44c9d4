// Package config loads runtime settings from the environment and the model
// registry from app_config.json.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config holds all application configuration
type Config struct {
	Store  StoreConfig
	Log    LogConfig
	LLM    LLMConfig
	Sheets SheetsConfig
}

// StoreConfig selects the transaction store.
type StoreConfig struct {
	Driver string
	DBPath string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string
}

// LLMConfig holds model selection and call deadlines.
type LLMConfig struct {
	// Model overrides the registry's current model when set.
	Model         string
	AppConfigPath string
	HostedTimeout time.Duration
	LocalTimeout  time.Duration
	ProbeTimeout  time.Duration
}

// SheetsConfig controls the spreadsheet mirror.
type SheetsConfig struct {
	Enabled            bool
	Path               string
	GCSBucket          string
	GCSObject          string
	// GCSCredentialsFile is a service account key; empty uses Application
	// Default Credentials.
	GCSCredentialsFile string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Store: StoreConfig{
			Driver: strings.ToLower(getEnv("ASSISTANT_STORE", StoreSQLite)),
			DBPath: getEnv("ASSISTANT_DB_PATH", "expense_tracker.db"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		LLM: LLMConfig{
			Model:         getEnv("LLM_MODEL", ""),
			AppConfigPath: getEnv("APP_CONFIG_PATH", "app_config.json"),
			HostedTimeout: getEnvAsDuration("LLM_HOSTED_TIMEOUT", 5*time.Second),
			LocalTimeout:  getEnvAsDuration("LLM_LOCAL_TIMEOUT", 15*time.Second),
			ProbeTimeout:  getEnvAsDuration("LLM_PROBE_TIMEOUT", 3*time.Second),
		},
		Sheets: SheetsConfig{
			Enabled:            getEnvAsBool("SHEETS_ENABLED", false),
			Path:               getEnv("SHEETS_PATH", "expense_tracker.xlsx"),
			GCSBucket:          getEnv("SHEETS_GCS_BUCKET", ""),
			GCSObject:          getEnv("SHEETS_GCS_OBJECT", "expense_tracker.xlsx"),
			GCSCredentialsFile: getEnv("SHEETS_GCS_CREDENTIALS", ""),
		},
	}
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreSQLite:
		if c.Store.DBPath == "" {
			return fmt.Errorf("ASSISTANT_DB_PATH is required for the sqlite store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown ASSISTANT_STORE %q (want %s or %s)", c.Store.Driver, StoreSQLite, StoreMemory)
	}

	for name, d := range map[string]time.Duration{
		"LLM_HOSTED_TIMEOUT": c.LLM.HostedTimeout,
		"LLM_LOCAL_TIMEOUT":  c.LLM.LocalTimeout,
		"LLM_PROBE_TIMEOUT":  c.LLM.ProbeTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}

	if c.Sheets.Enabled && c.Sheets.Path == "" {
		return fmt.Errorf("SHEETS_PATH is required when SHEETS_ENABLED is set")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

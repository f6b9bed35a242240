// Package config loads server and CLI settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/stevemurr/simple-settings-store/logging"
)

// DisabledBackend turns the sync area off when used as SYNC_BACKEND.
const DisabledBackend = "none"

// Config holds the process configuration.
type Config struct {
	Host           string
	Port           string
	DataDir        string
	Backend        string
	SyncBackend    string
	AllowedOrigins []string
	LogLevel       zerolog.Level
	LogFormat      logging.Format
	SchemaFile     string
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}

// SyncEnabled reports whether the sync area has a backend.
func (c Config) SyncEnabled() bool {
	return c.SyncBackend != DisabledBackend
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Load reads envFiles (missing files are skipped; variables already set
// win) and builds a Config from the environment.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	backend := env("STORE_BACKEND", "json")
	cfg := Config{
		Host:        env("HOST", "0.0.0.0"),
		Port:        env("PORT", "8080"),
		DataDir:     env("DATA_DIR", "./data"),
		Backend:     backend,
		SyncBackend: env("SYNC_BACKEND", backend),
		SchemaFile:  os.Getenv("SCHEMA_FILE"),
	}
	for _, o := range strings.Split(env("ALLOWED_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	var err error
	if cfg.LogLevel, err = logging.ParseLevel(os.Getenv("LOG_LEVEL")); err != nil {
		return Config{}, fmt.Errorf("config: LOG_LEVEL: %w", err)
	}
	if cfg.LogFormat, err = logging.ParseFormat(os.Getenv("LOG_FORMAT")); err != nil {
		return Config{}, fmt.Errorf("config: LOG_FORMAT: %w", err)
	}
	return cfg, nil
}

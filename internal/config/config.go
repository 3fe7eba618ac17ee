package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }

// LoadConfig reads an optional dotenv file and then the process environment.
// An empty envFile means ".env" in the working directory.
func LoadConfig(envFile ...string) (*Config, error) {
	if err := godotenv.Load(envFile...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load dotenv: %w", err)
		}
		slog.Debug("no .env file found, using process environment")
	}

	cfg, err := Parse()
	if err != nil {
		return nil, err
	}

	for _, dir := range []string{cfg.DataDir, cfg.CacheDir, filepath.Join(cfg.CacheDir, "tmp"), cfg.SoundsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return cfg, nil
}

// Parse builds a Config from the environment without touching the filesystem.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(cfg.DataDir, "cache")
	}
	if cfg.StateFile == "" {
		cfg.StateFile = filepath.Join(cfg.DataDir, "guildMap.json")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DiscordToken == "" {
		return ErrConfig("DISCORD_TOKEN required")
	}
	switch c.StateBackend {
	case StateBackendJSON, StateBackendSQLite:
	default:
		return ErrConfig(fmt.Sprintf("STATE_BACKEND must be %q or %q, got %q",
			StateBackendJSON, StateBackendSQLite, c.StateBackend))
	}
	if c.CacheLimitBytes < 0 {
		return ErrConfig("CACHE_LIMIT must not be negative")
	}
	if c.FeedbackPerSecond <= 0 {
		return ErrConfig("FEEDBACK_PER_SECOND must be positive")
	}
	if c.JoinTimeout <= 0 {
		return ErrConfig("JOIN_TIMEOUT must be positive")
	}
	return nil
}

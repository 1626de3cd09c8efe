package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/sethvargo/go-envconfig"
)

const configFileName = "config.yaml"

// config is resolved in three layers: code defaults, then the optional
// ~/.campushub/config.yaml, then CAMPUSHUB_* environment variables.
type config struct {
	BaseURL         string        `yaml:"base_url" env:"CAMPUSHUB_BASE_URL"`
	Timeout         time.Duration `yaml:"timeout" env:"CAMPUSHUB_TIMEOUT"`
	PollInterval    time.Duration `yaml:"poll_interval" env:"CAMPUSHUB_POLL_INTERVAL"`
	LogLevel        string        `yaml:"log_level" env:"CAMPUSHUB_LOG_LEVEL"`
	CredentialsPath string        `yaml:"credentials_path" env:"CAMPUSHUB_CREDENTIALS"`
}

func defaultConfig() config {
	return config{
		Timeout:      15 * time.Second,
		PollInterval: 30 * time.Second,
		LogLevel:     "warn",
	}
}

// configDir returns ~/.campushub.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ".campushub"), nil
}

func loadConfig(ctx context.Context) (config, error) {
	cfg := defaultConfig()

	dir, err := configDir()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(filepath.Join(dir, configFileName))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", configFileName, err)
		}
	case !os.IsNotExist(err):
		return cfg, fmt.Errorf("read %s: %w", configFileName, err)
	}

	// Env overrides whatever the file set.
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return cfg, fmt.Errorf("process environment: %w", err)
	}

	if cfg.CredentialsPath == "" {
		cfg.CredentialsPath = filepath.Join(dir, "credentials.json")
	}
	return cfg, nil
}

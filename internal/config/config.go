package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/sethvargo/go-envconfig"
)

// Config represents the global ~/.courier/config.toml. Environment
// variables override file values.
type Config struct {
	DefaultSession string `toml:"default_session" env:"COURIER_SESSION"`
	UserID         string `toml:"user_id" env:"COURIER_USER_ID"`
	RemoteBaseURL  string `toml:"remote_base_url" env:"COURIER_REMOTE_URL"`
}

// Load reads config from the given path and applies environment
// overrides. Returns an error if the file is missing.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, fmt.Errorf("parsing env vars: %w", err)
	}
	return &cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

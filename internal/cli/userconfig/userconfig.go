// Package userconfig keeps per-user client state under ~/.config/quickcred.
package userconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	configDirName  = "quickcred"
	configFileName = "config.json"
)

// UserConfig is the contents of ~/.config/quickcred/config.json
type UserConfig struct {
	// SelectedServer is the origin commands talk to when no --server is given
	SelectedServer string    `json:"selected_server,omitempty"`
	SelectedAt     time.Time `json:"selected_at,omitzero"`
}

// Dir returns the directory holding all per-user client state
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".config", configDirName), nil
}

// Path returns the user config file path
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Load reads the user config. A missing file is an empty config.
func Load() (*UserConfig, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	var cfg UserConfig
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user config file: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config file: %w", err)
	}
	return &cfg, nil
}

// Update loads the config, applies fn and writes the result atomically
func Update(fn func(cfg *UserConfig)) error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	fn(cfg)

	path, err := Path()
	if err != nil {
		return err
	}
	return writeAtomic(path, cfg)
}

// SelectServer remembers origin as the default server
func SelectServer(origin string) error {
	return Update(func(cfg *UserConfig) {
		cfg.SelectedServer = origin
		cfg.SelectedAt = time.Now().UTC()
	})
}

// ForgetServer drops the remembered server
func ForgetServer() error {
	return Update(func(cfg *UserConfig) {
		cfg.SelectedServer = ""
		cfg.SelectedAt = time.Time{}
	})
}

// SelectedServer returns the remembered server origin, or "" when none is set
func SelectedServer() (string, error) {
	cfg, err := Load()
	if err != nil {
		return "", err
	}
	return cfg.SelectedServer, nil
}

// writeAtomic replaces path so readers never see a half-written file
func writeAtomic(path string, cfg *UserConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, configFileName+".*")
	if err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write user config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace user config file: %w", err)
	}
	return nil
}

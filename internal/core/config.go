package core

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config stores the user identity and adapter endpoints.
type Config struct {
	Version int    `json:"version"`
	UserID  string `json:"user_id"`
	Name    string `json:"name,omitempty"`
	DBPath  string `json:"db_path"`
	FeedURL string `json:"feed_url,omitempty"`
	TeamID  string `json:"team_id,omitempty"`
}

func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(home, ".config", "weave")
	return filepath.Join(configDir, "weave-config.json"), nil
}

func ensureConfigDir() (string, error) {
	path, err := configPath()
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return path, nil
}

// ReadConfig reads the config file if present. Returns nil without error
// when no config exists yet.
func ReadConfig() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

// WriteConfig writes the config to disk, creating the directory on first
// use.
func WriteConfig(config Config) error {
	path, err := ensureConfigDir()
	if err != nil {
		return err
	}
	if config.Version == 0 {
		config.Version = 1
	}
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

// DefaultDBPath is where the message store lives when the config does not
// override it.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "weave", "weave.db"), nil
}

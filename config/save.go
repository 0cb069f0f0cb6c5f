package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultConfigPath is the default path for the config file
var defaultConfigPath = "config/config.json"

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return defaultConfigPath
}

// SetConfigPath changes the path used by GetConfigPath when CONFIG_PATH is unset
func SetConfigPath(path string) {
	if path != "" {
		defaultConfigPath = path
	}
}

// SaveConfig saves the configuration to a file, in YAML when the
// extension asks for it and JSON otherwise
func SaveConfig(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
	default:
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

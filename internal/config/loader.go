package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory and the XDG config dir.
const DefaultConfigFile = "railcrack.yaml"

// EnvFileName is the dotenv file loaded from the XDG config dir.
const EnvFileName = "config.env"

// ErrConfigNotFound is returned when an explicitly requested file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Load builds a Config from defaults, the first config file found and the
// environment, in that order of precedence (environment wins).
// An empty path means "search the default locations"; a missing file in that
// case is not an error.
func Load(path string) (*Config, error) {
	LoadEnvFile()

	cfg := NewConfig()

	found := FindConfigFile(path)
	if path != "" && found == "" {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}
	if found != "" {
		if err := LoadFile(found, cfg); err != nil {
			return nil, err
		}
	}

	ApplyEnv(cfg)
	return cfg, nil
}

// LoadFile decodes a YAML file over cfg. Keys missing from the file keep
// their current values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path) //nolint:gosec // operator supplied path
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// FindConfigFile returns the config file to use:
//  1. configPath, if set and it exists
//  2. railcrack.yaml in the working directory
//  3. railcrack.yaml in the XDG config directory
//
// It returns "" when nothing is found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		p := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	p := filepath.Join(XDGConfigDir(), DefaultConfigFile)
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}

// LoadEnvFile loads variables from the dotenv file in the XDG config dir.
// Errors are ignored since the file is optional. Variables already set in the
// environment are not overridden.
func LoadEnvFile() {
	_ = godotenv.Load(filepath.Join(XDGConfigDir(), EnvFileName))
}

// ApplyEnv overrides cfg from environment variables.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("ONNXRUNTIME_LIB"); v != "" {
		cfg.Model.RuntimeLibrary = v
	}
	if v := os.Getenv("RAILCRACK_MODEL_VARIANT"); v != "" {
		cfg.Model.Variant = v
	}
	if v := os.Getenv("RAILCRACK_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

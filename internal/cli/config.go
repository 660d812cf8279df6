package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default name of the config file
const DefaultConfigFile = "config.yaml"

// Config represents the configuration for the LabHub CLI. It carries the
// gateway endpoint and the cached credentials from the last login.
type Config struct {
	// Version of the configuration file format
	Version string `yaml:"version"`
	// ServerURL is the URL and port of the LabHub gateway
	ServerURL string `yaml:"server_url"`
	// Email is the account used for the last login
	Email string `yaml:"email"`
	// AccessToken is the bearer token issued at login
	AccessToken string `yaml:"access_token"`
	// ActiveSession is the uuid of the lab session started from this CLI
	ActiveSession string `yaml:"active_session"`
	// ActiveCVE is the CVE the active session belongs to
	ActiveCVE string `yaml:"active_cve"`
}

var config *Config

// GetDefaultConfigPath returns the default path for the config file,
// using the OS-specific config directory (e.g. ~/.config/labhub on Linux).
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "labhub", DefaultConfigFile), nil
}

// LoadConfig loads the configuration from the specified file. If no file is
// specified, it uses the default config location.
func LoadConfig(file string) error {
	if file == "" {
		var err error
		file, err = GetDefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get default config path: %w", err)
		}
	}

	yamlStr, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("unable to read config file: %w", err)
	}

	var c Config
	if err = yaml.Unmarshal(yamlStr, &c); err != nil {
		return fmt.Errorf("unable to parse config file: %w", err)
	}

	if c.ServerURL == "" {
		return errors.New("server_url is required")
	}
	c.ServerURL = normalizeServerURL(c.ServerURL)

	config = &c
	return nil
}

// GetConfig returns the current configuration.
func GetConfig() *Config {
	return config
}

// WriteConfig writes the configuration to the specified file. If no file is
// specified, it uses the default config location.
func (cfg *Config) WriteConfig(file string) error {
	if file == "" {
		var err error
		file, err = GetDefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get default config path: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(file), os.ModePerm); err != nil {
		return fmt.Errorf("unable to create config directory: %w", err)
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("unable to encode config: %w", err)
	}
	if err := os.WriteFile(file, out, 0600); err != nil {
		return fmt.Errorf("unable to write config file: %w", err)
	}
	return nil
}

// normalizeServerURL ensures the server URL carries a scheme.
func normalizeServerURL(serverURL string) string {
	if strings.HasPrefix(serverURL, "http://") || strings.HasPrefix(serverURL, "https://") {
		return serverURL
	}
	return "http://" + serverURL
}

// requireConfig loads the config file and fails with guidance when absent.
func requireConfig() (*Config, error) {
	if config == nil {
		if err := LoadConfig(configFile); err != nil {
			return nil, fmt.Errorf("no configuration loaded: %w", err)
		}
	}
	return config, nil
}

// requireLogin returns the config and fails when no token is cached.
func requireLogin() (*Config, error) {
	cfg, err := requireConfig()
	if err != nil {
		return nil, err
	}
	if cfg.AccessToken == "" {
		return nil, errors.New("not logged in. Run: labhub login --email <email>")
	}
	return cfg, nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// ServerRoot is the nginx configuration directory.
	ServerRoot string `yaml:"server_root"`
	// RootFile is the entry configuration file, relative to ServerRoot.
	RootFile string `yaml:"root_file"`
	// NginxBinary is the nginx executable to probe and reload.
	NginxBinary string `yaml:"nginx_binary"`
	// WorkDir holds checkpoints and installed ssl option files.
	WorkDir string `yaml:"work_dir"`
	// SSLPort is the port injected listen directives bind for tls.
	SSLPort string `yaml:"ssl_port"`
	// DHParamPath, when set, is written into deployed blocks as
	// ssl_dhparam.
	DHParamPath string `yaml:"dhparam_path,omitempty"`
}

// configDir is the default config directory
const configDir = ".config/certnginx"
const configFile = "config.yaml"

// New creates a new Config with default values
func New() *Config {
	return &Config{
		ServerRoot:  "/etc/nginx",
		RootFile:    "nginx.conf",
		NginxBinary: "nginx",
		WorkDir:     "/var/lib/certnginx",
		SSLPort:     "443",
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, configDir), nil
}

// ConfigPath returns the config file path
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads the config from disk
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads a config from an explicit path. A missing file yields
// the defaults.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return New(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := New()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// RootFilePath returns the absolute path of the entry configuration file.
func (c *Config) RootFilePath() string {
	if filepath.IsAbs(c.RootFile) {
		return c.RootFile
	}
	return filepath.Join(c.ServerRoot, c.RootFile)
}

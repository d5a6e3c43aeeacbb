// Package config loads the optional YAML configuration file controlling
// storage location, logging, and the authentication tunables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every user-tunable knob. All fields have working defaults;
// the file itself is optional.
type Config struct {
	// DataDir is the secret-store root. Defaults to ~/.ecobee.
	DataDir string `yaml:"data-dir"`

	// Debug switches logging to debug level.
	Debug bool `yaml:"debug"`

	// LoggingToFile routes logs into a rotating file under DataDir/logs
	// instead of stderr.
	LoggingToFile bool `yaml:"logging-to-file"`

	// RefreshMarginSeconds is subtracted from the token expiry when
	// deciding whether a refresh is due. Defaults to 60.
	RefreshMarginSeconds int `yaml:"refresh-margin-seconds"`

	// ReplayTimeoutSeconds bounds a headless session replay. Defaults to 20.
	ReplayTimeoutSeconds int `yaml:"replay-timeout-seconds"`

	// LoginTimeoutSeconds bounds a headless credential login. Defaults to 45.
	LoginTimeoutSeconds int `yaml:"login-timeout-seconds"`

	// APIBaseURL overrides the thermostat API endpoint.
	APIBaseURL string `yaml:"api-base-url"`

	// PortalURL overrides the consumer portal entry point.
	PortalURL string `yaml:"portal-url"`

	// ChromePath points at a specific browser binary instead of probing
	// the PATH.
	ChromePath string `yaml:"chrome-path"`
}

const (
	defaultAPIBaseURL    = "https://api.ecobee.com"
	defaultRefreshMargin = 60
	defaultReplayTimeout = 20
	defaultLoginTimeout  = 45
)

// DefaultPath returns the conventional config location, ~/.ecobee/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".ecobee", "config.yaml"), nil
}

// LoadConfig reads the YAML file at path. A missing file yields defaults; a
// present but unparseable file is an error so misconfiguration never fails
// silently.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.DataDir = filepath.Join(home, ".ecobee")
		} else {
			c.DataDir = ".ecobee"
		}
	}
	c.DataDir = expandHome(c.DataDir)
	if c.RefreshMarginSeconds <= 0 {
		c.RefreshMarginSeconds = defaultRefreshMargin
	}
	if c.ReplayTimeoutSeconds <= 0 {
		c.ReplayTimeoutSeconds = defaultReplayTimeout
	}
	if c.LoginTimeoutSeconds <= 0 {
		c.LoginTimeoutSeconds = defaultLoginTimeout
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = defaultAPIBaseURL
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
}

// RefreshMargin returns the freshness margin as a duration.
func (c *Config) RefreshMargin() time.Duration {
	return time.Duration(c.RefreshMarginSeconds) * time.Second
}

// ReplayTimeout returns the headless replay bound as a duration.
func (c *Config) ReplayTimeout() time.Duration {
	return time.Duration(c.ReplayTimeoutSeconds) * time.Second
}

// LoginTimeout returns the headless credential login bound as a duration.
func (c *Config) LoginTimeout() time.Duration {
	return time.Duration(c.LoginTimeoutSeconds) * time.Second
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	remainder := strings.TrimLeft(strings.TrimPrefix(path, "~"), "/\\")
	if remainder == "" {
		return filepath.Clean(home)
	}
	return filepath.Join(home, remainder)
}

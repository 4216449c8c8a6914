package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/obentoo/appcheck/internal/tracker"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidDuration = errors.New("invalid duration")
	ErrInvalidURL      = errors.New("storefront url is not set")
)

// Config represents the application configuration
type Config struct {
	Storefront StorefrontConfig `yaml:"storefront"`
	HTTP       HTTPConfig       `yaml:"http"`
	Data       DataConfig       `yaml:"data"`
}

// StorefrontConfig holds storefront page settings
type StorefrontConfig struct {
	URL      string `yaml:"url"`
	Language string `yaml:"language"`          // hl query parameter
	Country  string `yaml:"country,omitempty"` // gl query parameter
}

// HTTPConfig holds request settings. Durations use Go syntax ("30s", "1500ms").
type HTTPConfig struct {
	UserAgent string `yaml:"user_agent"`
	Timeout   string `yaml:"timeout"`
	Delay     string `yaml:"delay"`
}

// DataConfig holds local storage settings
type DataConfig struct {
	Dir string `yaml:"dir,omitempty"` // Defaults to $XDG_DATA_HOME/appcheck
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Storefront: StorefrontConfig{
			URL:      tracker.DefaultStorefrontURL,
			Language: tracker.DefaultLanguage,
		},
		HTTP: HTTPConfig{
			UserAgent: tracker.DefaultUserAgent,
			Timeout:   tracker.DefaultTimeout.String(),
			Delay:     tracker.DefaultDelay.String(),
		},
	}
}

// DefaultConfigPath returns the default config file path (XDG standard)
// ~/.config/appcheck/config.yaml
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	// Check XDG_CONFIG_HOME first, fallback to ~/.config
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}

	return filepath.Join(xdgConfig, "appcheck", "config.yaml"), nil
}

// LegacyDataDirName is the data directory used by earlier releases,
// always under ~/.local/share
const LegacyDataDirName = "appUpdateChecker"

// DefaultDataDir returns the default data directory
// ~/.local/share/appcheck
//
// When that directory does not exist yet but an earlier release left a
// database in ~/.local/share/appUpdateChecker, the legacy directory is used.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	xdgData := os.Getenv("XDG_DATA_HOME")
	if xdgData == "" {
		xdgData = filepath.Join(home, ".local", "share")
	}

	dir := filepath.Join(xdgData, "appcheck")
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		legacy := filepath.Join(home, ".local", "share", LegacyDataDirName)
		if _, err := os.Stat(filepath.Join(legacy, tracker.DatabaseFileName)); err == nil {
			return legacy, nil
		}
	}
	return dir, nil
}

// Load reads configuration from the default config file
func Load() (*Config, error) {
	configPath, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom reads configuration from a specific file path.
// A missing file is created with the default configuration.
// Fields left empty in the file keep their default values.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			if saveErr := cfg.SaveTo(path); saveErr != nil {
				return nil, saveErr
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// SaveTo writes configuration to a specific file path
func (c *Config) SaveTo(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks that durations parse and the storefront URL is set
func (c *Config) Validate() error {
	if c.Storefront.URL == "" {
		return ErrInvalidURL
	}
	if _, err := parseDuration("http.timeout", c.HTTP.Timeout); err != nil {
		return err
	}
	if _, err := parseDuration("http.delay", c.HTTP.Delay); err != nil {
		return err
	}
	return nil
}

// GetDataDir returns the data directory with ~ expanded
func (c *Config) GetDataDir() (string, error) {
	if c.Data.Dir == "" {
		return DefaultDataDir()
	}

	path := c.Data.Dir
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[1:])
	}
	return path, nil
}

// FetchConfig converts the HTTP and storefront settings for the fetcher
func (c *Config) FetchConfig() (tracker.FetchConfig, error) {
	timeout, err := parseDuration("http.timeout", c.HTTP.Timeout)
	if err != nil {
		return tracker.FetchConfig{}, err
	}
	delay, err := parseDuration("http.delay", c.HTTP.Delay)
	if err != nil {
		return tracker.FetchConfig{}, err
	}

	return tracker.FetchConfig{
		BaseURL:   c.Storefront.URL,
		UserAgent: c.HTTP.UserAgent,
		Timeout:   timeout,
		Delay:     delay,
		Language:  c.Storefront.Language,
		Country:   c.Storefront.Country,
	}, nil
}

// parseDuration parses a duration field; empty means zero
func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidDuration, field, value)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative", ErrInvalidDuration, field)
	}
	return d, nil
}

// Package config loads tempo's settings: built-in defaults, then the YAML
// file, then TEMPO_* environment variables. Command-line flags are applied
// last by the caller.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "TEMPO_"

// API holds the backend settings
type API struct {
	BaseURL       string        `yaml:"base_url"`
	Timeout       time.Duration `yaml:"timeout"`
	WeeklyTimeout time.Duration `yaml:"weekly_timeout"`
	PageSize      int           `yaml:"page_size"`
}

// Config is the full configuration
type Config struct {
	API           API    `yaml:"api"`
	EmployeeID    string `yaml:"employee_id"`
	Department    string `yaml:"department"`
	DataDir       string `yaml:"data_dir"`
	LogFile       string `yaml:"log_file"`
	LogLevel      string `yaml:"log_level"`
	Theme         string `yaml:"theme"`
	Notifications bool   `yaml:"notifications"`
	MetricsAddr   string `yaml:"metrics_addr"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		API: API{
			BaseURL:       "http://localhost:8080/api",
			Timeout:       30 * time.Second,
			WeeklyTimeout: 12 * time.Second,
			PageSize:      100,
		},
		DataDir:       defaultDataDir(),
		LogLevel:      "info",
		Theme:         "nord",
		Notifications: true,
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/tempo/config.yaml
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "tempo", "config.yaml")
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "tempo")
}

// Load reads path over the defaults and applies the environment. A missing
// file is not an error; an empty path means DefaultPath.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from TEMPO_* variables found through lookup
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	str("API_URL", &c.API.BaseURL)
	str("EMPLOYEE_ID", &c.EmployeeID)
	str("DEPARTMENT", &c.Department)
	str("DATA_DIR", &c.DataDir)
	str("LOG_FILE", &c.LogFile)
	str("LOG_LEVEL", &c.LogLevel)
	str("THEME", &c.Theme)
	str("METRICS_ADDR", &c.MetricsAddr)

	durations := map[string]*time.Duration{
		"API_TIMEOUT":    &c.API.Timeout,
		"WEEKLY_TIMEOUT": &c.API.WeeklyTimeout,
	}
	for name, dst := range durations {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = d
	}

	if v, ok := lookup(EnvPrefix + "PAGE_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sPAGE_SIZE: %w", EnvPrefix, err)
		}
		c.API.PageSize = n
	}
	if v, ok := lookup(EnvPrefix + "NOTIFICATIONS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sNOTIFICATIONS: %w", EnvPrefix, err)
		}
		c.Notifications = b
	}
	return nil
}

// Validate checks the values a run cannot do without
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url %q is not an http(s) URL", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.API.WeeklyTimeout <= 0 {
		return fmt.Errorf("api.weekly_timeout must be positive")
	}
	if c.API.PageSize <= 0 {
		return fmt.Errorf("api.page_size must be positive")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}
	return nil
}

// DBPath is the sqlite file inside the data directory
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "tempo.db")
}

// LockPath is the single-instance lock inside the data directory
func (c *Config) LockPath() string {
	return filepath.Join(c.DataDir, "tempo.lock")
}

// LogPath is where logs go: log_file, or tempo.log in the data directory
func (c *Config) LogPath() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return filepath.Join(c.DataDir, "tempo.log")
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes the environment variables that override the file.
const EnvPrefix = "LOCKBOX_"

// Config holds CLI configuration loaded from ~/.lockbox/config.yaml.
type Config struct {
	Backend        string `yaml:"backend"`
	Namespace      string `yaml:"namespace"`
	Account        string `yaml:"account"`
	AccessGroup    string `yaml:"access_group"`
	Accessibility  string `yaml:"accessibility"`
	Synchronizable bool   `yaml:"synchronizable"`
	LogLevel       string `yaml:"log_level"`
	LogFormat      string `yaml:"log_format"`
	// Options is handed to the backend as its configuration map.
	Options map[string]interface{} `yaml:"options"`
}

// DefaultPath returns the default config file path: ~/.lockbox/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".lockbox", "config.yaml")
}

// Load reads a YAML config file from path. If the file does not exist,
// it returns an empty Config and no error. An empty or all-comment file
// also returns an empty Config with no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields with the LOCKBOX_* environment variables that
// are set.
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		"BACKEND":       &c.Backend,
		"NAMESPACE":     &c.Namespace,
		"ACCOUNT":       &c.Account,
		"ACCESS_GROUP":  &c.AccessGroup,
		"ACCESSIBILITY": &c.Accessibility,
		"LOG_LEVEL":     &c.LogLevel,
		"LOG_FORMAT":    &c.LogFormat,
	}
	for name, field := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*field = v
		}
	}
	if v, ok := os.LookupEnv(EnvPrefix + "SYNCHRONIZABLE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sSYNCHRONIZABLE: %w", EnvPrefix, err)
		}
		c.Synchronizable = b
	}
	return nil
}

// BackendOptions returns Options with scalar values rendered as strings,
// the form backends read their settings in.
func (c *Config) BackendOptions() map[string]interface{} {
	opts := make(map[string]interface{}, len(c.Options))
	for k, v := range c.Options {
		switch v := v.(type) {
		case string:
			opts[k] = v
		case bool, int, int64, uint64, float64:
			opts[k] = fmt.Sprint(v)
		default:
			opts[k] = v
		}
	}
	return opts
}

// Package config provides tracker configuration loading.
//
// Configuration is resolved in order (later overrides earlier):
//  1. Built-in defaults
//  2. Config file (tracker.yaml, or the path given with --config)
//  3. Environment variables (TRACKER_*)
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the default config file name.
const ConfigFileName = "tracker.yaml"

// Config is the top-level tracker configuration.
type Config struct {
	// DataDir holds the CSV entity tables.
	DataDir string `yaml:"data_dir"`

	DB     DBConfig     `yaml:"db"`
	Server ServerConfig `yaml:"server"`
	Notify NotifyConfig `yaml:"notify"`
}

// DBConfig configures the notification/audit SQLite database.
type DBConfig struct {
	// Path of the SQLite file. Relative paths resolve against the
	// working directory.
	Path string `yaml:"path"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `yaml:"addr"`
}

// NotifyConfig configures the notification engine.
type NotifyConfig struct {
	// ScanInterval is how often the background pass re-derives overdue
	// tasks. Zero disables the background scanner; poll-time derivation
	// still runs.
	ScanInterval time.Duration `yaml:"scan_interval"`

	// Buffer is the per-subscriber channel buffer for live streaming.
	Buffer int `yaml:"buffer"`
}

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		DataDir: "data",
		DB:      DBConfig{Path: "data/tracker.db"},
		Server:  ServerConfig{Addr: ":8080"},
		Notify: NotifyConfig{
			ScanInterval: time.Minute,
			Buffer:       64,
		},
	}
}

// Load reads configuration from the given file path, merged over the
// defaults. An empty path loads ConfigFileName if present; a missing
// default file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = ConfigFileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from TRACKER_* environment variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("TRACKER_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("TRACKER_DB_PATH"); v != "" {
		cfg.DB.Path = v
	}
	if v := os.Getenv("TRACKER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("TRACKER_SCAN_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Notify.ScanInterval = d
		}
	}
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("config: data_dir must not be empty")
	}
	if c.DB.Path == "" {
		return fmt.Errorf("config: db.path must not be empty")
	}
	if c.Notify.ScanInterval < 0 {
		return fmt.Errorf("config: notify.scan_interval must not be negative")
	}
	if c.Notify.Buffer < 0 {
		return fmt.Errorf("config: notify.buffer must not be negative")
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = 1

// Config is the root configuration for tasktree.
type Config struct {
	Version         int    `yaml:"version"`
	DataDir         string `yaml:"data_dir"`                    // Where documents live by default
	DefaultFile     string `yaml:"default_file,omitempty"`      // Document used when --file is not given
	DefaultTaskName string `yaml:"default_task_name,omitempty"` // Name for tasks created without one
	Format          string `yaml:"format"`                      // json or yaml, for paths without an extension
	Log             Log    `yaml:"log"`
}

// Log controls the zap logger.
type Log struct {
	Level       string `yaml:"level"`          // debug, info, warn, error
	Development bool   `yaml:"development"`    // Console encoder with colours instead of JSON
	File        string `yaml:"file,omitempty"` // Log destination; empty means stderr (CLI) or nowhere (TUI)
}

// DefaultConfig returns the config used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Version:         CurrentVersion,
		DataDir:         "data",
		DefaultTaskName: "New task",
		Format:          "json",
		Log: Log{
			Level: "info",
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/tasktree/config.yaml or the platform
// equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".tasktree", "config.yaml")
	}
	return filepath.Join(dir, "tasktree", "config.yaml")
}

// Load reads and parses the config file at the given path. Fields missing
// from the file keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields DefaultConfig.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return cfg, err
}

// Save writes the config to the given path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// DocumentPath returns the document to open when none is named explicitly.
func (c *Config) DocumentPath() string {
	if c.DefaultFile != "" {
		return c.DefaultFile
	}
	ext := ".json"
	if c.Format == "yaml" {
		ext = ".yaml"
	}
	return filepath.Join(c.DataDir, "tasks"+ext)
}

// ResolvePath places a bare file name inside DataDir. Paths with a directory
// component are returned unchanged.
func (c *Config) ResolvePath(name string) string {
	if name == "" {
		return c.DocumentPath()
	}
	if filepath.IsAbs(name) || strings.ContainsRune(name, filepath.Separator) || strings.ContainsRune(name, '/') {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

func (c *Config) validate() error {
	if c.Version == 0 {
		c.Version = CurrentVersion
	}
	if c.Version != CurrentVersion {
		return fmt.Errorf("config version %d is not supported (want %d)", c.Version, CurrentVersion)
	}

	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	switch c.Format {
	case "":
		c.Format = "json"
	case "json", "yaml":
	default:
		return fmt.Errorf("format must be 'json' or 'yaml', got %q", c.Format)
	}

	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if strings.TrimSpace(c.DefaultTaskName) == "" {
		c.DefaultTaskName = DefaultConfig().DefaultTaskName
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

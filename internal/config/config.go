// Package config loads zroster settings from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names.
const (
	BackendSQLite = "sqlite"
	BackendVault  = "vault"
)

// Config holds runtime settings.
type Config struct {
	Backend       string        `yaml:"backend"`
	DataDir       string        `yaml:"data_dir"`
	GracePeriod   time.Duration `yaml:"grace_period"`
	LogLevel      string        `yaml:"log_level"`
	WatchExternal bool          `yaml:"watch_external"`
}

// Default returns the settings used when no file is present.
func Default() Config {
	return Config{
		Backend:       BackendSQLite,
		DataDir:       DataDir(),
		GracePeriod:   5 * time.Second,
		LogLevel:      "info",
		WatchExternal: true,
	}
}

// DataDir returns the default data directory for zroster.
func DataDir() string {
	if d := os.Getenv("XDG_DATA_HOME"); d != "" {
		return filepath.Join(d, "zroster")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".zroster"
	}
	return filepath.Join(home, ".local", "share", "zroster")
}

// Path returns the default config file path.
func Path() string {
	if d := os.Getenv("XDG_CONFIG_HOME"); d != "" {
		return filepath.Join(d, "zroster", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".zroster", "config.yaml")
	}
	return filepath.Join(home, ".config", "zroster", "config.yaml")
}

// Override adjusts a loaded config before it is validated. Command-line
// flags use it so they win over the file and the environment.
type Override func(*Config)

// Load reads path on top of the defaults, then applies environment
// overrides and finally overrides, in order. A missing file is not an
// error.
func Load(path string, overrides ...Override) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("load config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	cfg.applyEnv(os.LookupEnv)
	for _, o := range overrides {
		o(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("ZROSTER_BACKEND"); ok && v != "" {
		c.Backend = v
	}
	if v, ok := lookup("ZROSTER_DATA_DIR"); ok && v != "" {
		c.DataDir = v
	}
	if v, ok := lookup("ZROSTER_LOG_LEVEL"); ok && v != "" {
		c.LogLevel = v
	}
}

// Validate rejects settings zroster cannot run with.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendSQLite, BackendVault:
	default:
		return fmt.Errorf("config: unknown backend %q (want %s or %s)", c.Backend, BackendSQLite, BackendVault)
	}
	if c.DataDir == "" {
		return errors.New("config: data_dir is empty")
	}
	if c.GracePeriod < 0 {
		return fmt.Errorf("config: grace_period must be >= 0, got %s", c.GracePeriod)
	}
	return nil
}

// Save writes c to path, creating the directory if needed.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

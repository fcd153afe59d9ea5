package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// State store backends.
const (
	StateBackendFile      = "file"
	StateBackendEncrypted = "encrypted"
)

// Display backends.
const (
	DisplayBackendNative = "native"
	DisplayBackendSim    = "sim"
)

const (
	defaultConfigPath    = "~/.config/resmenu/config.toml"
	defaultDataDir       = "~/.resmenu"
	defaultLogPath       = "/var/tmp/resmenu.log"
	defaultLogLevel      = "info"
	defaultWatchInterval = 2 * time.Second
)

// Config is the resolved resmenu configuration. Paths are absolute.
type Config struct {
	DataDir        string
	StateBackend   string
	DisplayBackend string
	SimFixture     string
	LogPath        string
	LogLevel       string
	WatchInterval  time.Duration
}

// fileConfig mirrors the TOML layout.
type fileConfig struct {
	DataDir        string `toml:"data_dir"`
	StateBackend   string `toml:"state_backend"`
	DisplayBackend string `toml:"display_backend"`
	SimFixture     string `toml:"sim_fixture,omitempty"`
	LogPath        string `toml:"log_path"`
	LogLevel       string `toml:"log_level"`
	WatchInterval  string `toml:"watch_interval"`
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return defaultConfigPath
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir:        mustExpand(defaultDataDir),
		StateBackend:   StateBackendFile,
		DisplayBackend: DisplayBackendNative,
		LogPath:        defaultLogPath,
		LogLevel:       defaultLogLevel,
		WatchInterval:  defaultWatchInterval,
	}
}

// Load reads the config at path (or the default path when empty). A missing
// file yields defaults; empty fields fall back to their defaults.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw fileConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.DataDir); v != "" {
		if cfg.DataDir, err = expandPath(v); err != nil {
			return Config{}, fmt.Errorf("data_dir: %w", err)
		}
	}
	if v := strings.TrimSpace(raw.StateBackend); v != "" {
		cfg.StateBackend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.DisplayBackend); v != "" {
		cfg.DisplayBackend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.SimFixture); v != "" {
		if cfg.SimFixture, err = expandPath(v); err != nil {
			return Config{}, fmt.Errorf("sim_fixture: %w", err)
		}
	}
	if v := strings.TrimSpace(raw.LogPath); v != "" {
		cfg.LogPath = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.WatchInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("watch_interval: %w", err)
		}
		cfg.WatchInterval = d
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated fields and cross-field requirements.
func (c Config) Validate() error {
	switch c.StateBackend {
	case StateBackendFile, StateBackendEncrypted:
	default:
		return fmt.Errorf("state_backend: unknown backend %q (want %q or %q)",
			c.StateBackend, StateBackendFile, StateBackendEncrypted)
	}
	switch c.DisplayBackend {
	case DisplayBackendNative:
	case DisplayBackendSim:
		if c.SimFixture == "" {
			return fmt.Errorf("display_backend %q requires sim_fixture", DisplayBackendSim)
		}
	default:
		return fmt.Errorf("display_backend: unknown backend %q (want %q or %q)",
			c.DisplayBackend, DisplayBackendNative, DisplayBackendSim)
	}
	if c.WatchInterval <= 0 {
		return fmt.Errorf("watch_interval must be positive, got %s", c.WatchInterval)
	}
	return nil
}

// Save writes the config to path (or the default path), creating
// directories as needed.
func Save(path string, c Config) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	bytes, err := toml.Marshal(fileConfig{
		DataDir:        c.DataDir,
		StateBackend:   c.StateBackend,
		DisplayBackend: c.DisplayBackend,
		SimFixture:     c.SimFixture,
		LogPath:        c.LogPath,
		LogLevel:       c.LogLevel,
		WatchInterval:  c.WatchInterval.String(),
	})
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(resolved, bytes, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ResolvePath expands the config path, using the default when empty.
func ResolvePath(path string) (string, error) {
	return resolvePath(path)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}

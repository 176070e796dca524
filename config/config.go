package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"rp8000/midi"
	"rp8000/turntable"
)

// AppName names the config directory.
const AppName = "rp8000"

// DeviceConfig selects the turntable.
type DeviceConfig struct {
	Model       string        `yaml:"model"`
	Channel     int           `yaml:"channel"`
	PortTimeout time.Duration `yaml:"port_timeout"`
}

// ServerConfig configures the HTTP control surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"` // empty logs to stderr
}

// ThemeConfig selects the TUI palette.
type ThemeConfig struct {
	Palette string `yaml:"palette,omitempty"` // .gpl path, empty for the built-in palette
}

// Config is the main configuration structure
type Config struct {
	Device DeviceConfig `yaml:"device"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Theme  ThemeConfig  `yaml:"theme"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Model:       turntable.RP8000mk2.String(),
			Channel:     1,
			PortTimeout: midi.DefaultTimeout,
		},
		Server: ServerConfig{
			Addr: ":8088",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName), nil
}

// ConfigPath returns the full path to config.yaml
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config at path, or at ConfigPath when path is empty.
// A missing file yields defaults; fields absent from the file keep their
// default values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		p, err := ConfigPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the model, channel and log level.
func (c *Config) Validate() error {
	if _, err := turntable.ParseModel(c.Device.Model); err != nil {
		return err
	}
	if c.Device.Channel < turntable.MinChannel || c.Device.Channel > turntable.MaxChannel {
		return fmt.Errorf("%w: %d", turntable.ErrInvalidChannel, c.Device.Channel)
	}
	if c.Device.PortTimeout < 0 {
		return fmt.Errorf("port_timeout must not be negative, got %s", c.Device.PortTimeout)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

// DebugLogPath is where the TUI logs when no log file is configured.
func DebugLogPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "debug.log"), nil
}

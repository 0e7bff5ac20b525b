// Package config loads configuration for the mirroring agent.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	defaultListenAddr   = "0.0.0.0:8787"
	defaultControlAddr  = "127.0.0.1:8788"
	defaultDataDir      = "./data"
	defaultFFmpegPath   = "ffmpeg"
	defaultCapture      = "gdigrab"
	defaultFPS          = 30
	defaultBitrateKbps  = 6000
	defaultPollInterval = 500 * time.Millisecond
	defaultViewerPolicy = "replace"
)

// Config holds runtime configuration values.
type Config struct {
	ListenAddr            string        `yaml:"listen_addr" envconfig:"LISTEN_ADDR"`
	ControlAddr           string        `yaml:"control_addr" envconfig:"CONTROL_ADDR"`
	AuthToken             string        `yaml:"auth_token" envconfig:"AUTH_TOKEN"`
	DataDir               string        `yaml:"data_dir" envconfig:"DATA_DIR"`
	FFmpegPath            string        `yaml:"ffmpeg_path" envconfig:"FFMPEG_PATH"`
	CaptureDriver         string        `yaml:"capture_driver" envconfig:"CAPTURE_DRIVER"`
	FPS                   int           `yaml:"fps" envconfig:"FPS"`
	BitrateKbps           int           `yaml:"bitrate_kbps" envconfig:"BITRATE_KBPS"`
	MonitorIndex          int           `yaml:"monitor_index" envconfig:"MONITOR_INDEX"`
	DisplayRotation       int           `yaml:"display_rotation" envconfig:"DISPLAY_ROTATION"`
	ClipboardPollInterval time.Duration `yaml:"clipboard_poll_interval" envconfig:"CLIPBOARD_POLL_INTERVAL"`
	WakeOnStart           bool          `yaml:"wake_on_start" envconfig:"WAKE_ON_START"`
	VideoAutostart        bool          `yaml:"video_autostart" envconfig:"VIDEO_AUTOSTART"`
	ViewerPolicy          string        `yaml:"viewer_policy" envconfig:"VIEWER_POLICY"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddr:            defaultListenAddr,
		ControlAddr:           defaultControlAddr,
		DataDir:               defaultDataDir,
		FFmpegPath:            defaultFFmpegPath,
		CaptureDriver:         defaultCapture,
		FPS:                   defaultFPS,
		BitrateKbps:           defaultBitrateKbps,
		ClipboardPollInterval: defaultPollInterval,
		ViewerPolicy:          defaultViewerPolicy,
	}
}

// Load builds the configuration from defaults, the optional YAML file at path,
// the data directory .env file and environment variables, in increasing precedence.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if dir := strings.TrimSpace(os.Getenv("DATA_DIR")); dir != "" {
		cfg.DataDir = dir
	}
	if err := loadEnvFile(EnvPath(cfg)); err != nil {
		return Config{}, err
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("env config: %w", err)
	}
	cfg.CaptureDriver = normalizeCaptureDriver(cfg.CaptureDriver)
	cfg.ViewerPolicy = strings.ToLower(strings.TrimSpace(cfg.ViewerPolicy))
	cfg.AuthToken = strings.TrimSpace(cfg.AuthToken)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// EnvPath returns the .env file consulted for cfg.
func EnvPath(cfg Config) string {
	return filepath.Join(cfg.DataDir, ".env")
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return errors.New("LISTEN_ADDR is required")
	}
	if c.FPS <= 0 {
		return fmt.Errorf("FPS must be > 0")
	}
	if c.BitrateKbps <= 0 {
		return fmt.Errorf("BITRATE_KBPS must be > 0")
	}
	if c.DisplayRotation < 0 || c.DisplayRotation > 3 {
		return fmt.Errorf("DISPLAY_ROTATION must be 0-3")
	}
	if c.ClipboardPollInterval <= 0 {
		return fmt.Errorf("CLIPBOARD_POLL_INTERVAL must be > 0")
	}
	switch c.ViewerPolicy {
	case "reject", "replace":
	default:
		return fmt.Errorf("VIEWER_POLICY must be reject or replace")
	}
	return nil
}

// loadFile decodes a YAML file over cfg.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// loadEnvFile loads KEY=VALUE pairs from a .env file without overriding the environment.
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// normalizeCaptureDriver ensures a supported capture driver value.
func normalizeCaptureDriver(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "d3d11grab":
		return "d3d11grab"
	case "ddagrab":
		return "ddagrab"
	default:
		return "gdigrab"
	}
}

// Package config loads the mimic configuration file.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/mimic/internal/calibration"
	"github.com/ayusman/mimic/internal/capture"
	"github.com/ayusman/mimic/internal/detector"
	"github.com/ayusman/mimic/internal/device"
	"github.com/ayusman/mimic/internal/gate"
	"github.com/ayusman/mimic/internal/smoothing"
)

// Config is the root of config.yaml.
type Config struct {
	Serial    SerialConfig    `yaml:"serial"`
	Camera    capture.Config  `yaml:"camera"`
	Detector  detector.Config `yaml:"detector"`
	Smoothing SmoothingConfig `yaml:"smoothing"`
	Gate      gate.Config     `yaml:"gate"`
	Ranges    Ranges          `yaml:"ranges"`
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	// Profile names a stored calibration profile whose ranges replace the
	// configured ones at startup. Empty means use Ranges as is.
	Profile string `yaml:"profile"`
}

// SerialConfig describes the link to the hand controller.
type SerialConfig struct {
	Port                string `yaml:"port"`
	Baud                int    `yaml:"baud"`
	ResetDelayMs        int    `yaml:"reset_delay_ms"`        // controller resets on open
	HandshakeWaitMs     int    `yaml:"handshake_wait_ms"`     // reply window after start/stop
	AckWaitMs           int    `yaml:"ack_wait_ms"`           // reply window after each command
	ReconnectIntervalMs int    `yaml:"reconnect_interval_ms"` // 0 disables reconnect
}

// Options converts the millisecond settings into device options.
func (s SerialConfig) Options() device.Options {
	return device.Options{
		ResetDelay:        time.Duration(s.ResetDelayMs) * time.Millisecond,
		HandshakeWait:     time.Duration(s.HandshakeWaitMs) * time.Millisecond,
		AckWait:           time.Duration(s.AckWaitMs) * time.Millisecond,
		ReconnectInterval: time.Duration(s.ReconnectIntervalMs) * time.Millisecond,
	}
}

// SmoothingConfig holds the temporal smoothing factor.
type SmoothingConfig struct {
	Factor float64 `yaml:"factor"`
}

// ServerConfig controls the HTTP status server. An empty Addr disables it.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// StoreConfig locates the profile database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// Dir returns the per-user mimic directory (~/.mimic).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mimic"
	}
	return filepath.Join(home, ".mimic")
}

// DefaultPath is where the configuration file is looked up by default.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the stock configuration for the reference rig.
func Default() Config {
	opts := device.DefaultOptions()
	return Config{
		Serial: SerialConfig{
			Port:                "/dev/ttyUSB0",
			Baud:                115200,
			ResetDelayMs:        int(opts.ResetDelay / time.Millisecond),
			HandshakeWaitMs:     int(opts.HandshakeWait / time.Millisecond),
			AckWaitMs:           int(opts.AckWait / time.Millisecond),
			ReconnectIntervalMs: int(opts.ReconnectInterval / time.Millisecond),
		},
		Camera:    capture.DefaultConfig(),
		Detector:  detector.DefaultConfig(),
		Smoothing: SmoothingConfig{Factor: smoothing.DefaultFactor},
		Gate:      gate.DefaultConfig(),
		Ranges:    Ranges(calibration.DefaultRanges()),
		Store:     StoreConfig{Path: filepath.Join(Dir(), "mimic.db")},
	}
}

// Load reads the YAML file at path over Default and validates the result.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Parse decodes YAML over Default and validates the result.
func Parse(b []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.Store.Path = ExpandHome(cfg.Store.Path)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section of c.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Serial.Port) == "" {
		return errors.New("serial port must be set")
	}
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("serial baud must be > 0, got %d", c.Serial.Baud)
	}
	if c.Serial.ResetDelayMs < 0 || c.Serial.HandshakeWaitMs < 0 ||
		c.Serial.AckWaitMs < 0 || c.Serial.ReconnectIntervalMs < 0 {
		return errors.New("serial timings must be >= 0")
	}
	if err := c.Camera.Validate(); err != nil {
		return err
	}
	if c.Detector.MaxHands < 1 {
		return fmt.Errorf("detector max_hands must be >= 1, got %d", c.Detector.MaxHands)
	}
	if !unit(c.Detector.MinConfidence) || !unit(c.Detector.MinTrackingConf) {
		return errors.New("detector confidences must be in [0,1]")
	}
	if err := smoothing.ValidateFactor(c.Smoothing.Factor); err != nil {
		return err
	}
	if err := c.Gate.Validate(); err != nil {
		return err
	}
	for ch, r := range c.Ranges {
		if math.IsNaN(r.Min) || math.IsNaN(r.Max) || math.IsInf(r.Min, 0) || math.IsInf(r.Max, 0) {
			return fmt.Errorf("range %s: min and max must be finite", ch)
		}
	}
	return nil
}

func unit(v float64) bool {
	return v >= 0 && v <= 1
}

// CalibrationMap builds the mapping for the configured ranges.
func (c Config) CalibrationMap() *calibration.Map {
	return calibration.NewMap(c.Ranges)
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}

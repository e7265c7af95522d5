// Package config defines mudra's runtime configuration and its defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ayusman/mudra/internal/game"
)

// Config is the process configuration.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// Addr is the HTTP listen address.
	Addr string `koanf:"addr"`

	CameraID int  `koanf:"camera_id"`
	FPS      int  `koanf:"fps"`
	Mirror   bool `koanf:"mirror"`

	RequiredStreak            int     `koanf:"required_streak"`
	TargetConfidenceThreshold float64 `koanf:"target_confidence_threshold"`
	NoDetectionDecay          int     `koanf:"no_detection_decay"`
	WrongDetectionDecay       int     `koanf:"wrong_detection_decay"`

	// NextSignDelayMS is the pause between a completion and the next selection.
	NextSignDelayMS int `koanf:"next_sign_delay_ms"`

	// DetectorConfidence is passed to the model as its own detection threshold.
	DetectorConfidence float64 `koanf:"detector_confidence"`
	DetectorScript     string  `koanf:"detector_script"`
	DetectorPython     string  `koanf:"detector_python"`
	DetectorModel      string  `koanf:"detector_model"`

	HookDir       string `koanf:"hook_dir"`
	HookTimeoutMS int    `koanf:"hook_timeout_ms"`

	DBPath    string `koanf:"db_path"`
	StaticDir string `koanf:"static_dir"`

	MetricsEnabled bool `koanf:"metrics_enabled"`
	// BatchBuffer bounds the queue between the capture worker and the engine.
	BatchBuffer int `koanf:"batch_buffer"`
}

// New returns a Config populated with defaults.
func New() *Config {
	dir := DataDir()
	return &Config{
		LogLevel:                  "info",
		Addr:                      ":8080",
		CameraID:                  0,
		FPS:                       30,
		Mirror:                    true,
		RequiredStreak:            game.DefaultRequiredStreak,
		TargetConfidenceThreshold: game.DefaultTargetConfidenceThreshold,
		NoDetectionDecay:          game.DefaultNoDetectionDecay,
		WrongDetectionDecay:       game.DefaultWrongDetectionDecay,
		NextSignDelayMS:           3000,
		DetectorConfidence:        0.5,
		HookDir:                   filepath.Join(dir, "hooks"),
		HookTimeoutMS:             5000,
		DBPath:                    filepath.Join(dir, "mudra.db"),
		MetricsEnabled:            true,
		BatchBuffer:               4,
	}
}

// DataDir returns ~/.mudra, falling back to ./.mudra without a home directory.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".mudra"
	}
	return filepath.Join(home, ".mudra")
}

// Validate checks ranges and wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("%w: fps must be positive, got %d", ErrInvalidConfig, c.FPS)
	}
	if c.CameraID < 0 {
		return fmt.Errorf("%w: camera_id must not be negative", ErrInvalidConfig)
	}
	if c.NextSignDelayMS < 0 {
		return fmt.Errorf("%w: next_sign_delay_ms must not be negative", ErrInvalidConfig)
	}
	if c.DetectorConfidence < 0 || c.DetectorConfidence > 1 {
		return fmt.Errorf("%w: detector_confidence must be in [0,1]", ErrInvalidConfig)
	}
	if c.HookTimeoutMS <= 0 {
		return fmt.Errorf("%w: hook_timeout_ms must be positive", ErrInvalidConfig)
	}
	if c.BatchBuffer < 1 {
		return fmt.Errorf("%w: batch_buffer must be at least 1", ErrInvalidConfig)
	}
	if err := c.Tunables().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Tunables extracts the game engine parameters.
func (c *Config) Tunables() game.Tunables {
	return game.Tunables{
		RequiredStreak:            c.RequiredStreak,
		TargetConfidenceThreshold: c.TargetConfidenceThreshold,
		NoDetectionDecay:          c.NoDetectionDecay,
		WrongDetectionDecay:       c.WrongDetectionDecay,
	}
}

// NextSignDelay returns NextSignDelayMS as a duration.
func (c *Config) NextSignDelay() time.Duration {
	return time.Duration(c.NextSignDelayMS) * time.Millisecond
}

// HookTimeout returns HookTimeoutMS as a duration.
func (c *Config) HookTimeout() time.Duration {
	return time.Duration(c.HookTimeoutMS) * time.Millisecond
}

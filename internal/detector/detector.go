// Package detector runs the sign classifier over camera frames.
package detector

import (
	"errors"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/game"
)

// ErrDetectorUnavailable is returned when the inference service cannot be found or started.
var ErrDetectorUnavailable = errors.New("detector unavailable")

// Detector classifies the signs visible in a frame.
type Detector interface {
	// Detect returns one entry per detected sign, or an empty slice.
	Detect(frame *gocv.Mat) ([]game.Detection, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds detector options.
type Config struct {
	// MinConfidence is the model's own detection threshold (0.0-1.0). It is
	// separate from the game's match threshold.
	MinConfidence float64

	// Script is the inference service path. Empty means search the usual locations.
	Script string

	// Python is the interpreter. Empty means a venv python if found, else python3.
	Python string

	// Model is the weights file handed to the service. Empty uses its default.
	Model string

	// IdleTimeout stops the service after this long without frames.
	IdleTimeout time.Duration
}

// DefaultConfig returns the default detector options.
func DefaultConfig() Config {
	return Config{
		MinConfidence: 0.5,
		IdleTimeout:   30 * time.Second,
	}
}

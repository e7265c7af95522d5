// Package game reconciles per-frame detections with the sign the user was
// asked to perform and keeps score.
package game

import (
	"errors"
	"fmt"

	"github.com/ayusman/mudra/internal/catalog"
)

// ErrInvalidConfig is returned when engine tunables are out of range.
var ErrInvalidConfig = errors.New("invalid game config")

// Default tunables.
const (
	DefaultRequiredStreak            = 15
	DefaultTargetConfidenceThreshold = 0.5
	DefaultNoDetectionDecay          = 1
	DefaultWrongDetectionDecay       = 2
)

// Tunables holds the engine parameters.
type Tunables struct {
	// RequiredStreak is the number of consecutive correct frames needed to
	// complete a sign. Must be at least 1.
	RequiredStreak int
	// TargetConfidenceThreshold is the game-level gate; a detection matches
	// only when its confidence is strictly greater than this value.
	TargetConfidenceThreshold float64
	// NoDetectionDecay is subtracted from the streak on an empty frame.
	NoDetectionDecay int
	// WrongDetectionDecay is subtracted from the streak when only other signs are seen.
	WrongDetectionDecay int
}

// DefaultTunables returns the standard tunables.
func DefaultTunables() Tunables {
	return Tunables{
		RequiredStreak:            DefaultRequiredStreak,
		TargetConfidenceThreshold: DefaultTargetConfidenceThreshold,
		NoDetectionDecay:          DefaultNoDetectionDecay,
		WrongDetectionDecay:       DefaultWrongDetectionDecay,
	}
}

// Validate checks the tunables and wraps ErrInvalidConfig on failure.
func (t Tunables) Validate() error {
	if t.RequiredStreak < 1 {
		return fmt.Errorf("%w: required streak must be >= 1, got %d", ErrInvalidConfig, t.RequiredStreak)
	}
	if t.TargetConfidenceThreshold < 0 || t.TargetConfidenceThreshold > 1 {
		return fmt.Errorf("%w: target confidence threshold must be in [0,1], got %g", ErrInvalidConfig, t.TargetConfidenceThreshold)
	}
	if t.NoDetectionDecay < 0 || t.WrongDetectionDecay < 0 {
		return fmt.Errorf("%w: decays must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Recorder receives completion records. session.Tracker implements it.
type Recorder interface {
	RecordCompletion(signID, attemptsTaken int)
}

// Engine turns a stream of detection batches into game outcomes.
//
// Engine is not safe for concurrent use. Callers must serialize Process,
// SetTarget and Reset; the app package does this with a single consumer
// goroutine.
type Engine struct {
	catalog  *catalog.Catalog
	tunables Tunables
	recorder Recorder
	state    ProgressState
}

// NewEngine creates an engine with a zero progress state and no target.
// recorder may be nil.
func NewEngine(cat *catalog.Catalog, t Tunables, recorder Recorder) (*Engine, error) {
	if cat == nil {
		return nil, fmt.Errorf("%w: catalog is required", ErrInvalidConfig)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	return &Engine{
		catalog:  cat,
		tunables: t,
		recorder: recorder,
	}, nil
}

// Process reconciles one frame's detections with the current target and
// returns exactly one outcome. It never blocks and never fails.
func (e *Engine) Process(detections []Detection) Outcome {
	if e.state.TargetID == nil {
		return NoActiveTarget{}
	}
	target := *e.state.TargetID

	if len(detections) == 0 {
		e.decay(e.tunables.NoDetectionDecay)
		return NoDetection{Streak: e.state.Streak}
	}

	matched := false
	best := 0.0
	for _, d := range detections {
		if d.ClassID == target && d.Confidence > e.tunables.TargetConfidenceThreshold {
			matched = true
			if d.Confidence > best {
				best = d.Confidence
			}
		}
	}

	if !matched {
		e.decay(e.tunables.WrongDetectionDecay)
		return Wrong{Streak: e.state.Streak, Detected: e.describe(detections)}
	}

	// Several target detections in one frame count as a single match.
	e.state.Streak++
	if e.state.Streak >= e.tunables.RequiredStreak {
		return e.complete(target)
	}

	return Correct{Streak: e.state.Streak, Confidence: best}
}

func (e *Engine) complete(target int) Completed {
	e.state.Score++
	e.state.Attempts++
	e.state.targetAttempts++
	e.state.Streak = 0

	if e.recorder != nil {
		e.recorder.RecordCompletion(target, e.state.targetAttempts)
	}

	return Completed{
		SignID:   target,
		SignName: e.catalog.Name(target),
		Score:    e.state.Score,
		Attempts: e.state.Attempts,

		TargetAttempts: e.state.targetAttempts,
	}
}

func (e *Engine) decay(by int) {
	e.state.Streak -= by
	if e.state.Streak < 0 {
		e.state.Streak = 0
	}
}

func (e *Engine) describe(detections []Detection) []DetectedSign {
	out := make([]DetectedSign, 0, len(detections))
	for _, d := range detections {
		out = append(out, DetectedSign{
			ClassID:    d.ClassID,
			Label:      d.DisplayLabel(),
			Confidence: d.Confidence,
			Known:      e.catalog.Contains(d.ClassID),
		})
	}
	return out
}

// SetTarget makes id the requested sign and resets the streak.
// Score and attempts carry over.
func (e *Engine) SetTarget(id int) error {
	if !e.catalog.Contains(id) {
		return fmt.Errorf("%w: %d", catalog.ErrUnknownSign, id)
	}
	e.state.TargetID = &id
	e.state.Streak = 0
	e.state.targetAttempts = 0
	return nil
}

// ClearTarget removes the current target. Subsequent Process calls return NoActiveTarget.
func (e *Engine) ClearTarget() {
	e.state.TargetID = nil
	e.state.Streak = 0
	e.state.targetAttempts = 0
}

// Target returns the currently requested sign.
func (e *Engine) Target() (catalog.Sign, bool) {
	if e.state.TargetID == nil {
		return catalog.Sign{}, false
	}
	return e.catalog.Lookup(*e.state.TargetID)
}

// Reset returns the engine to a fresh session: zero score, no target.
func (e *Engine) Reset() {
	e.state = ProgressState{}
}

// SetRequiredStreak changes the completion length, clamped to a minimum of 1.
// A streak above the new length is clamped down to it.
func (e *Engine) SetRequiredStreak(n int) {
	if n < 1 {
		n = 1
	}
	e.tunables.RequiredStreak = n
	if e.state.Streak > n {
		e.state.Streak = n
	}
}

// Tunables returns the active tunables.
func (e *Engine) Tunables() Tunables {
	return e.tunables
}

// State returns a copy of the progress state.
func (e *Engine) State() ProgressState {
	return e.state.clone()
}

// Stats returns a display snapshot including derived values.
func (e *Engine) Stats() GameStats {
	s := e.state.clone()
	return GameStats{
		Score:              s.Score,
		Attempts:           s.Attempts,
		Accuracy:           s.Accuracy(),
		Streak:             s.Streak,
		RequiredStreak:     e.tunables.RequiredStreak,
		ProgressPercentage: s.ProgressPercentage(e.tunables.RequiredStreak),
		TargetID:           s.TargetID,
	}
}

// Catalog returns the sign catalog the engine validates targets against.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

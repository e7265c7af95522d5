package app

import (
	"time"

	"github.com/ayusman/mudra/internal/catalog"
	"github.com/ayusman/mudra/internal/game"
)

// EventType classifies events delivered to sinks.
type EventType string

const (
	// EventOutcome carries one reconciliation outcome.
	EventOutcome EventType = "outcome"
	// EventTarget announces a newly selected sign.
	EventTarget EventType = "target"
	// EventSession announces a session start or reset.
	EventSession EventType = "session"
	// EventStatus reports camera and detector state changes.
	EventStatus EventType = "status"
)

// Status values carried by EventStatus.
const (
	StatusCameraStarted = "camera_started"
	StatusCameraStopped = "camera_stopped"
	StatusCameraError   = "camera_error"
	StatusDetectorError = "detector_error"
	StatusAwaitingNext  = "awaiting_next"
)

// Event is what sinks receive. Events are delivered in the order they were
// produced.
type Event struct {
	Type EventType
	Seq  uint64
	Time time.Time

	// Outcome is set for EventOutcome.
	Outcome game.Outcome
	// Target is the sign the event refers to. For a Completed outcome it is
	// the sign just completed.
	Target *catalog.Sign
	// Stats is the game state after the event.
	Stats game.GameStats

	// Status and Err are set for EventStatus.
	Status string
	Err    error

	// SessionID is set for EventSession.
	SessionID string
}

// Sink consumes events. Handle runs on the producing goroutine and must not
// block or call App methods that change state.
type Sink interface {
	Handle(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Handle calls f(ev).
func (f SinkFunc) Handle(ev Event) { f(ev) }

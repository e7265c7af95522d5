// Package hook runs user-supplied executables when the tutor reaches a
// milestone, such as completing a sign.
package hook

import (
	"encoding/json"
	"slices"
	"time"
)

// Hook events.
const (
	EventCompleted    = "completed"
	EventSessionStart = "session_started"
)

// Manifest describes a hook. It is read from hook.json in the hook's directory.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Events      []string        `json:"events"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Request is written to the hook's stdin as JSON.
type Request struct {
	Event     string          `json:"event"`
	SessionID string          `json:"session_id,omitempty"`
	SignID    int             `json:"sign_id,omitempty"`
	SignName  string          `json:"sign_name,omitempty"`
	Score     int             `json:"score"`
	Attempts  int             `json:"attempts"`
	Accuracy  float64         `json:"accuracy"`
	Time      time.Time       `json:"time"`
	Config    json.RawMessage `json:"config,omitempty"`
}

// Response is read from the hook's stdout. An empty stdout counts as success.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Hook is a discovered hook.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Handles reports whether the hook subscribed to event. A manifest without
// events subscribes to completions only.
func (h *Hook) Handles(event string) bool {
	if len(h.Manifest.Events) == 0 {
		return event == EventCompleted
	}
	return slices.Contains(h.Manifest.Events, event)
}

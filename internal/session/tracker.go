// Package session aggregates completed signs into session statistics.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is one completed sign.
type Record struct {
	SignID        int       `json:"sign_id"`
	AttemptsTaken int       `json:"attempts_taken"`
	CompletedAt   time.Time `json:"completed_at"`
}

// Stats is a read-only view of the current session.
type Stats struct {
	Started                bool          `json:"started"`
	SessionID              string        `json:"session_id,omitempty"`
	StartedAt              time.Time     `json:"started_at"`
	Duration               time.Duration `json:"duration"`
	DurationMinutes        float64       `json:"duration_minutes"`
	SignsCompleted         int           `json:"signs_learned"`
	TotalAttempts          int           `json:"total_attempts"`
	AverageAttemptsPerSign float64       `json:"average_attempts_per_sign"`
	SignsPerMinute         float64       `json:"signs_per_minute"`
	Records                []Record      `json:"records"`
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// Tracker records completions for one session at a time.
// It is safe for concurrent use.
type Tracker struct {
	mu      sync.RWMutex
	now     func() time.Time
	id      string
	start   time.Time
	records []Record
}

// NewTracker creates a Tracker with no session started.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// StartSession discards all records and starts timing a new session.
// Calling it again restarts rather than extends the session.
func (t *Tracker) StartSession() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.id = uuid.New().String()
	t.start = t.now()
	t.records = nil
	return t.id
}

// RecordCompletion appends a completion stamped with the current time.
func (t *Tracker) RecordCompletion(signID, attemptsTaken int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.records = append(t.records, Record{
		SignID:        signID,
		AttemptsTaken: attemptsTaken,
		CompletedAt:   t.now(),
	})
}

// Len returns the number of completions recorded this session.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// Stats computes the session aggregates. Before StartSession it reports
// Started=false and zero time-based values.
func (t *Tracker) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Stats{
		Started:        !t.start.IsZero(),
		SessionID:      t.id,
		StartedAt:      t.start,
		SignsCompleted: len(t.records),
		Records:        append([]Record(nil), t.records...),
	}

	for _, r := range t.records {
		s.TotalAttempts += r.AttemptsTaken
	}
	if s.SignsCompleted > 0 {
		s.AverageAttemptsPerSign = float64(s.TotalAttempts) / float64(s.SignsCompleted)
	}

	if !s.Started {
		return s
	}

	s.Duration = t.now().Sub(t.start)
	if s.Duration < 0 {
		s.Duration = 0
	}
	s.DurationMinutes = s.Duration.Minutes()
	if s.DurationMinutes > 0 {
		s.SignsPerMinute = float64(s.SignsCompleted) / s.DurationMinutes
	}
	return s
}

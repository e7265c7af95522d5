package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/game"
	"github.com/ayusman/mudra/pkg/logger"
)

// Completion is one completed sign.
type Completion struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"session_id"`
	SignID      int       `json:"sign_id"`
	SignName    string    `json:"sign_name"`
	Attempts    int       `json:"attempts"`
	CompletedAt time.Time `json:"completed_at"`
}

// SignSummary aggregates completions of one sign.
type SignSummary struct {
	SignID          int       `json:"sign_id"`
	SignName        string    `json:"sign_name"`
	Completions     int       `json:"completions"`
	AverageAttempts float64   `json:"average_attempts"`
	LastCompletedAt time.Time `json:"last_completed_at"`
}

// CompletionRepository records and queries completion history.
type CompletionRepository struct {
	db *sql.DB
}

// Completions returns the completion repository for this store.
func (s *Store) Completions() *CompletionRepository {
	return &CompletionRepository{db: s.db}
}

// Create inserts a completion and sets its ID.
func (r *CompletionRepository) Create(c *Completion) error {
	if c.CompletedAt.IsZero() {
		c.CompletedAt = time.Now()
	}
	result, err := r.db.Exec(
		`INSERT INTO completions (session_id, sign_id, attempts, completed_at) VALUES (?, ?, ?, ?)`,
		c.SessionID, c.SignID, c.Attempts, c.CompletedAt,
	)
	if err != nil {
		return err
	}
	c.ID, err = result.LastInsertId()
	return err
}

// Recent returns up to limit completions, newest first.
func (r *CompletionRepository) Recent(limit int) ([]*Completion, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(
		`SELECT c.id, c.session_id, c.sign_id, s.name, c.attempts, c.completed_at
		 FROM completions c JOIN signs s ON s.id = c.sign_id
		 ORDER BY c.completed_at DESC, c.id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Completion
	for rows.Next() {
		c := &Completion{}
		if err := rows.Scan(&c.ID, &c.SessionID, &c.SignID, &c.SignName, &c.Attempts, &c.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Summary aggregates completions per sign, ordered by sign id.
func (r *CompletionRepository) Summary() ([]*SignSummary, error) {
	rows, err := r.db.Query(
		`SELECT s.id, s.name, COUNT(c.id), COALESCE(AVG(c.attempts), 0), COALESCE(MAX(c.completed_at), '')
		 FROM signs s LEFT JOIN completions c ON c.sign_id = s.id
		 GROUP BY s.id, s.name ORDER BY s.id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*SignSummary
	for rows.Next() {
		s := &SignSummary{}
		var last string
		if err := rows.Scan(&s.SignID, &s.SignName, &s.Completions, &s.AverageAttempts, &last); err != nil {
			return nil, err
		}
		if last != "" {
			s.LastCompletedAt = parseTime(last)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// parseTime reads the text form the sqlite driver writes for time.Time values.
func parseTime(v string) time.Time {
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999-07:00",
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// HistorySink is an app.Sink that stores every completion.
type HistorySink struct {
	repo *CompletionRepository
	log  logger.Logger

	sessionID string
}

var _ app.Sink = (*HistorySink)(nil)

// NewHistorySink creates a HistorySink writing to repo.
func NewHistorySink(repo *CompletionRepository, log logger.Logger) *HistorySink {
	if log == nil {
		log = logger.Nop()
	}
	return &HistorySink{repo: repo, log: log}
}

// Handle implements app.Sink. Events arrive one at a time, so the session id
// needs no locking.
func (h *HistorySink) Handle(ev app.Event) {
	switch ev.Type {
	case app.EventSession:
		h.sessionID = ev.SessionID
	case app.EventOutcome:
		done, ok := ev.Outcome.(game.Completed)
		if !ok {
			return
		}
		c := &Completion{
			SessionID:   h.sessionID,
			SignID:      done.SignID,
			Attempts:    done.TargetAttempts,
			CompletedAt: ev.Time,
		}
		if err := h.repo.Create(c); err != nil {
			h.log.Warn(context.Background(), "store completion", logger.Int("sign_id", done.SignID), logger.Error(err))
		}
	}
}

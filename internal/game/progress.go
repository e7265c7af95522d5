package game

// ProgressState is the per-session game record. The Engine owns it; callers
// only ever see copies returned by Engine.State.
type ProgressState struct {
	// Score counts completed signs.
	Score int `json:"score"`
	// Attempts counts completion attempts. It moves in lockstep with Score
	// while completion is the only path that increments it.
	Attempts int `json:"attempts"`
	// Streak is the consecutive-correctness counter, kept in [0, RequiredStreak].
	Streak int `json:"streak"`
	// TargetID is the sign currently requested, nil before the first selection.
	TargetID *int `json:"target_id"`

	targetAttempts int
}

// HasTarget reports whether a sign has been selected.
func (p ProgressState) HasTarget() bool {
	return p.TargetID != nil
}

// Accuracy returns score/attempts as a percentage, 0 when nothing was attempted.
func (p ProgressState) Accuracy() float64 {
	if p.Attempts == 0 {
		return 0
	}
	return float64(p.Score) / float64(p.Attempts) * 100
}

// ProgressPercentage returns how far the streak is toward required, as a percentage.
func (p ProgressState) ProgressPercentage(required int) float64 {
	if required <= 0 {
		return 0
	}
	return float64(p.Streak) / float64(required) * 100
}

func (p ProgressState) clone() ProgressState {
	out := p
	if p.TargetID != nil {
		id := *p.TargetID
		out.TargetID = &id
	}
	return out
}

// GameStats is a read-only snapshot of game progress for display.
type GameStats struct {
	Score              int     `json:"score"`
	Attempts           int     `json:"attempts"`
	Accuracy           float64 `json:"accuracy"`
	Streak             int     `json:"current_progress"`
	RequiredStreak     int     `json:"required_detections"`
	ProgressPercentage float64 `json:"progress_percentage"`
	TargetID           *int    `json:"target_id"`
}

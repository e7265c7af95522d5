package game

import (
	"fmt"
	"image"
)

// Detection is one detector output for a single frame.
type Detection struct {
	ClassID    int             `json:"class_id"`
	Confidence float64         `json:"confidence"`
	BBox       image.Rectangle `json:"bbox"`
	Label      string          `json:"label,omitempty"`
}

// DisplayLabel returns the detection label, or a synthetic "Class_<id>"
// label when the detector did not provide one.
func (d Detection) DisplayLabel() string {
	if d.Label != "" {
		return d.Label
	}
	return SyntheticLabel(d.ClassID)
}

// SyntheticLabel builds the fallback label for a class id.
func SyntheticLabel(classID int) string {
	return fmt.Sprintf("Class_%d", classID)
}

// Kind identifies which variant an Outcome is.
type Kind int

const (
	KindNoActiveTarget Kind = iota
	KindNoDetection
	KindCorrect
	KindWrong
	KindCompleted
)

var kindNames = [...]string{
	KindNoActiveTarget: "no_active_target",
	KindNoDetection:    "no_detection",
	KindCorrect:        "correct",
	KindWrong:          "wrong",
	KindCompleted:      "completed",
}

// String returns the snake_case name of the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Outcome is the result of one reconciliation step. It is one of
// NoActiveTarget, NoDetection, Correct, Wrong or Completed; callers
// dispatch with a type switch.
type Outcome interface {
	Kind() Kind
	isOutcome()
}

// NoActiveTarget is returned when Process is called before any sign was selected.
// The progress state is left untouched.
type NoActiveTarget struct{}

// NoDetection is returned for a frame with no detections at all.
type NoDetection struct {
	Streak int `json:"streak"`
}

// Correct is returned when the target sign was detected above the game threshold
// without completing it yet.
type Correct struct {
	Streak     int     `json:"streak"`
	Confidence float64 `json:"confidence"`
}

// Wrong is returned when detections were present but none matched the target.
type Wrong struct {
	Streak   int            `json:"streak"`
	Detected []DetectedSign `json:"detected"`
}

// Completed is returned when the streak reached the required length.
// It also signals that a new sign selection is due.
type Completed struct {
	SignID   int    `json:"sign_id"`
	SignName string `json:"sign_name"`
	Score    int    `json:"score"`
	Attempts int    `json:"attempts"`

	// TargetAttempts counts completions of this sign since it became the target.
	TargetAttempts int `json:"target_attempts"`
}

// DetectedSign describes a non-matching detection reported in a Wrong outcome.
type DetectedSign struct {
	ClassID    int     `json:"class_id"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	// Known is false when the class id is not in the catalog.
	Known bool `json:"known"`
}

// String formats the detection as "Label (87%)".
func (d DetectedSign) String() string {
	return fmt.Sprintf("%s (%.0f%%)", d.Label, d.Confidence*100)
}

func (NoActiveTarget) Kind() Kind { return KindNoActiveTarget }
func (NoDetection) Kind() Kind    { return KindNoDetection }
func (Correct) Kind() Kind        { return KindCorrect }
func (Wrong) Kind() Kind          { return KindWrong }
func (Completed) Kind() Kind      { return KindCompleted }

func (NoActiveTarget) isOutcome() {}
func (NoDetection) isOutcome()    {}
func (Correct) isOutcome()        {}
func (Wrong) isOutcome()          {}
func (Completed) isOutcome()      {}

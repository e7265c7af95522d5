// Package render turns tutor events into text for people.
package render

import (
	"fmt"
	"strings"

	"github.com/ayusman/mudra/internal/catalog"
	"github.com/ayusman/mudra/internal/game"
)

// Message returns the status line for an outcome. target is the sign that
// was requested when the outcome was produced and may be nil.
func Message(out game.Outcome, target *catalog.Sign) string {
	name := targetName(target)

	switch o := out.(type) {
	case game.NoActiveTarget:
		return "Ready to detect signs..."
	case game.NoDetection:
		return "No signs detected\nTry adjusting your position or lighting"
	case game.Correct:
		return fmt.Sprintf("Perfect! Keep holding '%s'\nConfidence: %.0f%%", name, o.Confidence*100)
	case game.Wrong:
		return fmt.Sprintf("Detected: %s\nTarget: %s", joinDetected(o.Detected), name)
	case game.Completed:
		return fmt.Sprintf("Excellent! You mastered '%s'!\nGet ready for the next challenge...", o.SignName)
	default:
		return ""
	}
}

// NewChallenge announces a freshly selected sign.
func NewChallenge(sign catalog.Sign) string {
	return fmt.Sprintf("New challenge: Learn '%s' sign!", sign.Name)
}

// Hint returns the instruction and tip for a sign.
func Hint(sign catalog.Sign) string {
	var b strings.Builder
	b.WriteString(sign.Instruction)
	if sign.Tip != "" {
		b.WriteString("\nTip: ")
		b.WriteString(sign.Tip)
	}
	return b.String()
}

// ProgressBar draws streak progress as a fixed-width bar, e.g. "[####------] 6/15".
func ProgressBar(streak, required, width int) string {
	if required < 1 {
		required = 1
	}
	if width < 1 {
		width = 10
	}
	filled := streak * width / required
	filled = min(max(filled, 0), width)
	return fmt.Sprintf("[%s%s] %d/%d",
		strings.Repeat("#", filled),
		strings.Repeat("-", width-filled),
		streak, required)
}

func targetName(target *catalog.Sign) string {
	if target == nil {
		return catalog.UnknownName
	}
	return target.Name
}

func joinDetected(dets []game.DetectedSign) string {
	parts := make([]string, len(dets))
	for i, d := range dets {
		parts[i] = d.String()
	}
	return strings.Join(parts, ", ")
}

package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/catalog"
	"github.com/ayusman/mudra/internal/game"
)

var thanks = catalog.Sign{ID: 4, Name: "Thanks", Instruction: "Touch chin with fingertips, move hand forward", Tip: "Start at chin"}

func TestMessage(t *testing.T) {
	tests := []struct {
		name   string
		out    game.Outcome
		target *catalog.Sign
		want   string
	}{
		{"no target", game.NoActiveTarget{}, nil, "Ready to detect signs..."},
		{"no detection", game.NoDetection{}, &thanks, "No signs detected\nTry adjusting your position or lighting"},
		{"correct", game.Correct{Streak: 3, Confidence: 0.874}, &thanks, "Perfect! Keep holding 'Thanks'\nConfidence: 87%"},
		{
			"wrong",
			game.Wrong{Detected: []game.DetectedSign{
				{ClassID: 0, Label: "Hello", Confidence: 0.9, Known: true},
				{ClassID: 7, Label: "Class_7", Confidence: 0.41},
			}},
			&thanks,
			"Detected: Hello (90%), Class_7 (41%)\nTarget: Thanks",
		},
		{"wrong without target", game.Wrong{}, nil, "Detected: \nTarget: Unknown"},
		{"completed", game.Completed{SignID: 4, SignName: "Thanks", Score: 1}, nil, "Excellent! You mastered 'Thanks'!\nGet ready for the next challenge..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Message(tt.out, tt.target); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewChallengeAndHint(t *testing.T) {
	if got := NewChallenge(thanks); got != "New challenge: Learn 'Thanks' sign!" {
		t.Errorf("NewChallenge() = %q", got)
	}
	if got := Hint(thanks); got != "Touch chin with fingertips, move hand forward\nTip: Start at chin" {
		t.Errorf("Hint() = %q", got)
	}
	if got := Hint(catalog.Sign{Instruction: "Wave"}); got != "Wave" {
		t.Errorf("Hint() without tip = %q", got)
	}
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		streak, required, width int
		want                    string
	}{
		{0, 15, 10, "[----------] 0/15"},
		{6, 15, 10, "[####------] 6/15"},
		{15, 15, 10, "[##########] 15/15"},
		{20, 15, 5, "[#####] 20/15"},
		{1, 0, 0, "[##########] 1/1"},
	}
	for _, tt := range tests {
		if got := ProgressBar(tt.streak, tt.required, tt.width); got != tt.want {
			t.Errorf("ProgressBar(%d, %d, %d) = %q, want %q", tt.streak, tt.required, tt.width, got, tt.want)
		}
	}
}

func outcomeEvent(out game.Outcome, streak int) app.Event {
	return app.Event{
		Type:    app.EventOutcome,
		Outcome: out,
		Target:  &thanks,
		Stats:   game.GameStats{Streak: streak, RequiredStreak: 8},
	}
}

func TestConsole_CollapsesRepeats(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Handle(outcomeEvent(game.NoDetection{}, 0))
	c.Handle(outcomeEvent(game.NoDetection{}, 0))
	c.Handle(outcomeEvent(game.NoActiveTarget{}, 0))
	for i := 1; i <= 3; i++ {
		c.Handle(outcomeEvent(game.Correct{Streak: i, Confidence: 0.9}, i))
	}
	c.Handle(outcomeEvent(game.Completed{SignID: 4, SignName: "Thanks", Score: 1}, 0))
	c.Handle(outcomeEvent(game.Completed{SignID: 4, SignName: "Thanks", Score: 2}, 0))

	out := buf.String()
	if n := strings.Count(out, "No signs detected"); n != 1 {
		t.Errorf("no-detection lines = %d, want 1\n%s", n, out)
	}
	if strings.Contains(out, "Ready to detect") {
		t.Errorf("idle outcomes should not print\n%s", out)
	}
	// With 8 required, streak 1 is in the first quarter and streaks 2 and 3 in the second.
	if n := strings.Count(out, "Keep holding"); n != 2 {
		t.Errorf("correct lines = %d, want 2\n%s", n, out)
	}
	if n := strings.Count(out, "mastered"); n != 2 {
		t.Errorf("completion lines = %d, want 2\n%s", n, out)
	}
}

func TestConsole_OtherEvents(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Handle(app.Event{Type: app.EventSession, SessionID: "abc"})
	c.Handle(app.Event{Type: app.EventTarget, Target: &thanks})
	c.Handle(app.Event{Type: app.EventStatus, Status: app.StatusAwaitingNext})
	c.Handle(app.Event{Type: app.EventStatus, Status: app.StatusCameraError, Err: errors.New("device busy")})

	out := buf.String()
	for _, want := range []string{
		"Session abc started",
		"New challenge: Learn 'Thanks' sign!",
		"Tip: Start at chin",
		"camera error: device busy",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
	if strings.Count(out, "\n") != 5 {
		t.Errorf("unexpected line count\n%s", out)
	}
}

package tray

import (
	"errors"
	"strings"
	"testing"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/catalog"
	"github.com/ayusman/mudra/internal/game"
)

func TestViewUpdate(t *testing.T) {
	target := 2
	sign := catalog.Sign{ID: 2, Name: "Yes", Instruction: "Nod your fist"}

	tests := []struct {
		name       string
		start      view
		event      app.Event
		wantTarget string
		wantHint   string
		wantCamera bool
	}{
		{
			name:       "new target",
			start:      New(false).view,
			event:      app.Event{Type: app.EventTarget, Target: &sign, Stats: game.GameStats{TargetID: &target, RequiredStreak: 15}},
			wantTarget: "Sign: Yes  [----------] 0/15",
			wantHint:   "Nod your fist",
		},
		{
			name:       "awaiting next",
			start:      view{target: "Sign: Yes", hint: "Nod your fist", cameraActive: true},
			event:      app.Event{Type: app.EventStatus, Status: app.StatusAwaitingNext},
			wantTarget: "Sign: next one coming...",
			wantCamera: true,
		},
		{
			name:       "camera started",
			start:      view{target: "Sign: none"},
			event:      app.Event{Type: app.EventStatus, Status: app.StatusCameraStarted},
			wantTarget: "Sign: none",
			wantCamera: true,
		},
		{
			name:       "camera error",
			start:      view{target: "Sign: none", cameraActive: true},
			event:      app.Event{Type: app.EventStatus, Status: app.StatusCameraError, Err: errors.New("busy")},
			wantTarget: "Sign: none",
		},
		{
			name:       "session reset",
			start:      view{target: "Sign: Yes", hint: "Nod your fist", cameraActive: true},
			event:      app.Event{Type: app.EventSession, SessionID: "abc"},
			wantTarget: "Sign: none",
			wantCamera: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.start.update(tt.event)
			if got.targetTitle() != tt.wantTarget {
				t.Errorf("targetTitle() = %q, want %q", got.targetTitle(), tt.wantTarget)
			}
			if got.hint != tt.wantHint {
				t.Errorf("hint = %q, want %q", got.hint, tt.wantHint)
			}
			if got.cameraActive != tt.wantCamera {
				t.Errorf("cameraActive = %v, want %v", got.cameraActive, tt.wantCamera)
			}
		})
	}
}

func TestViewScore(t *testing.T) {
	target := 1
	v := New(true).view.update(app.Event{
		Type:    app.EventOutcome,
		Outcome: game.Correct{Streak: 6, Confidence: 0.9},
		Stats: game.GameStats{
			Score: 3, Attempts: 4, Accuracy: 75,
			Streak: 6, RequiredStreak: 15, TargetID: &target,
		},
	})

	if v.score != "Score: 3/4 (75%)" {
		t.Errorf("score = %q", v.score)
	}
	if !strings.HasSuffix(v.targetTitle(), "6/15") {
		t.Errorf("targetTitle() = %q", v.targetTitle())
	}
	if v.cameraTitle() != "● Camera on" {
		t.Errorf("cameraTitle() = %q", v.cameraTitle())
	}
}

func TestHandleBeforeReady(t *testing.T) {
	tr := New(false)
	tr.Handle(app.Event{Type: app.EventStatus, Status: app.StatusCameraStarted})
	if !tr.CameraActive() {
		t.Error("CameraActive() = false after camera_started")
	}

	var got []bool
	tr.OnCamera(func(active bool) { got = append(got, active) })
	tr.handleCamera()
	if len(got) != 1 || got[0] {
		t.Errorf("camera callback = %v, want [false]", got)
	}

	nexts := 0
	tr.OnNext(func() { nexts++ })
	tr.call(func() func() { return tr.onNext })
	if nexts != 1 {
		t.Errorf("next callback calls = %d", nexts)
	}
}

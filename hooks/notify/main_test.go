package main

import (
	"strings"
	"testing"
)

func TestMessage(t *testing.T) {
	tests := []struct {
		name     string
		req      Request
		wantBody string
		wantOK   bool
	}{
		{
			name:     "completed",
			req:      Request{Event: "completed", SignName: "Thanks", Score: 3, Accuracy: 75},
			wantBody: "You mastered 'Thanks'! Score 3, accuracy 75%",
			wantOK:   true,
		},
		{
			name:     "session",
			req:      Request{Event: "session_started"},
			wantBody: "New session started. Show me your signs!",
			wantOK:   true,
		},
		{
			name: "unknown",
			req:  Request{Event: "other"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, body, ok := message(tt.req)
			if ok != tt.wantOK || body != tt.wantBody {
				t.Errorf("message() = %q, %v; want %q, %v", body, ok, tt.wantBody, tt.wantOK)
			}
		})
	}
}

func TestCommand(t *testing.T) {
	name, args := command("darwin", "Sign mastered", "You mastered 'Yes'!", "Glass")
	if name != "osascript" || len(args) != 2 {
		t.Fatalf("darwin command = %s %v", name, args)
	}
	if !strings.Contains(args[1], `sound name "Glass"`) || !strings.Contains(args[1], `with title "Sign mastered"`) {
		t.Errorf("script = %s", args[1])
	}

	name, args = command("linux", "Mudra", "hi", "")
	if name != "notify-send" || args[len(args)-1] != "hi" {
		t.Errorf("linux command = %s %v", name, args)
	}
}

// Package main is a completion hook that shows a desktop notification.
// It uses osascript on macOS and notify-send elsewhere.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Request is the hook input written by the tutor.
type Request struct {
	Event     string          `json:"event"`
	SessionID string          `json:"session_id"`
	SignID    int             `json:"sign_id"`
	SignName  string          `json:"sign_name"`
	Score     int             `json:"score"`
	Attempts  int             `json:"attempts"`
	Accuracy  float64         `json:"accuracy"`
	Config    json.RawMessage `json:"config"`
}

// Response is the hook output read by the tutor.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type config struct {
	Sound string `json:"sound"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(fmt.Errorf("decode request: %w", err))
		return
	}

	title, body, ok := message(req)
	if !ok {
		writeResponse(fmt.Errorf("unsupported event: %s", req.Event))
		return
	}

	var cfg config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeResponse(fmt.Errorf("decode config: %w", err))
			return
		}
	}

	name, args := command(runtime.GOOS, title, body, cfg.Sound)
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		err = fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	writeResponse(err)
}

// message builds the notification text for an event.
func message(req Request) (title, body string, ok bool) {
	switch req.Event {
	case "completed":
		return "Sign mastered",
			fmt.Sprintf("You mastered '%s'! Score %d, accuracy %.0f%%", req.SignName, req.Score, req.Accuracy),
			true
	case "session_started":
		return "Mudra", "New session started. Show me your signs!", true
	}
	return "", "", false
}

// command returns the notifier invocation for goos.
func command(goos, title, body, sound string) (string, []string) {
	if goos == "darwin" {
		script := fmt.Sprintf("display notification %q with title %q", body, title)
		if sound != "" {
			script += fmt.Sprintf(" sound name %q", sound)
		}
		return "osascript", []string{"-e", script}
	}
	return "notify-send", []string{"--app-name=mudra", title, body}
}

func writeResponse(err error) {
	resp := Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	if encErr := json.NewEncoder(os.Stdout).Encode(resp); encErr != nil {
		fmt.Fprintln(os.Stderr, errors.Join(err, encErr))
		os.Exit(1)
	}
}

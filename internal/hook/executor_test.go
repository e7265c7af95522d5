package hook

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func scriptHook(t *testing.T, script string, config json.RawMessage) *Hook {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}
	path := writeHook(t, t.TempDir(), Manifest{Name: "test-hook", Executable: "run.sh", Config: config}, script)
	m := NewManager(filepath.Dir(path))
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	h, err := m.Get("test-hook")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	return h
}

func TestExecutor_Execute(t *testing.T) {
	tests := []struct {
		name        string
		script      string
		wantErr     bool
		wantSuccess bool
		wantMessage string
	}{
		{
			name:        "success",
			script:      "#!/bin/sh\necho '{\"success\":true,\"data\":{\"message\":\"hi\"}}'\n",
			wantSuccess: true,
		},
		{
			name:        "empty output",
			script:      "#!/bin/sh\ncat >/dev/null\n",
			wantSuccess: true,
		},
		{
			name:        "error response",
			script:      "#!/bin/sh\necho '{\"success\":false,\"error\":\"something went wrong\"}'\n",
			wantMessage: "something went wrong",
		},
		{
			name:    "invalid json",
			script:  "#!/bin/sh\necho 'not valid json'\n",
			wantErr: true,
		},
		{
			name:    "non-zero exit",
			script:  "#!/bin/sh\necho 'boom' >&2\nexit 3\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := scriptHook(t, tt.script, nil)
			resp, err := NewExecutor(5*time.Second).Execute(context.Background(), h, &Request{Event: EventCompleted})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if resp.Success != tt.wantSuccess {
				t.Errorf("Success = %v, want %v", resp.Success, tt.wantSuccess)
			}
			if resp.Error != tt.wantMessage {
				t.Errorf("Error = %q, want %q", resp.Error, tt.wantMessage)
			}
		})
	}
}

func TestExecutor_Execute_NonZeroExitIncludesStderr(t *testing.T) {
	h := scriptHook(t, "#!/bin/sh\necho 'boom' >&2\nexit 3\n", nil)
	_, err := NewExecutor(5*time.Second).Execute(context.Background(), h, &Request{})
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("error = %v, want stderr included", err)
	}
}

func TestExecutor_Execute_ReadsStdin(t *testing.T) {
	script := "#!/bin/sh\nINPUT=$(cat)\necho \"{\\\"success\\\":true,\\\"data\\\":$INPUT}\"\n"
	h := scriptHook(t, script, json.RawMessage(`{"sound":"chime"}`))

	req := &Request{Event: EventCompleted, SignID: 4, SignName: "Thanks", Score: 2, Attempts: 3}
	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), h, req)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var got Request
	if err := json.Unmarshal(resp.Data, &got); err != nil {
		t.Fatalf("failed to unmarshal echoed request: %v", err)
	}
	if got.Event != EventCompleted || got.SignName != "Thanks" || got.Score != 2 || got.Attempts != 3 {
		t.Errorf("echoed request = %+v", got)
	}
	if string(got.Config) != `{"sound":"chime"}` {
		t.Errorf("Config = %s, want manifest config", got.Config)
	}
	if req.Config != nil {
		t.Error("Execute should not modify the caller's request")
	}
}

func TestExecutor_Timeout(t *testing.T) {
	h := scriptHook(t, "#!/bin/sh\nsleep 10\necho '{\"success\":true}'\n", nil)

	start := time.Now()
	_, err := NewExecutor(100*time.Millisecond).Execute(context.Background(), h, &Request{})
	if !errors.Is(err, ErrHookTimeout) {
		t.Fatalf("error = %v, want ErrHookTimeout", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("timeout did not stop the hook")
	}
}

package capture

import (
	"errors"
	"testing"
)

func TestNewCamera(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantFPS int
	}{
		{
			name:    "defaults",
			opts:    DefaultOptions(),
			wantFPS: DefaultFPS,
		},
		{
			name:    "zero fps falls back",
			opts:    Options{DeviceID: 1},
			wantFPS: DefaultFPS,
		},
		{
			name:    "custom fps",
			opts:    Options{DeviceID: 2, FPS: 15},
			wantFPS: 15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := NewCamera(tt.opts)

			if got := cam.FPS(); got != tt.wantFPS {
				t.Errorf("FPS() = %d, want %d", got, tt.wantFPS)
			}
			if cam.IsOpen() {
				t.Error("camera should not be open initially")
			}
		})
	}
}

func TestCamera_SetFPS(t *testing.T) {
	cam := NewCamera(DefaultOptions())

	for _, step := range []struct {
		fps, want int
	}{
		{10, 10},
		{1, 1},
		{0, 1},
		{-5, 1},
	} {
		cam.SetFPS(step.fps)
		if got := cam.FPS(); got != step.want {
			t.Errorf("SetFPS(%d): FPS() = %d, want %d", step.fps, got, step.want)
		}
	}
}

func TestCamera_ReadWithoutOpen(t *testing.T) {
	cam := NewCamera(DefaultOptions())

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() error = %v, want ErrCameraNotOpen", err)
	}
	if err := cam.Close(); err != nil {
		t.Errorf("Close() on unopened camera error = %v", err)
	}
}

func TestCamera_OpenClose_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cam := NewCamera(DefaultOptions())
	if err := cam.Open(); err != nil {
		t.Skipf("camera not available: %v", err)
	}
	defer cam.Close()

	mat, err := cam.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	defer mat.Close()

	if mat.Empty() {
		t.Error("ReadFrame() returned empty mat")
	}
}

func TestMockCamera(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping gocv test in short mode")
	}

	cam := NewBlankCamera(2, 64, 48)
	defer cam.Release()

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() before Open error = %v", err)
	}

	if err := cam.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		mat, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if mat.Cols() != 64 || mat.Rows() != 48 {
			t.Errorf("frame size = %dx%d", mat.Cols(), mat.Rows())
		}
		mat.Close()
	}

	once := NewMockCamera(nil, false)
	_ = once.Open()
	if _, err := once.ReadFrame(); !errors.Is(err, ErrNoFrame) {
		t.Errorf("empty camera error = %v, want ErrNoFrame", err)
	}

	failing := NewMockCamera(nil, false)
	failing.FailOpen(errors.New("busy"))
	if err := failing.Open(); err == nil {
		t.Error("expected Open() error")
	}
}

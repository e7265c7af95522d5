package detector

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte{0xff, 0xd8, 0x01, 0x02, 0xff, 0xd9}

	if err := writeFrame(&buf, payload); err != nil {
		t.Fatalf("writeFrame() error = %v", err)
	}

	out := buf.Bytes()
	if got := binary.BigEndian.Uint32(out[:4]); got != uint32(len(payload)) {
		t.Errorf("length prefix = %d, want %d", got, len(payload))
	}
	if !bytes.Equal(out[4:], payload) {
		t.Errorf("payload = %v, want %v", out[4:], payload)
	}
}

func TestReadResponse(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    int
		wantErr bool
	}{
		{
			name: "no detections",
			line: `{"detections":[]}`,
			want: 0,
		},
		{
			name: "two detections",
			line: `{"detections":[{"class":1,"confidence":0.91,"bbox":[10,20,110,220],"name":"I Love You"},{"class":4,"confidence":0.4,"bbox":[0,0,5,5]}]}`,
			want: 2,
		},
		{
			name:    "service error",
			line:    `{"detections":[],"error":"model not loaded"}`,
			wantErr: true,
		},
		{
			name:    "garbage",
			line:    `not json`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bufio.NewReader(strings.NewReader(tt.line + "\n"))
			dets, err := readResponse(r)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("readResponse() error = %v", err)
			}
			if len(dets) != tt.want {
				t.Errorf("len = %d, want %d", len(dets), tt.want)
			}
		})
	}

	t.Run("fields", func(t *testing.T) {
		r := bufio.NewReader(strings.NewReader(`{"detections":[{"class":1,"confidence":1.3,"bbox":[10,20,110,220],"name":"I Love You"},{"class":7,"confidence":0.6}]}` + "\n"))
		dets, err := readResponse(r)
		if err != nil {
			t.Fatalf("readResponse() error = %v", err)
		}

		d := dets[0]
		if d.ClassID != 1 || d.Label != "I Love You" {
			t.Errorf("detection = %+v", d)
		}
		if d.Confidence != 1 {
			t.Errorf("Confidence = %v, want clamped to 1", d.Confidence)
		}
		if d.BBox != image.Rect(10, 20, 110, 220) {
			t.Errorf("BBox = %v", d.BBox)
		}
		if dets[1].DisplayLabel() != "Class_7" {
			t.Errorf("DisplayLabel() = %q, want Class_7", dets[1].DisplayLabel())
		}
	})

	t.Run("closed stream", func(t *testing.T) {
		if _, err := readResponse(bufio.NewReader(strings.NewReader(""))); err == nil {
			t.Error("expected error on EOF")
		}
	})
}

func TestNewYOLODetector_MissingScript(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Script = filepath.Join(t.TempDir(), "missing.py")

	_, err := NewYOLODetector(cfg)
	if !errors.Is(err, ErrDetectorUnavailable) {
		t.Errorf("error = %v, want ErrDetectorUnavailable", err)
	}
}

const echoService = `
import json, struct, sys
inp = sys.stdin.buffer
while True:
    head = inp.read(4)
    if len(head) < 4:
        break
    n = struct.unpack(">I", head)[0]
    inp.read(n)
    sys.stdout.write(json.dumps({"detections": [{"class": 3, "confidence": 0.8, "bbox": [1, 2, 3, 4], "name": "Please", "size": n}]}) + "\n")
    sys.stdout.flush()
`

func TestYOLODetector_Subprocess(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping subprocess test in short mode")
	}
	python, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not available")
	}

	script := filepath.Join(t.TempDir(), "service.py")
	if err := os.WriteFile(script, []byte(echoService), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.Script = script
	cfg.Python = python
	d, err := NewYOLODetector(cfg)
	if err != nil {
		t.Fatalf("NewYOLODetector() error = %v", err)
	}
	defer d.Close()

	for i := 0; i < 3; i++ {
		dets, err := d.DetectJPEG([]byte("fake-jpeg"))
		if err != nil {
			t.Fatalf("DetectJPEG() error = %v", err)
		}
		if len(dets) != 1 || dets[0].ClassID != 3 || dets[0].Label != "Please" {
			t.Errorf("detections = %+v", dets)
		}
	}

	if err := d.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	// Restarts lazily after Close.
	if _, err := d.DetectJPEG([]byte("again")); err != nil {
		t.Errorf("DetectJPEG() after Close error = %v", err)
	}
}

func TestIdleTimer(t *testing.T) {
	var fired atomic.Int32
	it := newIdleTimer(20*time.Millisecond, func() { fired.Add(1) })

	it.reset()
	time.Sleep(10 * time.Millisecond)
	it.reset()
	time.Sleep(60 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("fired = %d, want 1", got)
	}

	it.reset()
	it.stop()
	time.Sleep(40 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("fired after stop = %d, want 1", got)
	}

	disabled := newIdleTimer(0, func() { fired.Add(1) })
	disabled.reset()
	disabled.stop()
}

func TestMockDetector(t *testing.T) {
	m := NewMockDetector()

	dets, err := m.Detect(nil)
	if err != nil || len(dets) != 0 {
		t.Fatalf("empty mock = %v, %v", dets, err)
	}

	m.SetDetections(Hit(2, 0.9))
	m.Enqueue(Hit(5, 0.7), nil)

	first, _ := m.Detect(nil)
	second, _ := m.Detect(nil)
	third, _ := m.Detect(nil)
	if first[0].ClassID != 5 || len(second) != 0 || third[0].ClassID != 2 {
		t.Errorf("sequence = %v %v %v", first, second, third)
	}

	m.SetError(errors.New("boom"))
	if _, err := m.Detect(nil); err == nil {
		t.Error("expected error")
	}
	if m.Calls() != 5 {
		t.Errorf("Calls() = %d, want 5", m.Calls())
	}
}

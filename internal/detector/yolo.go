package detector

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/game"
)

const serviceScript = "yolo_service.py"

// YOLODetector runs the sign model in a Python subprocess.
// The process starts on the first frame and stops after IdleTimeout.
type YOLODetector struct {
	config Config
	script string
	python string

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  *bufio.Reader
	started bool
	idle    *idleTimer
}

// NewYOLODetector locates the inference service. It does not start it.
func NewYOLODetector(cfg Config) (*YOLODetector, error) {
	script := cfg.Script
	if script == "" {
		script = findScript()
	}
	if script == "" {
		return nil, fmt.Errorf("%w: %s not found", ErrDetectorUnavailable, serviceScript)
	}
	if _, err := os.Stat(script); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDetectorUnavailable, err)
	}

	python := cfg.Python
	if python == "" {
		python = findVenvPython()
	}
	if python == "" {
		python = "python3"
	}

	d := &YOLODetector{
		config: cfg,
		script: script,
		python: python,
	}
	d.idle = newIdleTimer(cfg.IdleTimeout, d.stopIdle)
	return d, nil
}

// Detect encodes the frame as JPEG and classifies it.
func (d *YOLODetector) Detect(frame *gocv.Mat) ([]game.Detection, error) {
	if frame == nil || frame.Empty() {
		return []game.Detection{}, nil
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	return d.DetectJPEG(buf.GetBytes())
}

// DetectJPEG classifies an already encoded frame.
func (d *YOLODetector) DetectJPEG(jpeg []byte) ([]game.Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	if err := writeFrame(d.stdin, jpeg); err != nil {
		d.shutdown()
		return nil, err
	}
	dets, err := readResponse(d.stdout)
	if err != nil {
		d.shutdown()
		return nil, err
	}

	d.idle.reset()
	return dets, nil
}

// Close stops the subprocess.
func (d *YOLODetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.idle.stop()
	return d.shutdown()
}

func (d *YOLODetector) ensureStarted() error {
	if d.started {
		return nil
	}

	args := []string{d.script, "--conf", strconv.FormatFloat(d.config.MinConfidence, 'f', -1, 64)}
	if d.config.Model != "" {
		args = append(args, "--weights", d.config.Model)
	}
	cmd := exec.Command(d.python, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start %s: %v", ErrDetectorUnavailable, d.script, err)
	}

	d.cmd = cmd
	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true
	return nil
}

func (d *YOLODetector) stopIdle() {
	d.mu.Lock()
	defer d.mu.Unlock()
	_ = d.shutdown()
}

func (d *YOLODetector) shutdown() error {
	if !d.started {
		return nil
	}

	_ = d.stdin.Close()
	err := d.cmd.Wait()

	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil
	return err
}

func findScript() string {
	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}
	home, _ := os.UserHomeDir()

	return firstExisting(
		filepath.Join("scripts", serviceScript),
		filepath.Join("..", "scripts", serviceScript),
		filepath.Join(execDir, "scripts", serviceScript),
		filepath.Join(home, ".mudra", "scripts", serviceScript),
	)
}

func findVenvPython() string {
	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}
	home, _ := os.UserHomeDir()

	return firstExisting(
		filepath.Join("venv", "bin", "python"),
		filepath.Join("..", "venv", "bin", "python"),
		filepath.Join(execDir, "venv", "bin", "python"),
		filepath.Join(home, ".mudra", "venv", "bin", "python"),
	)
}

func firstExisting(paths ...string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			return abs
		}
		return p
	}
	return ""
}

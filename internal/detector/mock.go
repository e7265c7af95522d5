package detector

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/game"
)

// MockDetector returns preset detections. It is safe for concurrent use.
type MockDetector struct {
	mu         sync.Mutex
	detections []game.Detection
	queue      [][]game.Detection
	err        error
	calls      int
}

// NewMockDetector creates an empty MockDetector.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetDetections sets the detections returned by every Detect call.
func (m *MockDetector) SetDetections(dets []game.Detection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detections = dets
}

// Enqueue adds batches returned in order before falling back to SetDetections.
func (m *MockDetector) Enqueue(batches ...[]game.Detection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, batches...)
}

// SetError makes Detect fail with err.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect was called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the next queued batch, the preset detections or the preset error.
func (m *MockDetector) Detect(_ *gocv.Mat) ([]game.Detection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]
		return next, nil
	}
	return m.detections, nil
}

// Close is a no-op.
func (m *MockDetector) Close() error {
	return nil
}

// Hit builds a single-detection batch.
func Hit(classID int, confidence float64) []game.Detection {
	return []game.Detection{{ClassID: classID, Confidence: confidence}}
}

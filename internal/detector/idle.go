package detector

import (
	"sync"
	"time"
)

// idleTimer runs fn once after d elapses without a reset.
// A zero or negative d disables it.
type idleTimer struct {
	d  time.Duration
	fn func()

	mu sync.Mutex
	t  *time.Timer
}

func newIdleTimer(d time.Duration, fn func()) *idleTimer {
	return &idleTimer{d: d, fn: fn}
}

func (i *idleTimer) reset() {
	if i == nil || i.d <= 0 {
		return
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.t != nil {
		i.t.Stop()
	}
	i.t = time.AfterFunc(i.d, i.fn)
}

func (i *idleTimer) stop() {
	if i == nil {
		return
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.t != nil {
		i.t.Stop()
		i.t = nil
	}
}

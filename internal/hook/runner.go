package hook

import (
	"context"
	"sync"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/game"
	"github.com/ayusman/mudra/pkg/logger"
	"github.com/ayusman/mudra/pkg/metrics"
)

// Runner is an app.Sink that fires hooks in the background. At most
// maxInFlight hooks run at once; events arriving while all slots are busy
// are dropped.
type Runner struct {
	manager  *Manager
	executor *Executor
	metrics  *metrics.Manager
	log      logger.Logger

	slots chan struct{}
	wg    sync.WaitGroup

	mu        sync.Mutex
	sessionID string
	closed    bool
}

var _ app.Sink = (*Runner)(nil)

const maxInFlight = 4

// NewRunner creates a Runner. m may be nil.
func NewRunner(manager *Manager, executor *Executor, m *metrics.Manager, log logger.Logger) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{
		manager:  manager,
		executor: executor,
		metrics:  m,
		log:      log,
		slots:    make(chan struct{}, maxInFlight),
	}
}

// Handle implements app.Sink.
func (r *Runner) Handle(ev app.Event) {
	switch ev.Type {
	case app.EventSession:
		r.mu.Lock()
		r.sessionID = ev.SessionID
		r.mu.Unlock()
		r.fire(EventSessionStart, Request{
			Event:     EventSessionStart,
			SessionID: ev.SessionID,
			Time:      ev.Time,
		})
	case app.EventOutcome:
		done, ok := ev.Outcome.(game.Completed)
		if !ok {
			return
		}
		r.mu.Lock()
		sid := r.sessionID
		r.mu.Unlock()
		r.fire(EventCompleted, Request{
			Event:     EventCompleted,
			SessionID: sid,
			SignID:    done.SignID,
			SignName:  done.SignName,
			Score:     ev.Stats.Score,
			Attempts:  ev.Stats.Attempts,
			Accuracy:  ev.Stats.Accuracy,
			Time:      ev.Time,
		})
	}
}

func (r *Runner) fire(event string, req Request) {
	hooks := r.manager.For(event)
	if len(hooks) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	for _, h := range hooks {
		select {
		case r.slots <- struct{}{}:
		default:
			r.log.Warn(context.Background(), "hook skipped, too many running", logger.String("hook", h.Manifest.Name))
			r.metrics.RecordHookRun(h.Manifest.Name, "skipped")
			continue
		}

		r.wg.Add(1)
		go func(h *Hook) {
			defer func() {
				<-r.slots
				r.wg.Done()
			}()
			r.run(h, req)
		}(h)
	}
}

func (r *Runner) run(h *Hook, req Request) {
	ctx := context.Background()
	name := h.Manifest.Name

	resp, err := r.executor.Execute(ctx, h, &req)
	switch {
	case err != nil:
		r.metrics.RecordHookRun(name, "error")
		r.log.Warn(ctx, "hook failed", logger.String("hook", name), logger.String("event", req.Event), logger.Error(err))
	case !resp.Success:
		r.metrics.RecordHookRun(name, "failed")
		r.log.Warn(ctx, "hook reported failure", logger.String("hook", name), logger.String("error", resp.Error))
	default:
		r.metrics.RecordHookRun(name, "ok")
		r.log.Debug(ctx, "hook ran", logger.String("hook", name), logger.String("event", req.Event))
	}
}

// Close stops accepting events and waits for running hooks.
func (r *Runner) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.wg.Wait()
}

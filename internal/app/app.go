// Package app wires the camera, the detector and the game engine together.
//
// A capture worker reads frames, runs the detector while a sign is requested
// and pushes detection batches onto a buffered channel. A single consumer
// goroutine drains the channel into the engine, so the engine only ever sees
// one caller at a time.
package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/catalog"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/game"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/pkg/logger"
	"github.com/ayusman/mudra/pkg/metrics"
)

var (
	// ErrNotRunning is returned by Submit before Start or after Stop.
	ErrNotRunning = errors.New("app is not running")
	// ErrNoCamera is returned by StartCamera when no camera was configured.
	ErrNoCamera = errors.New("no camera configured")
)

// Config holds the app's tunables.
type Config struct {
	Tunables game.Tunables
	// NextSignDelay is the pause between a completion and the next selection.
	NextSignDelay time.Duration
	// BatchBuffer bounds the queue between the capture worker and the engine.
	BatchBuffer int
	// FPS paces the capture worker.
	FPS int
}

// DefaultConfig returns the standard app configuration.
func DefaultConfig() Config {
	return Config{
		Tunables:      game.DefaultTunables(),
		NextSignDelay: 3 * time.Second,
		BatchBuffer:   4,
		FPS:           capture.DefaultFPS,
	}
}

// Deps are the collaborators. Only Catalog is required.
type Deps struct {
	Catalog  *catalog.Catalog
	Camera   capture.Camera
	Detector detector.Detector
	// Frames receives annotated JPEG frames for streaming.
	Frames  *capture.FrameBuffer
	Tracker *session.Tracker
	Metrics *metrics.Manager
	Logger  logger.Logger
	Rand    *rand.Rand
}

// Snapshot is a consistent read of the app state.
type Snapshot struct {
	Stats        game.GameStats `json:"stats"`
	Target       *catalog.Sign  `json:"target"`
	Session      session.Stats  `json:"session"`
	AwaitingNext bool           `json:"awaiting_next"`
	CameraActive bool           `json:"camera_active"`
	LastError    string         `json:"last_error,omitempty"`
}

// App is the tutor runtime.
type App struct {
	cfg      Config
	log      logger.Logger
	metrics  *metrics.Manager
	catalog  *catalog.Catalog
	engine   *game.Engine
	selector *game.Selector
	tracker  *session.Tracker
	camera   capture.Camera
	detector detector.Detector
	frames   *capture.FrameBuffer

	// mu guards the engine and everything below it.
	mu         sync.RWMutex
	seq        uint64
	pending    *time.Timer
	pendingGen uint64
	lastErr    error
	queued     []Event

	// sinkMu is taken before mu is released so sinks see events in order.
	sinkMu sync.Mutex
	sinks  []Sink

	runMu         sync.Mutex
	batches       chan []game.Detection
	done          chan struct{}
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	captureCancel context.CancelFunc
	captureDone   chan struct{}
}

// New builds an App. It does not touch the camera.
func New(cfg Config, deps Deps) (*App, error) {
	if deps.Catalog == nil {
		return nil, fmt.Errorf("%w: catalog is required", game.ErrInvalidConfig)
	}
	if cfg.BatchBuffer < 1 {
		cfg.BatchBuffer = 1
	}
	if cfg.FPS <= 0 {
		cfg.FPS = capture.DefaultFPS
	}
	if cfg.NextSignDelay < 0 {
		cfg.NextSignDelay = 0
	}

	tracker := deps.Tracker
	if tracker == nil {
		tracker = session.NewTracker()
	}
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}

	engine, err := game.NewEngine(deps.Catalog, cfg.Tunables, tracker)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		log:      log,
		metrics:  deps.Metrics,
		catalog:  deps.Catalog,
		engine:   engine,
		selector: game.NewSelector(deps.Catalog, engine, deps.Rand),
		tracker:  tracker,
		camera:   deps.Camera,
		detector: deps.Detector,
		frames:   deps.Frames,
	}, nil
}

// AddSink registers a sink for all future events.
func (a *App) AddSink(s Sink) {
	a.sinkMu.Lock()
	defer a.sinkMu.Unlock()
	a.sinks = append(a.sinks, s)
}

// Catalog returns the sign catalog.
func (a *App) Catalog() *catalog.Catalog {
	return a.catalog
}

// Start runs the consumer loop, starts a session with a first sign and,
// when a camera is configured, starts capturing. A camera failure is
// reported to sinks and returned, but the app keeps running so batches can
// still be submitted.
func (a *App) Start(ctx context.Context) error {
	a.runMu.Lock()
	if a.cancel != nil {
		a.runMu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.batches = make(chan []game.Detection, a.cfg.BatchBuffer)
	a.done = make(chan struct{})
	batches := a.batches
	a.wg.Add(1)
	a.runMu.Unlock()

	go func() {
		defer a.wg.Done()
		a.consume(runCtx, batches)
	}()

	if _, err := a.StartSession(); err != nil {
		return err
	}
	a.log.Info(ctx, "tutor started")

	if a.camera != nil {
		return a.StartCamera()
	}
	return nil
}

// Stop halts capture and the consumer loop and releases the camera and
// detector. Pending batches are discarded.
func (a *App) Stop() {
	a.StopCamera()

	a.runMu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel = nil
	a.batches = nil
	a.done = nil
	a.runMu.Unlock()

	if cancel != nil {
		cancel()
		close(done)
	}
	a.wg.Wait()

	a.mu.Lock()
	a.cancelPendingLocked()
	a.mu.Unlock()

	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			a.log.Warn(context.Background(), "close detector", logger.Error(err))
		}
	}
	a.log.Info(context.Background(), "tutor stopped")
}

// Submit queues a detection batch for the engine, blocking while the queue
// is full. It returns ErrNotRunning if the app stops while it waits.
func (a *App) Submit(ctx context.Context, batch []game.Detection) error {
	a.runMu.Lock()
	ch, done := a.batches, a.done
	a.runMu.Unlock()
	if ch == nil {
		return ErrNotRunning
	}

	select {
	case ch <- batch:
		return nil
	case <-done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

// offer queues a batch without blocking and reports whether it was accepted.
func (a *App) offer(batch []game.Detection) bool {
	a.runMu.Lock()
	ch := a.batches
	a.runMu.Unlock()
	if ch == nil {
		return false
	}

	select {
	case ch <- batch:
		return true
	default:
		a.metrics.RecordDroppedBatch()
		return false
	}
}

func (a *App) consume(ctx context.Context, batches <-chan []game.Detection) {
	for {
		select {
		case <-ctx.Done():
			return
		case b := <-batches:
			a.ProcessBatch(b)
		}
	}
}

// ProcessBatch reconciles one batch and notifies sinks. The consumer loop
// calls it for every queued batch; it is exported for synchronous callers
// such as replays.
func (a *App) ProcessBatch(batch []game.Detection) game.Outcome {
	ctx := context.Background()

	a.mu.Lock()
	target := a.targetLocked()
	out := a.engine.Process(batch)

	a.metrics.RecordFrame()
	if err := a.metrics.RecordOutcome(out.Kind().String()); err != nil {
		a.log.Debug(ctx, "record outcome", logger.Error(err))
	}

	ev := a.eventLocked(EventOutcome)
	ev.Outcome = out
	ev.Target = target

	switch o := out.(type) {
	case game.Wrong:
		for _, d := range o.Detected {
			if !d.Known {
				a.log.Debug(ctx, "detection for unknown class", logger.Int("class_id", d.ClassID), logger.String("label", d.Label))
			}
		}
	case game.Completed:
		a.log.Info(ctx, "sign completed",
			logger.String("sign", o.SignName),
			logger.Int("score", o.Score),
			logger.Int("attempts", o.Attempts))
		a.metrics.RecordCompletion(o.SignName)
		// Frames between now and the next selection are not scored.
		a.engine.ClearTarget()
		a.scheduleNextLocked()
	}

	a.publishAndUnlock(ev)
	return out
}

// NextSign picks a new random sign immediately, cancelling any scheduled pick.
func (a *App) NextSign() (catalog.Sign, error) {
	a.mu.Lock()
	a.cancelPendingLocked()
	sign, err := a.selector.Select()
	if err != nil {
		a.mu.Unlock()
		return catalog.Sign{}, err
	}
	a.publishAndUnlock(a.targetEventLocked())

	a.log.Info(context.Background(), "new sign", logger.String("sign", sign.Name))
	return sign, nil
}

// SetTarget requests a specific sign.
func (a *App) SetTarget(id int) (catalog.Sign, error) {
	a.mu.Lock()
	if err := a.engine.SetTarget(id); err != nil {
		a.mu.Unlock()
		return catalog.Sign{}, err
	}
	a.cancelPendingLocked()
	sign, _ := a.engine.Target()
	a.publishAndUnlock(a.targetEventLocked())
	return sign, nil
}

// StartSession resets score and session statistics and selects a first sign.
// It returns the new session id.
func (a *App) StartSession() (string, error) {
	a.mu.Lock()
	a.cancelPendingLocked()
	a.engine.Reset()
	id := a.tracker.StartSession()

	ev := a.eventLocked(EventSession)
	ev.SessionID = id
	a.publishAndUnlock(ev)

	if _, err := a.NextSign(); err != nil {
		return id, err
	}
	return id, nil
}

// SetRequiredStreak changes the completion length at runtime.
func (a *App) SetRequiredStreak(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.engine.SetRequiredStreak(n)
}

// Snapshot returns the current state.
func (a *App) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s := Snapshot{
		Stats:        a.engine.Stats(),
		Target:       a.targetLocked(),
		Session:      a.tracker.Stats(),
		AwaitingNext: a.pending != nil,
		CameraActive: a.CameraActive(),
	}
	if a.lastErr != nil {
		s.LastError = a.lastErr.Error()
	}
	return s
}

func (a *App) targetLocked() *catalog.Sign {
	sign, ok := a.engine.Target()
	if !ok {
		return nil
	}
	return &sign
}

func (a *App) targetIDLocked() *int {
	return a.engine.State().TargetID
}

func (a *App) scheduleNextLocked() {
	a.cancelPendingLocked()
	a.pendingGen++
	gen := a.pendingGen
	a.pending = time.AfterFunc(a.cfg.NextSignDelay, func() { a.autoNext(gen) })

	ev := a.eventLocked(EventStatus)
	ev.Status = StatusAwaitingNext
	a.queued = append(a.queued, ev)
}

func (a *App) cancelPendingLocked() {
	if a.pending != nil {
		a.pending.Stop()
		a.pending = nil
	}
	a.pendingGen++
}

func (a *App) autoNext(gen uint64) {
	a.mu.Lock()
	if gen != a.pendingGen {
		a.mu.Unlock()
		return
	}
	a.pending = nil
	sign, err := a.selector.Select()
	if err != nil {
		a.mu.Unlock()
		a.log.Error(context.Background(), "select next sign", logger.Error(err))
		return
	}
	a.publishAndUnlock(a.targetEventLocked())
	a.log.Info(context.Background(), "new sign", logger.String("sign", sign.Name))
}

func (a *App) eventLocked(t EventType) Event {
	a.seq++
	stats := a.engine.Stats()
	a.metrics.SetProgress(stats.Streak, stats.Score)
	return Event{
		Type:  t,
		Seq:   a.seq,
		Time:  time.Now(),
		Stats: stats,
	}
}

func (a *App) targetEventLocked() Event {
	ev := a.eventLocked(EventTarget)
	ev.Target = a.targetLocked()
	return ev
}

// publishAndUnlock releases mu and delivers ev, plus any events queued while
// mu was held, to every sink in order.
func (a *App) publishAndUnlock(ev Event) {
	events := append([]Event{ev}, a.queued...)
	a.queued = nil

	a.sinkMu.Lock()
	a.mu.Unlock()
	defer a.sinkMu.Unlock()

	for _, e := range events {
		for _, s := range a.sinks {
			s.Handle(e)
		}
	}
}

// publishStatus delivers a status event outside any engine change.
func (a *App) publishStatus(status string, err error) {
	a.mu.Lock()
	if err != nil {
		a.lastErr = err
	}
	ev := a.eventLocked(EventStatus)
	ev.Status = status
	ev.Err = err
	a.publishAndUnlock(ev)
}

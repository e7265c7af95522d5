// Package tray provides a system tray menu for the sign tutor.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/render"
)

// Tray represents the system tray application. It is an app.Sink: events
// update the menu labels, and clicks call back into the caller.
type Tray struct {
	onCamera func(active bool)
	onNext   func()
	onOpen   func()
	onQuit   func()

	mu    sync.RWMutex
	view  view
	ready bool

	// Menu items stored for later updates
	menuCamera *systray.MenuItem
	menuTarget *systray.MenuItem
	menuHint   *systray.MenuItem
	menuScore  *systray.MenuItem
}

// view is what the menu shows.
type view struct {
	cameraActive bool
	target       string
	hint         string
	score        string
	progress     string
}

// New creates a Tray. cameraActive is the initial camera state.
func New(cameraActive bool) *Tray {
	return &Tray{
		view: view{
			cameraActive: cameraActive,
			target:       "Sign: none",
			score:        "Score: 0/0",
		},
	}
}

// OnCamera sets the callback called when the camera item is clicked. It
// receives the requested state.
func (t *Tray) OnCamera(fn func(active bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCamera = fn
}

// OnNext sets the callback for the "Next sign" item.
func (t *Tray) OnNext(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onNext = fn
}

// OnOpen sets the callback for the "Open in browser" item.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback called when the quit item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit closes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra sign tutor")

	t.mu.Lock()
	t.menuTarget = systray.AddMenuItem("", "Sign to perform")
	t.menuTarget.Disable()
	t.menuHint = systray.AddMenuItem("", "How to perform it")
	t.menuHint.Disable()
	t.menuScore = systray.AddMenuItem("", "Session score")
	t.menuScore.Disable()
	systray.AddSeparator()

	t.menuCamera = systray.AddMenuItem("", "Start or stop the camera")
	menuNext := systray.AddMenuItem("Next sign", "Skip to another sign")
	menuOpen := systray.AddMenuItem("Open in browser...", "Open the web interface")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")

	t.ready = true
	t.applyLocked()
	t.mu.Unlock()

	go func() {
		for {
			select {
			case <-t.menuCamera.ClickedCh:
				t.handleCamera()
			case <-menuNext.ClickedCh:
				t.call(func() func() { return t.onNext })
			case <-menuOpen.ClickedCh:
				t.call(func() func() { return t.onOpen })
			case <-menuQuit.ClickedCh:
				t.call(func() func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

// Handle implements app.Sink.
func (t *Tray) Handle(ev app.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.view = t.view.update(ev)
	if t.ready {
		t.applyLocked()
	}
}

func (v view) update(ev app.Event) view {
	switch ev.Type {
	case app.EventTarget:
		if ev.Target != nil {
			v.target = "Sign: " + ev.Target.Name
			v.hint = ev.Target.Instruction
		}
	case app.EventSession:
		v.target = "Sign: none"
		v.hint = ""
	case app.EventStatus:
		switch ev.Status {
		case app.StatusCameraStarted:
			v.cameraActive = true
		case app.StatusCameraStopped, app.StatusCameraError:
			v.cameraActive = false
		case app.StatusAwaitingNext:
			v.target = "Sign: next one coming..."
			v.hint = ""
		}
	}

	s := ev.Stats
	v.score = fmt.Sprintf("Score: %d/%d (%.0f%%)", s.Score, s.Attempts, s.Accuracy)
	if s.TargetID != nil && s.RequiredStreak > 0 {
		v.progress = render.ProgressBar(s.Streak, s.RequiredStreak, 10)
	} else {
		v.progress = ""
	}
	return v
}

func (v view) cameraTitle() string {
	if v.cameraActive {
		return "● Camera on"
	}
	return "○ Camera off"
}

func (v view) targetTitle() string {
	if v.progress == "" {
		return v.target
	}
	return v.target + "  " + v.progress
}

func (t *Tray) applyLocked() {
	t.menuCamera.SetTitle(t.view.cameraTitle())
	t.menuTarget.SetTitle(t.view.targetTitle())
	t.menuScore.SetTitle(t.view.score)
	if t.view.hint == "" {
		t.menuHint.Hide()
	} else {
		t.menuHint.SetTitle(t.view.hint)
		t.menuHint.Show()
	}
}

func (t *Tray) handleCamera() {
	t.mu.RLock()
	want := !t.view.cameraActive
	callback := t.onCamera
	t.mu.RUnlock()

	// The label follows the status event, not the click.
	if callback != nil {
		callback(want)
	}
}

func (t *Tray) call(get func() func()) {
	t.mu.RLock()
	callback := get()
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// CameraActive returns the camera state as last reported by events.
func (t *Tray) CameraActive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.view.cameraActive
}

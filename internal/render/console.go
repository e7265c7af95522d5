package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/game"
)

// Console is an app.Sink that prints events to a terminal. Repeated outcomes
// of the same kind are collapsed so a steady camera feed does not flood the
// output.
type Console struct {
	mu   sync.Mutex
	w    io.Writer
	last string

	correct   lipgloss.Style
	wrong     lipgloss.Style
	muted     lipgloss.Style
	highlight lipgloss.Style
	errStyle  lipgloss.Style
}

var _ app.Sink = (*Console)(nil)

// NewConsole creates a Console writing to w. Colors follow w's capabilities.
func NewConsole(w io.Writer) *Console {
	r := lipgloss.NewRenderer(w)
	return &Console{
		w:         w,
		correct:   r.NewStyle().Foreground(lipgloss.Color("#52C41A")),
		wrong:     r.NewStyle().Foreground(lipgloss.Color("#FF4D4F")),
		muted:     r.NewStyle().Foreground(lipgloss.Color("#8C8C8C")),
		highlight: r.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true),
		errStyle:  r.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true),
	}
}

// Handle implements app.Sink.
func (c *Console) Handle(ev app.Event) {
	line := c.format(ev)
	if line == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if ev.Type == app.EventOutcome {
		key := dedupKey(ev)
		if key != "" && key == c.last {
			return
		}
		c.last = key
	} else {
		c.last = ""
	}
	fmt.Fprintln(c.w, line)
}

func (c *Console) format(ev app.Event) string {
	switch ev.Type {
	case app.EventOutcome:
		return c.formatOutcome(ev)
	case app.EventTarget:
		if ev.Target == nil {
			return ""
		}
		return c.highlight.Render(NewChallenge(*ev.Target)) + "\n" + c.muted.Render(Hint(*ev.Target))
	case app.EventSession:
		return c.muted.Render("Session " + ev.SessionID + " started")
	case app.EventStatus:
		return c.formatStatus(ev)
	}
	return ""
}

func (c *Console) formatOutcome(ev app.Event) string {
	msg := oneLine(Message(ev.Outcome, ev.Target))
	switch o := ev.Outcome.(type) {
	case game.NoActiveTarget:
		return ""
	case game.Correct:
		return c.correct.Render(msg) + " " + c.muted.Render(ProgressBar(o.Streak, ev.Stats.RequiredStreak, 15))
	case game.Wrong:
		return c.wrong.Render(msg)
	case game.Completed:
		return c.highlight.Render(msg) + " " + c.muted.Render(fmt.Sprintf("score %d, accuracy %.0f%%", ev.Stats.Score, ev.Stats.Accuracy))
	default:
		return c.muted.Render(msg)
	}
}

func (c *Console) formatStatus(ev app.Event) string {
	switch ev.Status {
	case app.StatusCameraStarted:
		return c.muted.Render("Camera started! Show me your signs!")
	case app.StatusCameraStopped:
		return c.muted.Render("Camera stopped")
	case app.StatusAwaitingNext:
		return ""
	}
	text := strings.ReplaceAll(ev.Status, "_", " ")
	if ev.Err != nil {
		text += ": " + ev.Err.Error()
	}
	return c.errStyle.Render(text)
}

func dedupKey(ev app.Event) string {
	switch o := ev.Outcome.(type) {
	case game.Correct:
		// One line per quarter of the way to completion.
		return fmt.Sprintf("correct:%d", o.Streak*4/max(ev.Stats.RequiredStreak, 1))
	case game.Wrong:
		labels := make([]string, len(o.Detected))
		for i, d := range o.Detected {
			labels[i] = d.Label
		}
		return "wrong:" + strings.Join(labels, ",")
	case game.Completed:
		// Never collapsed.
		return ""
	default:
		return ev.Outcome.Kind().String()
	}
}

func oneLine(s string) string {
	return strings.ReplaceAll(s, "\n", " | ")
}

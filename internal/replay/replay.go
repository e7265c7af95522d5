// Package replay runs recorded detection sequences through the game engine
// and checks the outcome of every frame against the fixture's expectations.
package replay

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/ayusman/mudra/internal/catalog"
	"github.com/ayusman/mudra/internal/game"
	"github.com/ayusman/mudra/internal/session"
)

// ErrInvalidFixture is returned for fixtures that cannot be replayed.
var ErrInvalidFixture = errors.New("invalid fixture")

// Fixture is a scripted detection sequence.
type Fixture struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Tunables override the engine defaults; omitted fields keep the default.
	RequiredStreak            *int     `json:"required_streak,omitempty"`
	TargetConfidenceThreshold *float64 `json:"target_confidence_threshold,omitempty"`
	NoDetectionDecay          *int     `json:"no_detection_decay,omitempty"`
	WrongDetectionDecay       *int     `json:"wrong_detection_decay,omitempty"`

	// Signs replaces the default catalog when set.
	Signs []catalog.Sign `json:"signs,omitempty"`
	// Target is selected before the first frame. Nil leaves the engine
	// without a target.
	Target *int `json:"target,omitempty"`

	Frames []Frame `json:"frames"`

	path string
}

// Path returns the file the fixture was loaded from, if any.
func (f *Fixture) Path() string { return f.path }

// Frame is one batch of detections, optionally repeated.
type Frame struct {
	// SetTarget selects a sign before the frame is processed.
	SetTarget *int `json:"set_target,omitempty"`
	// ClearTarget drops the target before the frame is processed.
	ClearTarget bool        `json:"clear_target,omitempty"`
	Detections  []Detection `json:"detections"`
	// Repeat processes the frame this many times. Zero means once.
	Repeat int          `json:"repeat,omitempty"`
	Expect *Expectation `json:"expect,omitempty"`
}

// Detection is the fixture form of game.Detection.
type Detection struct {
	Class      int     `json:"class"`
	Confidence float64 `json:"confidence"`
	Label      string  `json:"label,omitempty"`
	BBox       []int   `json:"bbox,omitempty"`
}

func (d Detection) toGame() game.Detection {
	out := game.Detection{ClassID: d.Class, Confidence: d.Confidence, Label: d.Label}
	if len(d.BBox) == 4 {
		out.BBox = image.Rect(d.BBox[0], d.BBox[1], d.BBox[2], d.BBox[3])
	}
	return out
}

// Expectation is checked after the last repetition of a frame. Nil fields
// are not checked.
type Expectation struct {
	Kind     string `json:"kind,omitempty"`
	Streak   *int   `json:"streak,omitempty"`
	Score    *int   `json:"score,omitempty"`
	Attempts *int   `json:"attempts,omitempty"`
	// Target is compared against the engine target; -1 means no target.
	Target *int `json:"target,omitempty"`
}

// Mismatch is one failed expectation.
type Mismatch struct {
	Frame int    `json:"frame"`
	Field string `json:"field"`
	Want  string `json:"want"`
	Got   string `json:"got"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("frame %d: %s = %s, want %s", m.Frame, m.Field, m.Got, m.Want)
}

// Result is the outcome of replaying one fixture.
type Result struct {
	Name       string         `json:"name"`
	Steps      int            `json:"steps"`
	Outcomes   []game.Outcome `json:"-"`
	Kinds      []game.Kind    `json:"kinds"`
	Final      game.GameStats `json:"final"`
	Session    session.Stats  `json:"session"`
	Mismatches []Mismatch     `json:"mismatches,omitempty"`
}

// Failed reports whether any expectation did not hold.
func (r Result) Failed() bool {
	return len(r.Mismatches) > 0
}

// Parse decodes a fixture. Unknown fields are rejected so typos in
// expectations do not pass silently.
func Parse(data []byte) (*Fixture, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Load reads and parses a fixture file. The fixture name defaults to the
// file name.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.path = path
	if f.Name == "" {
		f.Name = filepath.Base(path)
	}
	return f, nil
}

// LoadDir loads every *.json fixture in dir, sorted by file name.
func LoadDir(dir string) ([]*Fixture, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	fixtures := make([]*Fixture, 0, len(paths))
	for _, p := range paths {
		f, err := Load(p)
		if err != nil {
			return nil, err
		}
		fixtures = append(fixtures, f)
	}
	return fixtures, nil
}

func (f *Fixture) validate() error {
	if len(f.Frames) == 0 {
		return fmt.Errorf("%w: no frames", ErrInvalidFixture)
	}
	for i, fr := range f.Frames {
		if fr.Repeat < 0 {
			return fmt.Errorf("%w: frame %d: negative repeat", ErrInvalidFixture, i)
		}
		if fr.SetTarget != nil && fr.ClearTarget {
			return fmt.Errorf("%w: frame %d: set_target and clear_target both set", ErrInvalidFixture, i)
		}
		if fr.Expect != nil && fr.Expect.Kind != "" && !knownKind(fr.Expect.Kind) {
			return fmt.Errorf("%w: frame %d: unknown kind %q", ErrInvalidFixture, i, fr.Expect.Kind)
		}
	}
	return nil
}

func knownKind(name string) bool {
	for k := game.KindNoActiveTarget; k <= game.KindCompleted; k++ {
		if k.String() == name {
			return true
		}
	}
	return false
}

func (f *Fixture) tunables() game.Tunables {
	t := game.DefaultTunables()
	if f.RequiredStreak != nil {
		t.RequiredStreak = *f.RequiredStreak
	}
	if f.TargetConfidenceThreshold != nil {
		t.TargetConfidenceThreshold = *f.TargetConfidenceThreshold
	}
	if f.NoDetectionDecay != nil {
		t.NoDetectionDecay = *f.NoDetectionDecay
	}
	if f.WrongDetectionDecay != nil {
		t.WrongDetectionDecay = *f.WrongDetectionDecay
	}
	return t
}

// Run replays the fixture on a fresh engine. An error means the fixture
// itself is unusable; failed expectations are reported in Result.
func Run(f *Fixture) (Result, error) {
	cat := catalog.Default()
	if len(f.Signs) > 0 {
		var err error
		if cat, err = catalog.New(f.Signs); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
		}
	}

	tracker := session.NewTracker()
	tracker.StartSession()
	engine, err := game.NewEngine(cat, f.tunables(), tracker)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}
	if f.Target != nil {
		if err := engine.SetTarget(*f.Target); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
		}
	}

	res := Result{Name: f.Name}
	for i, fr := range f.Frames {
		switch {
		case fr.SetTarget != nil:
			if err := engine.SetTarget(*fr.SetTarget); err != nil {
				return res, fmt.Errorf("%w: frame %d: %v", ErrInvalidFixture, i, err)
			}
		case fr.ClearTarget:
			engine.ClearTarget()
		}

		dets := make([]game.Detection, len(fr.Detections))
		for j, d := range fr.Detections {
			dets[j] = d.toGame()
		}

		n := max(fr.Repeat, 1)
		var last game.Outcome
		for range n {
			last = engine.Process(dets)
			res.Outcomes = append(res.Outcomes, last)
			res.Kinds = append(res.Kinds, last.Kind())
			res.Steps++
		}

		if fr.Expect != nil {
			res.Mismatches = append(res.Mismatches, check(i, fr.Expect, last, engine.State())...)
		}
	}

	res.Final = engine.Stats()
	res.Session = tracker.Stats()
	return res, nil
}

func check(frame int, want *Expectation, out game.Outcome, state game.ProgressState) []Mismatch {
	var ms []Mismatch
	add := func(field, w, g string) {
		if w != g {
			ms = append(ms, Mismatch{Frame: frame, Field: field, Want: w, Got: g})
		}
	}

	if want.Kind != "" {
		add("kind", want.Kind, out.Kind().String())
	}
	if want.Streak != nil {
		add("streak", strconv.Itoa(*want.Streak), strconv.Itoa(state.Streak))
	}
	if want.Score != nil {
		add("score", strconv.Itoa(*want.Score), strconv.Itoa(state.Score))
	}
	if want.Attempts != nil {
		add("attempts", strconv.Itoa(*want.Attempts), strconv.Itoa(state.Attempts))
	}
	if want.Target != nil {
		got := -1
		if state.TargetID != nil {
			got = *state.TargetID
		}
		add("target", strconv.Itoa(*want.Target), strconv.Itoa(got))
	}
	return ms
}

// Package catalog provides the immutable table of signs the tutor can ask for.
package catalog

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownSign is returned when a sign id is not present in the catalog.
var ErrUnknownSign = errors.New("unknown sign")

// ErrEmptyCatalog is returned when a catalog has no signs to choose from.
var ErrEmptyCatalog = errors.New("catalog is empty")

// UnknownName is the display name used for ids that are not in the catalog.
const UnknownName = "Unknown"

// Sign describes a single gesture the user can be asked to perform.
// The ID matches the class id produced by the detector model.
type Sign struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Instruction string `json:"instruction"`
	Tip         string `json:"tip"`
}

// Catalog is a read-only lookup of signs by id. It is safe for concurrent
// use because nothing mutates it after New returns.
type Catalog struct {
	signs map[int]Sign
	ids   []int
}

// New builds a Catalog from the given signs.
// Duplicate ids and signs without a name are rejected.
func New(signs []Sign) (*Catalog, error) {
	c := &Catalog{
		signs: make(map[int]Sign, len(signs)),
		ids:   make([]int, 0, len(signs)),
	}

	for _, s := range signs {
		if s.Name == "" {
			return nil, fmt.Errorf("sign %d has no name", s.ID)
		}
		if _, dup := c.signs[s.ID]; dup {
			return nil, fmt.Errorf("duplicate sign id %d", s.ID)
		}
		c.signs[s.ID] = s
		c.ids = append(c.ids, s.ID)
	}

	sort.Ints(c.ids)
	return c, nil
}

// Default returns the catalog of the six signs the bundled model was trained on.
func Default() *Catalog {
	c, err := New(DefaultSigns())
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultSigns returns a fresh copy of the built-in sign table.
func DefaultSigns() []Sign {
	return []Sign{
		{
			ID:          0,
			Name:        "Hello",
			Instruction: "Wave your hand or raise it in greeting",
			Tip:         "Keep your hand visible and move it gently",
		},
		{
			ID:          1,
			Name:        "I Love You",
			Instruction: "Extend thumb, index, and pinky fingers up",
			Tip:         "Make sure all three fingers are clearly extended",
		},
		{
			ID:          2,
			Name:        "No",
			Instruction: "Shake your head or wave hand side to side",
			Tip:         "Make a clear side-to-side motion",
		},
		{
			ID:          3,
			Name:        "Please",
			Instruction: "Place hand on chest, make circular motion",
			Tip:         "Keep the circular motion smooth and visible",
		},
		{
			ID:          4,
			Name:        "Thanks",
			Instruction: "Touch chin with fingertips, move hand forward",
			Tip:         "Start at chin and move hand away from face",
		},
		{
			ID:          5,
			Name:        "Yes",
			Instruction: "Nod your head or give thumbs up",
			Tip:         "Make the gesture clear and deliberate",
		},
	}
}

// Lookup returns the sign with the given id.
func (c *Catalog) Lookup(id int) (Sign, bool) {
	s, ok := c.signs[id]
	return s, ok
}

// Contains reports whether id is a known sign.
func (c *Catalog) Contains(id int) bool {
	_, ok := c.signs[id]
	return ok
}

// Name returns the display name for id, or UnknownName.
func (c *Catalog) Name(id int) string {
	if s, ok := c.signs[id]; ok {
		return s.Name
	}
	return UnknownName
}

// IDs returns all sign ids in ascending order.
func (c *Catalog) IDs() []int {
	out := make([]int, len(c.ids))
	copy(out, c.ids)
	return out
}

// Signs returns all signs ordered by id.
func (c *Catalog) Signs() []Sign {
	out := make([]Sign, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.signs[id])
	}
	return out
}

// Len returns the number of signs.
func (c *Catalog) Len() int {
	return len(c.ids)
}

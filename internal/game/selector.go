package game

import (
	"math/rand/v2"
	"time"

	"github.com/ayusman/mudra/internal/catalog"
)

// Selector picks the next sign to practice and installs it as the engine target.
type Selector struct {
	catalog *catalog.Catalog
	engine  *Engine
	rng     *rand.Rand
}

// NewSelector creates a Selector. A nil rng is replaced by a time-seeded source;
// tests should pass a fixed-seed *rand.Rand.
func NewSelector(cat *catalog.Catalog, engine *Engine, rng *rand.Rand) *Selector {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>32))
	}
	return &Selector{
		catalog: cat,
		engine:  engine,
		rng:     rng,
	}
}

// Select picks a sign uniformly at random, sets it as the engine target
// (which resets the streak) and returns it.
//
// Ids in excluding are skipped. When they cover the whole catalog the
// exclusion is ignored so a sign can always be chosen. Repeats of the
// previous sign are allowed unless the caller excludes it.
func (s *Selector) Select(excluding ...int) (catalog.Sign, error) {
	ids := s.catalog.IDs()
	if len(ids) == 0 {
		return catalog.Sign{}, catalog.ErrEmptyCatalog
	}

	candidates := ids
	if len(excluding) > 0 {
		skip := make(map[int]struct{}, len(excluding))
		for _, id := range excluding {
			skip[id] = struct{}{}
		}
		filtered := make([]int, 0, len(ids))
		for _, id := range ids {
			if _, ok := skip[id]; !ok {
				filtered = append(filtered, id)
			}
		}
		if len(filtered) > 0 {
			candidates = filtered
		}
	}

	id := candidates[s.rng.IntN(len(candidates))]
	if err := s.engine.SetTarget(id); err != nil {
		return catalog.Sign{}, err
	}

	sign, _ := s.catalog.Lookup(id)
	return sign, nil
}

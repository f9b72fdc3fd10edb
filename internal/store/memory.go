// internal/store/memory.go
//
// In-memory registry of live matches.
// Matches are process-local: their countdown timers run in this process, so
// they are never serialised to an external store.
//
// Characteristics:
//   - Stores *turn.Controller objects keyed by ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Delete and Close abort the match so no countdown outlives its entry.
//   - Sweep evicts matches nobody has touched since a cutoff (finished,
//     abandoned, or still forfeiting turns on an unwatched countdown).

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robalobadob/bullscows/internal/turn"
)

// ErrNotFound is returned by Get for unknown IDs.
var ErrNotFound = errors.New("match not found")

// Store defines the registry of live matches.
type Store interface {
	// Save adds or replaces a match.
	Save(ctx context.Context, m *turn.Controller) error

	// Get retrieves a match by ID.
	Get(ctx context.Context, id string) (*turn.Controller, error)

	// Delete aborts and forgets a match. Unknown IDs are ignored.
	Delete(ctx context.Context, id string) error

	// Sweep aborts and forgets every match last seen before cutoff and
	// returns how many were removed.
	Sweep(ctx context.Context, cutoff time.Time) int

	// Close aborts every match.
	Close()
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu      sync.RWMutex                // guards matches map
	matches map[string]*turn.Controller // keyed by Controller.ID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{matches: make(map[string]*turn.Controller)}
}

func (m *memory) Save(ctx context.Context, c *turn.Controller) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matches[c.ID] = c
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*turn.Controller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.matches[id]; ok {
		return c, nil
	}
	return nil, ErrNotFound
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	c, ok := m.matches[id]
	delete(m.matches, id)
	m.mu.Unlock()
	if ok {
		c.Abort()
	}
	return nil
}

func (m *memory) Sweep(ctx context.Context, cutoff time.Time) int {
	var stale []*turn.Controller
	m.mu.Lock()
	for id, c := range m.matches {
		if c.LastSeen().Before(cutoff) {
			stale = append(stale, c)
			delete(m.matches, id)
		}
	}
	m.mu.Unlock()

	for _, c := range stale {
		c.Abort()
	}
	return len(stale)
}

func (m *memory) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.matches {
		c.Abort()
		delete(m.matches, id)
	}
}

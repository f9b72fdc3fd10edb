// internal/leaderboard/store.go
//
// Storage collaborator contract for completed-run records, plus the
// in-memory implementation used in development and tests.
//
// Characteristics:
//   - Append-only: records are never edited or removed.
//   - Subscribe pushes the full record set (insertion order) once on
//     subscription and again after every append.
//   - Slow subscribers only ever see the latest set; intermediate sets are dropped.

package leaderboard

import (
	"context"
	"sync"
)

// Store persists completed runs and pushes the stored set to subscribers.
// Implementations: memory (this file), SQLite, Redis.
type Store interface {
	// Append stores r. The engine does not retry on failure.
	Append(ctx context.Context, r Record) error

	// Subscribe returns a channel receiving the full record set. The channel
	// is closed once ctx is done.
	Subscribe(ctx context.Context) (<-chan []Record, error)
}

// hub fans record sets out to subscribers, keeping only the newest set per
// subscriber.
type hub struct {
	mu   sync.Mutex
	subs map[chan []Record]struct{}
}

func newHub() *hub { return &hub{subs: make(map[chan []Record]struct{})} }

// add registers a subscriber seeded with initial and unregisters it when ctx ends.
func (h *hub) add(ctx context.Context, initial []Record) <-chan []Record {
	ch := make(chan []Record, 1)
	ch <- initial

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, ch)
		close(ch)
		h.mu.Unlock()
	}()
	return ch
}

// publish replaces any pending set with all.
func (h *hub) publish(all []Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case <-ch:
		default:
		}
		ch <- all
	}
}

// memory is an in-memory Store.
type memory struct {
	mu      sync.Mutex // guards records; held across publish to keep sets ordered
	records []Record
	hub     *hub
}

// NewMemoryStore constructs an empty in-memory Store.
func NewMemoryStore() Store {
	return &memory{hub: newHub()}
}

func (m *memory) Append(ctx context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	m.hub.publish(append([]Record(nil), m.records...))
	return nil
}

func (m *memory) Subscribe(ctx context.Context) (<-chan []Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hub.add(ctx, append([]Record(nil), m.records...)), nil
}

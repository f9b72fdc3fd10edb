// internal/leaderboard/board.go
//
// Read side of the leaderboard.
// Responsibilities:
//   - Follow a Store subscription and hold the newest record set.
//   - Rank that set on demand for the HTTP layer (see Rank).

package leaderboard

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/bullscows/internal/game"
)

// Board keeps the latest record set pushed by a Store and ranks it on demand.
type Board struct {
	mu      sync.RWMutex
	records []Record
	synced  chan struct{} // closed after the first set arrives
}

// Watch subscribes to st and keeps the Board current until ctx ends.
func Watch(ctx context.Context, st Store) (*Board, error) {
	sub, err := st.Subscribe(ctx)
	if err != nil {
		return nil, err
	}
	b := &Board{synced: make(chan struct{})}
	go func() {
		first := true
		for set := range sub {
			b.mu.Lock()
			b.records = set
			b.mu.Unlock()
			if first {
				close(b.synced)
				first = false
			}
			log.Debug().Int("records", len(set)).Msg("leaderboard updated")
		}
	}()
	return b, nil
}

// Synced is closed once the initial record set has been received.
func (b *Board) Synced() <-chan struct{} { return b.synced }

// Len is the number of records currently held.
func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.records)
}

// Top ranks the current set. See Rank.
func (b *Board) Top(mode game.Mode, d game.Difficulty, key SortKey) []Record {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Rank(b.records, mode, d, key)
}

// internal/leaderboard/sqlite.go
//
// SQLite-backed Store. Schema lives in assets/sql and is applied by the
// server's migrate step before the store is used.
//
// Subscribers are in-process: after each successful insert the full table is
// re-read and pushed. Another process writing the same file is not observed.

package leaderboard

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/bullscows/internal/game"
)

type sqliteStore struct {
	db  *sql.DB
	mu  sync.Mutex // serialises insert+publish so subscribers see sets in order
	hub *hub
}

// NewSQLiteStore wraps an open, migrated database.
func NewSQLiteStore(db *sql.DB) Store {
	return &sqliteStore{db: db, hub: newHub()}
}

func (s *sqliteStore) Append(ctx context.Context, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO leaderboard
            (id, player_name, mode, difficulty, guess_count, duration_s, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.PlayerName, string(r.Mode), string(r.Difficulty), r.GuessCount, r.Duration,
		r.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}

	// The row is committed; a failed reload only delays subscribers until
	// the next append.
	all, err := s.all(ctx)
	if err != nil {
		log.Warn().Err(err).Str("record", r.ID).Msg("reload leaderboard after insert")
		return nil
	}
	s.hub.publish(all)
	return nil
}

func (s *sqliteStore) Subscribe(ctx context.Context) (<-chan []Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return s.hub.add(ctx, all), nil
}

// all loads every record in insertion order.
func (s *sqliteStore) all(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, player_name, mode, difficulty, guess_count, duration_s, created_at
        FROM leaderboard
        ORDER BY rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var r Record
		var mode, diff string
		var created int64
		if err := rows.Scan(&r.ID, &r.PlayerName, &mode, &diff, &r.GuessCount, &r.Duration, &created); err != nil {
			return nil, err
		}
		r.Mode = game.Mode(mode)
		r.Difficulty = game.Difficulty(diff)
		r.Timestamp = time.UnixMilli(created).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// internal/leaderboard/rank.go
//
// Completed-run records and the ranking applied to them for display.
// Ranking is a pure function over whatever set the storage collaborator
// pushed last; stores never filter or sort.

package leaderboard

import (
	"errors"
	"sort"
	"time"

	"github.com/robalobadob/bullscows/internal/game"
)

// MaxEntries caps every ranked list.
const MaxEntries = 50

// Record is one solved half-round. Created once, never edited.
type Record struct {
	ID         string          `json:"id"`
	PlayerName string          `json:"playerName"`
	Mode       game.Mode       `json:"mode"`
	Difficulty game.Difficulty `json:"difficulty"`
	GuessCount int             `json:"guessCount"`
	Duration   int             `json:"duration"` // whole seconds
	Timestamp  time.Time       `json:"timestamp"`
}

// SortKey selects the primary ordering of a ranked list.
type SortKey string

const (
	ByDuration   SortKey = "duration"
	ByGuessCount SortKey = "guessCount"
)

// ErrUnknownSortKey is returned by ParseSortKey.
var ErrUnknownSortKey = errors.New("unknown sort key")

// ParseSortKey maps a wire name to a SortKey; empty means ByDuration.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(s); k {
	case "":
		return ByDuration, nil
	case ByDuration, ByGuessCount:
		return k, nil
	}
	return "", ErrUnknownSortKey
}

// Rank filters records to mode and difficulty and orders them by key.
//   - ByDuration:   duration ASC, then guess count ASC.
//   - ByGuessCount: guess count ASC, then duration ASC.
//
// Full ties keep their input order. The result holds at most MaxEntries
// records and never aliases the input slice.
func Rank(records []Record, mode game.Mode, d game.Difficulty, key SortKey) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Mode == mode && r.Difficulty == d {
			out = append(out, r)
		}
	}

	less := func(a, b Record) bool {
		if a.Duration != b.Duration {
			return a.Duration < b.Duration
		}
		return a.GuessCount < b.GuessCount
	}
	if key == ByGuessCount {
		less = func(a, b Record) bool {
			if a.GuessCount != b.GuessCount {
				return a.GuessCount < b.GuessCount
			}
			return a.Duration < b.Duration
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })

	if len(out) > MaxEntries {
		out = out[:MaxEntries]
	}
	return out
}

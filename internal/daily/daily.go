// internal/daily/daily.go
//
// Deterministic "code of the day" for single-player daily matches.
// Every player starting a daily match on the same UTC date with the same
// difficulty faces the same secret.

package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"

	"github.com/robalobadob/bullscows/internal/game"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Index returns a deterministic index for a date using
// HMAC(salt, YYYY-MM-DD|difficulty) % n.
func Index(date time.Time, salt string, d game.Difficulty, n int) int {
	if n <= 0 {
		return 0
	}
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date) + "|" + string(d)))
	sum := h.Sum(nil)
	// first 8 bytes as uint64 for the modulus
	v := binary.BigEndian.Uint64(sum[:8])
	return int(v % uint64(n))
}

// Secret picks the day's secret from the full candidate space of d.
func Secret(date time.Time, salt string, d game.Difficulty) game.Code {
	codes := game.Generate(d).Codes()
	return codes[Index(date, salt, d, len(codes))]
}

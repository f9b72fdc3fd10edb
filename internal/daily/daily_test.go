package daily

import (
	"testing"
	"time"

	"github.com/robalobadob/bullscows/internal/game"
)

func TestDateKey(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	got := DateKey(time.Date(2026, 3, 2, 5, 0, 0, 0, loc))
	if got != "2026-03-01" {
		t.Fatalf("DateKey = %q, want 2026-03-01", got)
	}
}

func TestSecret_StablePerDay(t *testing.T) {
	morning := time.Date(2026, 5, 4, 1, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 5, 4, 23, 0, 0, 0, time.UTC)
	for _, d := range game.Difficulties {
		a := Secret(morning, "salt", d)
		b := Secret(evening, "salt", d)
		if a != b {
			t.Fatalf("%s: secret changed within a day: %q vs %q", d, a, b)
		}
		if !game.IsValid(a, d) {
			t.Fatalf("%s: daily secret %q is not valid", d, a)
		}
	}
}

func TestIndex_DependsOnSalt(t *testing.T) {
	day := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	seen := map[int]bool{}
	for _, salt := range []string{"a", "b", "c", "d", "e", "f"} {
		seen[Index(day, salt, game.Master, 10000)] = true
	}
	if len(seen) < 2 {
		t.Fatalf("Index ignored the salt: %v", seen)
	}
	if Index(day, "a", game.Master, 0) != 0 {
		t.Fatalf("Index with n=0 should be 0")
	}
}

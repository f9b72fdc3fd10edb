package assets

import (
	"strings"
	"testing"
)

func TestMigrations(t *testing.T) {
	ms, err := Migrations()
	if err != nil {
		t.Fatalf("Migrations error = %v", err)
	}
	if len(ms) == 0 || ms[0].Name != "sql/001_leaderboard.sql" {
		t.Fatalf("Migrations = %+v", ms)
	}
	if !strings.Contains(ms[0].SQL, "CREATE TABLE IF NOT EXISTS leaderboard") {
		t.Fatalf("first migration does not create leaderboard table")
	}
}

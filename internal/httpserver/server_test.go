package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/robalobadob/bullscows/internal/config"
	"github.com/robalobadob/bullscows/internal/daily"
	"github.com/robalobadob/bullscows/internal/game"
	"github.com/robalobadob/bullscows/internal/identity"
	"github.com/robalobadob/bullscows/internal/leaderboard"
	"github.com/robalobadob/bullscows/internal/store"
	"github.com/robalobadob/bullscows/internal/turn"
)

var testDay = time.Date(2026, 4, 12, 9, 30, 0, 0, time.UTC)

// stillClock never advances on its own and never fires countdowns.
type stillClock struct{ now time.Time }

func (c stillClock) Now() time.Time { return c.now }

func (stillClock) AfterFunc(time.Duration, func()) turn.Timer { return stillTimer{} }

type stillTimer struct{}

func (stillTimer) Stop() bool { return true }

type fixture struct {
	srv     *Server
	h       http.Handler
	records leaderboard.Store
	board   *leaderboard.Board
	token   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := &config.Config{
		ClientOrigins:  []string{"http://localhost:5173"},
		RequestTimeout: 5 * time.Second,
		CookieName:     "bullscows_token",
		DailySalt:      "test_salt",
		GuessRate:      1000,
		GuessBurst:     1000,
		MatchIdleTTL:   30 * time.Minute,
		SweepInterval:  time.Minute,
	}
	records := leaderboard.NewMemoryStore()
	board, err := leaderboard.Watch(ctx, records)
	if err != nil {
		t.Fatalf("Watch error = %v", err)
	}
	matches := store.NewMemoryStore()
	t.Cleanup(matches.Close)

	s := New(cfg, matches, records, board, identity.NewIssuer("test_secret", time.Hour))
	s.clock = stillClock{now: testDay}
	f := &fixture{srv: s, h: s.Handler(), records: records, board: board}

	var anon struct {
		Token string `json:"token"`
		Name  string `json:"name"`
	}
	f.do(t, http.MethodPost, "/auth/anon", map[string]string{"name": "  Ann "}, http.StatusOK, &anon)
	if anon.Token == "" || anon.Name != "Ann" {
		t.Fatalf("anon = %+v", anon)
	}
	f.token = anon.Token
	return f
}

// do sends a JSON request and decodes the response into out when non-nil.
func (f *fixture) do(t *testing.T, method, path string, body any, want int, out any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	rr := httptest.NewRecorder()
	f.h.ServeHTTP(rr, req)
	if rr.Code != want {
		t.Fatalf("%s %s status = %d, want %d; body = %s", method, path, rr.Code, want, rr.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(rr.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s: %v (%s)", path, err, rr.Body.String())
		}
	}
}

func (f *fixture) newMatch(t *testing.T, body map[string]any) turn.Snapshot {
	t.Helper()
	var snap turn.Snapshot
	f.do(t, http.MethodPost, "/match/new", body, http.StatusOK, &snap)
	return snap
}

type errBody struct {
	Error string `json:"error"`
}

func TestHealthAndRules(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/health", nil, http.StatusOK, nil)

	var rules struct {
		CodeLength   int `json:"codeLength"`
		Difficulties []struct {
			Difficulty game.Difficulty `json:"difficulty"`
			Candidates int             `json:"candidates"`
		} `json:"difficulties"`
		Timer map[string]int `json:"timer"`
	}
	f.do(t, http.MethodGet, "/rules", nil, http.StatusOK, &rules)
	want := map[game.Difficulty]int{game.Standard: 4536, game.Challenge: 5040, game.Master: 10000}
	if rules.CodeLength != 4 || len(rules.Difficulties) != len(want) {
		t.Fatalf("rules = %+v", rules)
	}
	for _, d := range rules.Difficulties {
		if d.Candidates != want[d.Difficulty] {
			t.Fatalf("%s candidates = %d, want %d", d.Difficulty, d.Candidates, want[d.Difficulty])
		}
	}
	if rules.Timer["min"] != 5 || rules.Timer["max"] != 300 || rules.Timer["default"] != 60 {
		t.Fatalf("timer = %v", rules.Timer)
	}
}

func TestMatch_RequiresToken(t *testing.T) {
	f := newFixture(t)
	f.token = ""
	f.do(t, http.MethodPost, "/match/new", map[string]any{"mode": "single", "difficulty": "standard"},
		http.StatusUnauthorized, nil)

	f.token = "not-a-token"
	var e errBody
	f.do(t, http.MethodGet, "/auth/me", nil, http.StatusUnauthorized, &e)
	if e.Error != "invalid_token" {
		t.Fatalf("error = %q", e.Error)
	}
}

func TestSinglePlayer_DailySolveIsRecorded(t *testing.T) {
	f := newFixture(t)
	snap := f.newMatch(t, map[string]any{"mode": "single", "difficulty": "challenge", "daily": true})
	if snap.Phase != turn.PhaseGuessing || snap.Guesser != "Ann" || snap.Remaining != 5040 {
		t.Fatalf("new match snapshot = %+v", snap)
	}
	secret := daily.Secret(testDay, "test_salt", game.Challenge)

	// A wrong but valid guess first, so the solve lands on turn 1.
	wrong := game.Code("0123")
	if wrong == secret {
		wrong = "3210"
	}
	var res guessRes
	f.do(t, http.MethodPost, "/match/"+snap.ID+"/guess", map[string]any{"code": wrong, "halfRound": 1, "turn": 0}, http.StatusOK, &res)
	if res.Solved || res.Turn != 1 || res.Secret != "" || res.RecordSaved != nil {
		t.Fatalf("first guess = %+v", res)
	}
	if wantA, wantB := game.Score(secret, wrong); res.A != wantA || res.B != wantB {
		t.Fatalf("score = %dA%dB, want %dA%dB", res.A, res.B, wantA, wantB)
	}

	f.do(t, http.MethodPost, "/match/"+snap.ID+"/guess", map[string]any{"code": secret, "halfRound": 1, "turn": 1}, http.StatusOK, &res)
	if !res.Solved || res.A != 4 || res.Secret != secret || res.Phase != turn.PhaseFinished {
		t.Fatalf("solving guess = %+v", res)
	}
	if res.RecordSaved == nil || !*res.RecordSaved {
		t.Fatalf("recordSaved = %v", res.RecordSaved)
	}

	deadline := time.Now().Add(2 * time.Second)
	for f.board.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	var lb lbRes
	f.do(t, http.MethodGet, "/leaderboard?mode=single&difficulty=challenge&sort=guessCount", nil, http.StatusOK, &lb)
	if len(lb.Top) != 1 {
		t.Fatalf("leaderboard = %+v", lb)
	}
	if got := lb.Top[0]; got.PlayerName != "Ann" || got.GuessCount != 2 || got.Duration != 0 {
		t.Fatalf("record = %+v", got)
	}

	var other lbRes
	f.do(t, http.MethodGet, "/leaderboard?difficulty=master", nil, http.StatusOK, &other)
	if len(other.Top) != 0 || other.Sort != leaderboard.ByDuration {
		t.Fatalf("master leaderboard = %+v", other)
	}
}

func TestGuess_Rejections(t *testing.T) {
	f := newFixture(t)
	snap := f.newMatch(t, map[string]any{"mode": "single", "difficulty": "standard"})
	path := "/match/" + snap.ID + "/guess"

	var e errBody
	f.do(t, http.MethodPost, path, map[string]any{"code": "0123", "halfRound": 1, "turn": 0}, http.StatusBadRequest, &e)
	if e.Error != "invalid_code" {
		t.Fatalf("leading zero on standard: error = %q", e.Error)
	}
	f.do(t, http.MethodPost, path, map[string]any{"code": "1234"}, http.StatusBadRequest, nil)

	f.do(t, http.MethodPost, path, map[string]any{"code": "1234", "halfRound": 1, "turn": 3}, http.StatusConflict, &e)
	if e.Error != "too_late" {
		t.Fatalf("stale turn: error = %q", e.Error)
	}

	var after turn.Snapshot
	f.do(t, http.MethodGet, "/match/"+snap.ID, nil, http.StatusOK, &after)
	if after.Turn != 0 || len(after.History) != 0 {
		t.Fatalf("rejected guesses changed state: %+v", after)
	}

	f.do(t, http.MethodPost, "/match/missing/guess", map[string]any{"code": "1234", "halfRound": 1, "turn": 0}, http.StatusNotFound, nil)
}

func TestTwoPlayer_SecretThenGuess(t *testing.T) {
	f := newFixture(t)
	snap := f.newMatch(t, map[string]any{"mode": "multi", "difficulty": "master", "player2": "Bo", "halfRounds": 1})
	if snap.Phase != turn.PhaseSetting || snap.Setter != "Ann" || snap.Guesser != "Bo" {
		t.Fatalf("new match snapshot = %+v", snap)
	}
	base := "/match/" + snap.ID

	var e errBody
	f.do(t, http.MethodPost, base+"/guess", map[string]any{"code": "1234", "halfRound": 1, "turn": 0}, http.StatusConflict, &e)
	if e.Error != "invalid_phase" {
		t.Fatalf("guess while setting: error = %q", e.Error)
	}

	f.do(t, http.MethodPost, base+"/secret", map[string]any{"code": "0070"}, http.StatusOK, &snap)
	if snap.Phase != turn.PhaseGuessing || snap.Remaining != 10000 {
		t.Fatalf("after secret = %+v", snap)
	}

	var res guessRes
	f.do(t, http.MethodPost, base+"/guess", map[string]any{"code": "0070", "halfRound": 1, "turn": 0}, http.StatusOK, &res)
	if !res.Solved || res.Phase != turn.PhaseFinished || res.Snapshot.Phase != turn.PhaseFinished {
		t.Fatalf("solve = %+v", res)
	}
}

func TestNewMatch_Validation(t *testing.T) {
	f := newFixture(t)
	cases := []map[string]any{
		{"mode": "solo", "difficulty": "standard"},
		{"mode": "single", "difficulty": "impossible"},
		{"mode": "single", "difficulty": "standard", "timer": true, "timerSeconds": 7},
		{"mode": "multi", "difficulty": "standard", "daily": true},
		{"mode": "multi", "difficulty": "standard", "halfRounds": -1},
	}
	for _, body := range cases {
		var e errBody
		f.do(t, http.MethodPost, "/match/new", body, http.StatusBadRequest, &e)
		if e.Error != "invalid_request" {
			t.Fatalf("%v: error = %q", body, e.Error)
		}
	}

	snap := f.newMatch(t, map[string]any{"mode": "single", "difficulty": "standard", "timer": true})
	if !snap.Timed || snap.TimeLeft != 60 {
		t.Fatalf("timed match = %+v", snap)
	}
}

func TestAbort(t *testing.T) {
	f := newFixture(t)
	snap := f.newMatch(t, map[string]any{"mode": "multi", "difficulty": "standard"})
	if snap.Guesser != turn.DefaultPlayer2 {
		t.Fatalf("guesser = %q", snap.Guesser)
	}
	f.do(t, http.MethodPost, "/match/"+snap.ID+"/abort", nil, http.StatusOK, nil)
	f.do(t, http.MethodGet, "/match/"+snap.ID, nil, http.StatusNotFound, nil)
	f.do(t, http.MethodPost, "/match/"+snap.ID+"/abort", nil, http.StatusNotFound, nil)
}

func TestGuess_RequiresHalfRound(t *testing.T) {
	f := newFixture(t)
	snap := f.newMatch(t, map[string]any{"mode": "single", "difficulty": "standard"})
	f.do(t, http.MethodPost, "/match/"+snap.ID+"/guess", map[string]any{"code": "1234", "turn": 0}, http.StatusBadRequest, nil)

	var e errBody
	f.do(t, http.MethodPost, "/match/"+snap.ID+"/guess", map[string]any{"code": "1234", "halfRound": 2, "turn": 0},
		http.StatusConflict, &e)
	if e.Error != "too_late" {
		t.Fatalf("wrong half-round: error = %q", e.Error)
	}
}

func TestIPLimiter_SharesBucketAcrossPorts(t *testing.T) {
	l := newIPLimiter(0.001, 1, time.Now)
	h := l.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := []int{}
	for _, addr := range []string{"203.0.113.7:40001", "203.0.113.7:40002", "203.0.113.7:40003", "198.51.100.2:40001"} {
		req := httptest.NewRequest(http.MethodPost, "/match/x/guess", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	want := []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests, http.StatusOK}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("status codes = %v, want %v", codes, want)
		}
	}
	if len(l.byIP) != 2 {
		t.Fatalf("buckets = %d, want 2", len(l.byIP))
	}
}

func TestIPLimiter_SweepForgetsIdleBuckets(t *testing.T) {
	now := testDay
	l := newIPLimiter(1, 1, func() time.Time { return now })
	l.get("203.0.113.7")
	now = now.Add(time.Hour)
	l.get("198.51.100.2")

	if n := l.sweep(now.Add(-30 * time.Minute)); n != 1 {
		t.Fatalf("sweep removed %d, want 1", n)
	}
	if _, ok := l.byIP["198.51.100.2"]; !ok || len(l.byIP) != 1 {
		t.Fatalf("remaining buckets = %v", l.byIP)
	}
}

func TestSweep_EvictsIdleMatches(t *testing.T) {
	f := newFixture(t)
	snap := f.newMatch(t, map[string]any{"mode": "single", "difficulty": "standard", "timer": true})

	f.srv.clock = stillClock{now: testDay.Add(10 * time.Minute)}
	f.srv.sweep(context.Background())
	f.do(t, http.MethodGet, "/match/"+snap.ID, nil, http.StatusOK, nil)

	f.srv.clock = stillClock{now: testDay.Add(time.Hour)}
	f.srv.sweep(context.Background())
	f.do(t, http.MethodGet, "/match/"+snap.ID, nil, http.StatusNotFound, nil)
}

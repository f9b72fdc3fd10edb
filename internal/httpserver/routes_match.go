// internal/httpserver/routes_match.go
//
// HTTP routes for playing a match, plus the read-only rules and leaderboard views.
// Match endpoints under /match (player token required):
//   - POST /match/new          → start a single- or two-player match
//   - GET  /match/{id}         → snapshot for the presentation tick
//   - POST /match/{id}/secret  → setter commits a secret (two-player)
//   - POST /match/{id}/guess   → submit a guess for the shown turn
//   - POST /match/{id}/abort   → discard the match without recording
//
// Matches live in memory; solved half-rounds are recorded by the turn
// controller through the leaderboard store.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/bullscows/internal/daily"
	"github.com/robalobadob/bullscows/internal/game"
	"github.com/robalobadob/bullscows/internal/identity"
	"github.com/robalobadob/bullscows/internal/leaderboard"
	"github.com/robalobadob/bullscows/internal/turn"
)

const defaultTimerSeconds = 60

// mountMatch registers all /match routes.
func (s *Server) mountMatch(r chi.Router) {
	r.Route("/match", func(r chi.Router) {
		r.Post("/new", s.handleNewMatch)
		r.Get("/{id}", s.handleSnapshot)
		r.Post("/{id}/secret", s.handleSecret)
		r.With(s.guesses.middleware).Post("/{id}/guess", s.handleGuess)
		r.Post("/{id}/abort", s.handleAbort)
	})
}

// -----------------------------------------------------------------------------
// /match/new

// newMatchReq is the request payload for /match/new.
type newMatchReq struct {
	Mode         string `json:"mode"`       // single | multi
	Difficulty   string `json:"difficulty"` // standard | challenge | master
	Timer        bool   `json:"timer"`
	TimerSeconds int    `json:"timerSeconds"` // 5–300, step 5; default 60
	Player2      string `json:"player2"`
	HalfRounds   *int   `json:"halfRounds"` // multi; default 2, 0 = until abort
	Daily        bool   `json:"daily"`      // single; same secret for everyone today
}

// handleNewMatch creates a match with the caller as player one.
func (s *Server) handleNewMatch(w http.ResponseWriter, r *http.Request) {
	var req newMatchReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	cfg, err := s.matchConfig(req, playerFrom(r).Name)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	m, err := turn.New(cfg, s.records, s.clock)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if err := s.matches.Save(r.Context(), m); err != nil {
		m.Abort()
		log.Error().Err(err).Msg("save match")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(m.Snapshot())
}

// matchConfig translates the request into a turn.Config.
func (s *Server) matchConfig(req newMatchReq, player string) (turn.Config, error) {
	mode, err := game.ParseMode(req.Mode)
	if err != nil {
		return turn.Config{}, err
	}
	diff, err := game.ParseDifficulty(req.Difficulty)
	if err != nil {
		return turn.Config{}, err
	}
	cfg := turn.Config{Mode: mode, Difficulty: diff, Player1: player, HalfRounds: turn.DefaultHalfRounds}
	if mode == game.Multi {
		if req.Daily {
			return turn.Config{}, errors.Join(turn.ErrInvalidConfig, errors.New("daily is single-player only"))
		}
		if req.Player2 != "" {
			name, err := identity.NormalizeName(req.Player2)
			if err != nil {
				return turn.Config{}, err
			}
			cfg.Player2 = name
		}
		if req.HalfRounds != nil {
			cfg.HalfRounds = *req.HalfRounds
		}
	}
	if req.Timer {
		secs := req.TimerSeconds
		if secs == 0 {
			secs = defaultTimerSeconds
		}
		cfg.TimerLimit = time.Duration(secs) * time.Second
	}
	if req.Daily {
		cfg.Secret = daily.Secret(s.clock.Now(), s.cfg.DailySalt, diff)
	}
	return cfg, nil
}

// -----------------------------------------------------------------------------
// /match/{id}, /match/{id}/secret, /match/{id}/abort

// handleSnapshot returns the current match state.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	m, err := s.matches.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(m.Snapshot())
}

type codeReq struct {
	Code      string `json:"code"`
	HalfRound *int   `json:"halfRound"` // guesses only
	Turn      *int   `json:"turn"`      // guesses only
}

// handleSecret commits the setter's secret. The response never echoes it.
func (s *Server) handleSecret(w http.ResponseWriter, r *http.Request) {
	m, err := s.matches.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	var req codeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	if err := m.SetSecret(game.Code(req.Code)); err != nil {
		s.writeErr(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(m.Snapshot())
}

// handleAbort discards the match; nothing is recorded.
func (s *Server) handleAbort(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.matches.Get(r.Context(), id); err != nil {
		s.writeErr(w, r, err)
		return
	}
	_ = s.matches.Delete(r.Context(), id)
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// -----------------------------------------------------------------------------
// /match/{id}/guess

// guessRes is the response payload for /match/{id}/guess.
type guessRes struct {
	A           int           `json:"a"`
	B           int           `json:"b"`
	Turn        int           `json:"turn"`
	Remaining   int           `json:"remaining"`
	Phase       turn.Phase    `json:"phase"`
	Solved      bool          `json:"solved"`
	Secret      game.Code     `json:"secret,omitempty"`
	RecordSaved *bool         `json:"recordSaved,omitempty"`
	Snapshot    turn.Snapshot `json:"snapshot"`
}

// handleGuess scores a guess composed for req.HalfRound / req.Turn, both
// copied from the snapshot the player was looking at.
// - Missing halfRound or turn → 400.
// - Invalid code → 400, nothing recorded.
// - Position already consumed (timeout won the race, or a replay from an
//   earlier half-round) → 409 too_late.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	m, err := s.matches.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	var req codeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.HalfRound == nil || req.Turn == nil {
		http.Error(w, `{"error":"bad_request"}`, http.StatusBadRequest)
		return
	}

	out, err := m.SubmitGuess(r.Context(), game.Code(req.Code), *req.HalfRound, *req.Turn)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	res := guessRes{
		A:         out.Attempt.Exact,
		B:         out.Attempt.ValueOnly,
		Turn:      out.Turn,
		Remaining: out.Remaining,
		Phase:     out.Phase,
		Solved:    out.Solved,
		Snapshot:  m.Snapshot(),
	}
	if out.Solved {
		saved := out.RecordErr == nil
		res.Secret, res.RecordSaved = out.Secret, &saved
	}
	_ = json.NewEncoder(w).Encode(res)
}

// -----------------------------------------------------------------------------
// /leaderboard, /rules

// lbRes is returned by /leaderboard.
type lbRes struct {
	Mode       game.Mode            `json:"mode"`
	Difficulty game.Difficulty      `json:"difficulty"`
	Sort       leaderboard.SortKey  `json:"sort"`
	Top        []leaderboard.Record `json:"top"`
}

// handleLeaderboard ranks the stored runs.
// Query: mode (default single), difficulty (default standard), sort (duration | guessCount).
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	modeStr, diffStr := q.Get("mode"), q.Get("difficulty")
	if modeStr == "" {
		modeStr = string(game.Single)
	}
	if diffStr == "" {
		diffStr = string(game.Standard)
	}
	mode, err := game.ParseMode(modeStr)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	diff, err := game.ParseDifficulty(diffStr)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	key, err := leaderboard.ParseSortKey(q.Get("sort"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(lbRes{Mode: mode, Difficulty: diff, Sort: key, Top: s.board.Top(mode, diff, key)})
}

type rulesRes struct {
	Difficulty game.Difficulty `json:"difficulty"`
	Candidates int             `json:"candidates"`
}

type timerRes struct {
	Min     int `json:"min"`
	Max     int `json:"max"`
	Step    int `json:"step"`
	Default int `json:"default"`
}

// rulesView is computed once per server; it never changes at runtime.
type rulesView struct {
	CodeLength   int        `json:"codeLength"`
	Difficulties []rulesRes `json:"difficulties"`
	Timer        timerRes   `json:"timer"`
}

func buildRules() rulesView {
	v := rulesView{
		CodeLength:   game.CodeLen,
		Difficulties: make([]rulesRes, 0, len(game.Difficulties)),
		Timer: timerRes{
			Min:     int(turn.MinTimerLimit / time.Second),
			Max:     int(turn.MaxTimerLimit / time.Second),
			Step:    int(turn.TimerStep / time.Second),
			Default: defaultTimerSeconds,
		},
	}
	for _, d := range game.Difficulties {
		v.Difficulties = append(v.Difficulties, rulesRes{Difficulty: d, Candidates: game.Generate(d).Remaining()})
	}
	return v
}

// handleRules lists the difficulties with their initial candidate-space size
// and the countdown bounds.
func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(s.rules)
}

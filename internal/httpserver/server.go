// internal/httpserver/server.go
//
// HTTP server wiring for the 1A2B backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/rules", "/leaderboard".
//   - Identity: POST /auth/anon issues a player token (bearer or cookie).
//   - Match endpoints (require a player token): mounted under /match.
//   - Error mapping from engine errors to status codes.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Guess submission is throttled per client IP.
//   - Janitor periodically drops abandoned matches and idle IP buckets.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/robalobadob/bullscows/internal/config"
	"github.com/robalobadob/bullscows/internal/game"
	"github.com/robalobadob/bullscows/internal/identity"
	"github.com/robalobadob/bullscows/internal/leaderboard"
	"github.com/robalobadob/bullscows/internal/store"
	"github.com/robalobadob/bullscows/internal/turn"
)

// Server bundles router, live matches, leaderboard, and identity.
type Server struct {
	r       *chi.Mux
	cfg     *config.Config
	matches store.Store
	records leaderboard.Store
	board   *leaderboard.Board
	ids     *identity.Issuer
	clock   turn.Clock
	guesses *ipLimiter
	rules   rulesView
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg *config.Config, matches store.Store, records leaderboard.Store, board *leaderboard.Board, ids *identity.Issuer) *Server {
	s := &Server{
		r:       chi.NewRouter(),
		cfg:     cfg,
		matches: matches,
		records: records,
		board:   board,
		ids:     ids,
		clock:   turn.RealClock{},
		rules:   buildRules(),
	}
	s.guesses = newIPLimiter(cfg.GuessRate, cfg.GuessBurst, func() time.Time { return s.clock.Now() })

	// --- middleware ---
	crossOrigin := cors.New(cors.Options{
		AllowedOrigins:   cfg.ClientOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	s.r.Use(chimw.RequestID)                   // add X-Request-ID
	s.r.Use(chimw.RealIP)                      // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)                   // recover from panics
	s.r.Use(chimw.Timeout(cfg.RequestTimeout)) // bound handler time
	s.r.Use(jsonContentType)                   // default JSON responses
	s.r.Use(crossOrigin.Handler)               // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"service":"bullscows","endpoints":["/health","/rules","/leaderboard","POST /auth/anon","/match/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Get("/rules", s.handleRules)
	s.r.Get("/leaderboard", s.handleLeaderboard)

	s.r.Post("/auth/anon", s.handleAnon)
	s.r.With(s.requirePlayer()).Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(playerFrom(r))
	})

	s.mountMatch(s.r.With(s.requirePlayer()))

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":`+strconv.Quote(r.URL.Path)+`}`, http.StatusNotFound)
	})

	return s
}

// Handler exposes the router (also used by tests).
func (s *Server) Handler() http.Handler { return s.r }

// Janitor sweeps every cfg.SweepInterval until ctx ends.
func (s *Server) Janitor(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep aborts matches untouched for MatchIdleTTL and forgets rate-limit
// buckets idle for as long.
func (s *Server) sweep(ctx context.Context) {
	cutoff := s.clock.Now().Add(-s.cfg.MatchIdleTTL)
	matches := s.matches.Sweep(ctx, cutoff)
	buckets := s.guesses.sweep(cutoff)
	if matches > 0 || buckets > 0 {
		log.Info().Int("matches", matches).Int("buckets", buckets).Msg("swept idle state")
	}
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// ipLimiter hands out one token bucket per client host.
type ipLimiter struct {
	mu    sync.Mutex
	rate  rate.Limit
	burst int
	now   func() time.Time
	byIP  map[string]*bucket
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(perSecond float64, burst int, now func() time.Time) *ipLimiter {
	return &ipLimiter{rate: rate.Limit(perSecond), burst: burst, now: now, byIP: make(map[string]*bucket)}
}

func (l *ipLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.byIP[ip]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.rate, l.burst)}
		l.byIP[ip] = b
	}
	b.lastSeen = l.now()
	return b.lim
}

// sweep forgets buckets last used before cutoff.
func (l *ipLimiter) sweep(cutoff time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for ip, b := range l.byIP {
		if b.lastSeen.Before(cutoff) {
			delete(l.byIP, ip)
			n++
		}
	}
	return n
}

// clientIP strips the port from RemoteAddr. chimw.RealIP has already
// substituted a proxy-supplied address (which carries no port) when present.
func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// middleware answers 429 once a client exhausts its bucket.
func (l *ipLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.get(clientIP(r)).Allow() {
			http.Error(w, `{"error":"rate_limited"}`, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------- identity -----------------------------------

type anonReq struct {
	Name string `json:"name"`
}
type anonRes struct {
	identity.Player
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// handleAnon issues a player token for a display name and sets it as a cookie.
func (s *Server) handleAnon(w http.ResponseWriter, r *http.Request) {
	var req anonReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	tok, p, exp, err := s.ids.Issue(req.Name)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.setAuthCookie(w, tok, exp)
	_ = json.NewEncoder(w).Encode(anonRes{Player: p, Token: tok, ExpiresAt: exp})
}

// ctxPlayerKey is the context key type for storing identity.Player.
type ctxPlayerKey struct{}

// requirePlayer enforces a valid player token and injects the player into
// the request context.
func (s *Server) requirePlayer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := s.bearerOrCookie(r)
			if tok == "" {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			p, err := s.ids.Verify(tok)
			if err != nil {
				http.Error(w, `{"error":"invalid_token"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ctxPlayerKey{}, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func playerFrom(r *http.Request) identity.Player {
	p, _ := r.Context().Value(ctxPlayerKey{}).(identity.Player)
	return p
}

// bearerOrCookie extracts a token from the Authorization header or auth cookie.
func (s *Server) bearerOrCookie(r *http.Request) string {
	// Authorization: Bearer <token>
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(s.cfg.CookieName); err == nil {
		return c.Value
	}
	return ""
}

// setAuthCookie writes the token cookie with appropriate security attributes.
func (s *Server) setAuthCookie(w http.ResponseWriter, token string, exp time.Time) {
	secure := s.cfg.Production()
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode // required for third‑party contexts when Secure
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Expires:  exp,
	})
}

// ------------------------------- errors -------------------------------------

// writeErr maps engine errors to HTTP responses.
//   - validation failures → 400 (recoverable; the client re-prompts)
//   - stale guesses → 409 too_late
//   - wrong-phase intents → 409, logged as a caller defect
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, game.ErrInvalidCode):
		status, code = http.StatusBadRequest, "invalid_code"
	case errors.Is(err, turn.ErrStaleGuess):
		status, code = http.StatusConflict, "too_late"
	case errors.Is(err, turn.ErrInvalidPhase), errors.Is(err, game.ErrInvalidTransition):
		status, code = http.StatusConflict, "invalid_phase"
		log.Error().Err(err).Str("path", r.URL.Path).Str("requestId", chimw.GetReqID(r.Context())).
			Msg("intent rejected in current phase")
	case errors.Is(err, turn.ErrInvalidConfig), errors.Is(err, game.ErrUnknownDifficulty),
		errors.Is(err, game.ErrUnknownMode), errors.Is(err, leaderboard.ErrUnknownSortKey):
		status, code = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, identity.ErrInvalidName):
		status, code = http.StatusBadRequest, "invalid_name"
	case errors.Is(err, store.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("unhandled error")
		http.Error(w, `{"error":"internal"}`, status)
		return
	}
	http.Error(w, `{"error":"`+code+`","detail":`+strconv.Quote(err.Error())+`}`, status)
}

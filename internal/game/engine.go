// internal/game/engine.go
//
// Core game engine for a single 1A2B play-through (one half-round).
// Responsibilities:
//   - Create sessions awaiting a human-set secret, or single-player sessions
//     with a secret drawn uniformly from the candidate space.
//   - Validate and apply guesses, score them, and narrow the candidate space.
//   - Record timeout forfeits without scoring or narrowing.
//   - Track state transitions: awaiting_secret → in_progress → solved.
//
// A Session is not safe for concurrent use; the turn controller serialises
// access to it.
package game

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

// Session holds the state of a single half-round.
type Session struct {
	ID         string
	Difficulty Difficulty

	phase   Phase
	secret  Code
	history []GuessRecord
	space   Space
	started time.Time
	now     func() time.Time
}

// Option configures a Session at construction.
type Option func(*Session)

// WithClock overrides the time source used for the start timestamp and elapsed time.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New constructs a session awaiting its secret (two-player setter flow).
func New(d Difficulty, opts ...Option) *Session {
	s := &Session{
		ID:         randomID(),
		Difficulty: d,
		phase:      PhaseAwaitingSecret,
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewSinglePlayer constructs an in-progress session.
// If withSecret is empty, a random secret is chosen from Generate(d).
func NewSinglePlayer(d Difficulty, withSecret Code, opts ...Option) (*Session, error) {
	s := New(d, opts...)
	space := Generate(d)
	secret := withSecret
	if secret == "" {
		secret = space.codes[RandomIndex(space.Remaining())]
	}
	if err := Validate(secret, d); err != nil {
		return nil, err
	}
	s.start(secret, space)
	return s, nil
}

// SetSecret validates code and starts the session with it as the secret.
// Allowed only while awaiting a secret; failures leave the session unchanged.
func (s *Session) SetSecret(code Code) error {
	if s.phase != PhaseAwaitingSecret {
		return s.transitionErr("set secret")
	}
	if err := Validate(code, s.Difficulty); err != nil {
		return err
	}
	s.start(code, Generate(s.Difficulty))
	return nil
}

func (s *Session) start(secret Code, space Space) {
	s.secret = secret
	s.space = space
	s.started = s.now()
	s.phase = PhaseInProgress
}

// SubmitGuess validates and scores a guess, mutating the session.
// Returns the appended record and, if the guess matched the secret, a Solve event.
//
// Invalid input returns a wrapped ErrInvalidCode and records nothing.
func (s *Session) SubmitGuess(code Code) (GuessRecord, *Solve, error) {
	if s.phase != PhaseInProgress {
		return GuessRecord{}, nil, s.transitionErr("submit guess")
	}
	if err := Validate(code, s.Difficulty); err != nil {
		return GuessRecord{}, nil, err
	}

	exact, valueOnly := Score(s.secret, code)
	rec := GuessRecord{Code: code, Exact: exact, ValueOnly: valueOnly}
	s.history = append(s.history, rec)
	s.space = s.space.Narrow(code, exact, valueOnly)

	if exact == CodeLen {
		s.phase = PhaseSolved
		return rec, &Solve{Guesses: len(s.history), Elapsed: s.now().Sub(s.started)}, nil
	}
	return rec, nil, nil
}

// ForceTimeout records a forfeited attempt. The candidate space and phase are
// left as they are.
func (s *Session) ForceTimeout() (GuessRecord, error) {
	if s.phase != PhaseInProgress {
		return GuessRecord{}, s.transitionErr("force timeout")
	}
	rec := GuessRecord{Timeout: true}
	s.history = append(s.history, rec)
	return rec, nil
}

// Phase reports the current state.
func (s *Session) Phase() Phase { return s.phase }

// Turn is the number of attempts recorded so far; the next attempt is for this turn.
func (s *Session) Turn() int { return len(s.history) }

// History returns a copy of the recorded attempts.
func (s *Session) History() []GuessRecord {
	return append([]GuessRecord(nil), s.history...)
}

// Remaining is the size of the live candidate space (0 before a secret is set).
func (s *Session) Remaining() int { return s.space.Remaining() }

// StartedAt is when the secret was committed.
func (s *Session) StartedAt() time.Time { return s.started }

// Secret returns the secret once the session is solved.
func (s *Session) Secret() (Code, bool) {
	if s.phase != PhaseSolved {
		return "", false
	}
	return s.secret, true
}

func (s *Session) transitionErr(op string) error {
	return fmt.Errorf("%w: %s while %s", ErrInvalidTransition, op, s.phase)
}

// RandomIndex returns a uniformly random index in [0, n) using crypto/rand.
func RandomIndex(n int) int {
	nBig, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(nBig.Int64())
}

// randomID returns a compact 16‑hex‑char identifier.
func randomID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

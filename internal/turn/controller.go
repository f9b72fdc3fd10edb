// internal/turn/controller.go
//
// Match orchestration on top of game.Session.
// Responsibilities:
//   - Single-player: one session with a system-chosen secret.
//   - Two-player: half-rounds in alternation; the setter commits a secret,
//     the other player guesses, and roles swap when the code is solved.
//   - Timed play: restart the countdown after every recorded attempt and
//     forfeit the turn (ForceTimeout) when it runs out.
//   - Hand a leaderboard record to the Recorder for every solved half-round.
//
// Phases: setting → guessing → (solve) setting → guessing → … → finished.
// abort is reachable from every phase and is terminal.
//
// All methods are safe for concurrent use; one operation runs at a time.
package turn

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/bullscows/internal/game"
	"github.com/robalobadob/bullscows/internal/leaderboard"
)

// Phase is the controller-level state presented to players.
type Phase string

const (
	PhaseSetting  Phase = "setting"
	PhaseGuessing Phase = "guessing"
	PhaseFinished Phase = "finished"
	PhaseAborted  Phase = "aborted"
)

const (
	MinTimerLimit  = 5 * time.Second
	MaxTimerLimit  = 300 * time.Second
	TimerStep      = 5 * time.Second
	DefaultPlayer2 = "Player 2"

	// DefaultHalfRounds lets each player guess once.
	DefaultHalfRounds = 2

	// recordTimeout bounds the leaderboard write that follows a solve.
	recordTimeout = 5 * time.Second
)

var (
	// ErrInvalidPhase marks an intent that does not apply to the current phase.
	ErrInvalidPhase = errors.New("invalid phase")

	// ErrStaleGuess marks a guess composed for a turn (or half-round) that has
	// already been consumed, typically by a timeout that fired first.
	ErrStaleGuess = errors.New("stale guess")

	ErrInvalidConfig = errors.New("invalid match config")
)

// Recorder receives one record per solved half-round.
// leaderboard.Store satisfies it.
type Recorder interface {
	Append(ctx context.Context, r leaderboard.Record) error
}

// Config describes a match at creation.
type Config struct {
	Mode       game.Mode
	Difficulty game.Difficulty
	Player1    string        // starts as the guesser (single) or the setter (multi)
	Player2    string        // multi only; DefaultPlayer2 when empty
	TimerLimit time.Duration // per-guess limit; 0 disables the countdown
	HalfRounds int           // multi only; 0 alternates until abort
	Secret     game.Code     // single only; empty picks a random secret
}

// Validate checks the config and fills defaults.
func (c *Config) Validate() error {
	if _, err := game.ParseMode(string(c.Mode)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := game.ParseDifficulty(string(c.Difficulty)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Player1 == "" {
		return fmt.Errorf("%w: player name required", ErrInvalidConfig)
	}
	if c.TimerLimit != 0 &&
		(c.TimerLimit < MinTimerLimit || c.TimerLimit > MaxTimerLimit || c.TimerLimit%TimerStep != 0) {
		return fmt.Errorf("%w: timer must be %s–%s in steps of %s", ErrInvalidConfig, MinTimerLimit, MaxTimerLimit, TimerStep)
	}
	if c.HalfRounds < 0 {
		return fmt.Errorf("%w: half rounds must not be negative", ErrInvalidConfig)
	}
	if c.Mode == game.Multi && c.Player2 == "" {
		c.Player2 = DefaultPlayer2
	}
	return nil
}

// Outcome is returned by SubmitGuess.
type Outcome struct {
	Attempt   game.GuessRecord
	Turn      int // attempts recorded in the half-round after this guess
	Remaining int
	Phase     Phase

	// Set when the guess solved the code.
	Solved    bool
	Secret    game.Code
	Run       *leaderboard.Record
	RecordErr error // storage failure, reported for visibility only
}

// Controller drives one match.
type Controller struct {
	ID  string
	cfg Config

	clock    Clock
	recorder Recorder

	mu        sync.Mutex
	phase     Phase
	players   [2]string
	setter    int // index into players; -1 in single-player
	guesser   int
	halfRound int // 1-based
	session   *game.Session
	countdown countdown
	lastSeen  time.Time // last player intent; countdown expiries do not count
}

// New creates and starts a match. Single-player matches begin guessing at
// once (with the countdown running, if timed); two-player matches wait for
// the first secret.
func New(cfg Config, rec Recorder, clock Clock) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = RealClock{}
	}
	c := &Controller{
		ID:        uuid.NewString(),
		cfg:       cfg,
		clock:     clock,
		recorder:  rec,
		players:   [2]string{cfg.Player1, cfg.Player2},
		halfRound: 1,
		countdown: countdown{clock: clock, limit: cfg.TimerLimit},
		lastSeen:  clock.Now(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cfg.Mode == game.Single {
		s, err := game.NewSinglePlayer(cfg.Difficulty, cfg.Secret, game.WithClock(clock.Now))
		if err != nil {
			return nil, err
		}
		c.session, c.setter, c.guesser, c.phase = s, -1, 0, PhaseGuessing
		c.countdown.arm(c.expire)
	} else {
		c.session, c.setter, c.guesser, c.phase = game.New(cfg.Difficulty, game.WithClock(clock.Now)), 0, 1, PhaseSetting
	}
	log.Info().Str("matchId", c.ID).Str("mode", string(cfg.Mode)).
		Str("difficulty", string(cfg.Difficulty)).Dur("timer", cfg.TimerLimit).Msg("match started")
	return c, nil
}

// SetSecret commits the setter's secret and opens the guessing phase.
func (c *Controller) SetSecret(code game.Code) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSeen = c.clock.Now()
	if c.phase != PhaseSetting {
		return c.phaseErr("set secret")
	}
	if err := c.session.SetSecret(code); err != nil {
		return err
	}
	c.phase = PhaseGuessing
	c.countdown.arm(c.expire)
	return nil
}

// SubmitGuess applies a guess composed for the given half-round and turn (the
// attempt index shown to the player). A position that no longer matches the
// match, because a timeout, another guess or a role swap came first, yields
// ErrStaleGuess and leaves everything unchanged.
//
// Invalid codes return game.ErrInvalidCode without touching the countdown.
// The leaderboard write outlives ctx cancellation so a solve whose client
// disconnects is still recorded.
func (c *Controller) SubmitGuess(ctx context.Context, code game.Code, halfRound, turn int) (Outcome, error) {
	c.mu.Lock()
	c.lastSeen = c.clock.Now()
	if c.phase != PhaseGuessing {
		err := c.phaseErr("submit guess")
		c.mu.Unlock()
		return Outcome{}, err
	}
	if halfRound != c.halfRound {
		c.mu.Unlock()
		return Outcome{}, fmt.Errorf("%w: half-round %d, current %d", ErrStaleGuess, halfRound, c.halfRound)
	}
	if cur := c.session.Turn(); turn != cur {
		c.mu.Unlock()
		return Outcome{}, fmt.Errorf("%w: turn %d, current %d", ErrStaleGuess, turn, cur)
	}
	rec, solve, err := c.session.SubmitGuess(code)
	if err != nil {
		c.mu.Unlock()
		return Outcome{}, err
	}

	out := Outcome{Attempt: rec, Turn: c.session.Turn(), Remaining: c.session.Remaining()}
	if out.Remaining == 0 {
		log.Error().Str("matchId", c.ID).Str("guess", string(code)).
			Msg("candidate space exhausted; scoring invariant violated")
	}
	if solve == nil {
		c.countdown.arm(c.expire)
		out.Phase = c.phase
		c.mu.Unlock()
		return out, nil
	}

	run := c.solved(solve)
	out.Solved, out.Run, out.Phase = true, &run, c.phase
	out.Secret = code
	c.mu.Unlock()

	if c.recorder != nil {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		defer cancel()
		if err := c.recorder.Append(wctx, run); err != nil {
			log.Warn().Err(err).Str("matchId", c.ID).Str("player", run.PlayerName).Msg("save leaderboard record")
			out.RecordErr = err
		}
	}
	return out, nil
}

// solved builds the run record and advances to the next half-round or finishes.
// Caller holds c.mu.
func (c *Controller) solved(solve *game.Solve) leaderboard.Record {
	c.countdown.stop()
	run := leaderboard.Record{
		ID:         uuid.NewString(),
		PlayerName: c.players[c.guesser],
		Mode:       c.cfg.Mode,
		Difficulty: c.cfg.Difficulty,
		GuessCount: solve.Guesses,
		Duration:   int(solve.Elapsed / time.Second),
		Timestamp:  c.clock.Now().UTC(),
	}
	log.Info().Str("matchId", c.ID).Str("player", run.PlayerName).Int("guesses", run.GuessCount).
		Int("seconds", run.Duration).Int("halfRound", c.halfRound).Msg("code solved")

	if c.cfg.Mode == game.Multi && (c.cfg.HalfRounds == 0 || c.halfRound < c.cfg.HalfRounds) {
		c.setter, c.guesser = c.guesser, c.setter
		c.halfRound++
		c.session = game.New(c.cfg.Difficulty, game.WithClock(c.clock.Now))
		c.phase = PhaseSetting
		return run
	}
	c.phase = PhaseFinished
	return run
}

// expire is the countdown callback. It forfeits the current turn exactly
// once per armed countdown and rearms.
func (c *Controller) expire(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.countdown.current(gen) || c.phase != PhaseGuessing {
		return
	}
	if _, err := c.session.ForceTimeout(); err != nil {
		log.Error().Err(err).Str("matchId", c.ID).Msg("force timeout")
		return
	}
	log.Debug().Str("matchId", c.ID).Int("turn", c.session.Turn()).Msg("turn timed out")
	c.countdown.arm(c.expire)
}

// Abort discards the in-progress half-round and stops the countdown.
// Nothing is recorded. Aborting twice is a no-op.
func (c *Controller) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseAborted {
		return
	}
	c.countdown.stop()
	c.session = nil
	c.phase = PhaseAborted
	log.Info().Str("matchId", c.ID).Msg("match aborted")
}

// Snapshot is the per-tick view handed to the presentation layer.
type Snapshot struct {
	ID         string             `json:"id"`
	Mode       game.Mode          `json:"mode"`
	Difficulty game.Difficulty    `json:"difficulty"`
	Phase      Phase              `json:"phase"`
	HalfRound  int                `json:"halfRound"`
	Setter     string             `json:"setter,omitempty"`
	Guesser    string             `json:"guesser"`
	Turn       int                `json:"turn"`
	History    []game.GuessRecord `json:"history"`
	Remaining  int                `json:"remaining"`
	Timed      bool               `json:"timed"`
	TimeLeft   int                `json:"timeLeft"` // seconds
}

// Snapshot returns the current state. History and Remaining are empty while
// a secret is being set and after an abort.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSeen = c.clock.Now()
	s := Snapshot{
		ID:         c.ID,
		Mode:       c.cfg.Mode,
		Difficulty: c.cfg.Difficulty,
		Phase:      c.phase,
		HalfRound:  c.halfRound,
		Guesser:    c.players[c.guesser],
		History:    []game.GuessRecord{},
		Timed:      c.cfg.TimerLimit > 0,
		TimeLeft:   c.countdown.secondsLeft(),
	}
	if c.setter >= 0 {
		s.Setter = c.players[c.setter]
	}
	if c.session != nil {
		s.Turn = c.session.Turn()
		s.History = c.session.History()
		s.Remaining = c.session.Remaining()
	}
	return s
}

// LastSeen is when a player last acted on the match (start, secret, guess or
// snapshot). Timeouts leave it alone, so an abandoned timed match ages even
// though its countdown keeps forfeiting turns.
func (c *Controller) LastSeen() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

// Phase reports the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Controller) phaseErr(op string) error {
	return fmt.Errorf("%w: %s while %s", ErrInvalidPhase, op, c.phase)
}

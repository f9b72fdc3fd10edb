// internal/game/types.go
//
// Core type definitions for the 1A2B game engine.
// Defines:
//   - Code: a 4-digit candidate or secret (leading zeros significant).
//   - Difficulty: the ruleset selecting which codes are legal.
//   - Mode: single-player or two-player play.
//   - Phase: where a Session sits in its state machine.
//   - GuessRecord: one entry of a session's append-only history.
//   - Solve: the terminal event emitted when a guess matches the secret.

package game

import (
	"errors"
	"time"
)

// CodeLen is the fixed number of digits in every code.
const CodeLen = 4

// Code is an ordered sequence of CodeLen decimal digits, kept as a string so
// that "0123" and "123" stay distinct.
type Code string

// Difficulty selects the structural rules applied to codes.
//   - standard:  digits pairwise distinct, first digit not '0'.
//   - challenge: digits pairwise distinct, leading zero allowed.
//   - master:    digits may repeat, leading zero allowed.
type Difficulty string

const (
	Standard  Difficulty = "standard"
	Challenge Difficulty = "challenge"
	Master    Difficulty = "master"
)

// Mode distinguishes single-player from two-player play.
type Mode string

const (
	Single Mode = "single"
	Multi  Mode = "multi"
)

// ParseMode maps a wire name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case Single, Multi:
		return m, nil
	}
	return "", ErrUnknownMode
}

// Phase is the coarse state of a Session.
type Phase string

const (
	PhaseAwaitingSecret Phase = "awaiting_secret"
	PhaseInProgress     Phase = "in_progress"
	PhaseSolved         Phase = "solved"
)

// GuessRecord is one attempt in a session's history. Timeout records carry
// no code and zero scores.
type GuessRecord struct {
	Code      Code `json:"code,omitempty"`
	Exact     int  `json:"a"`
	ValueOnly int  `json:"b"`
	Timeout   bool `json:"timeout,omitempty"`
}

// Solve is emitted by SubmitGuess when the secret is matched.
type Solve struct {
	Guesses int           // attempts recorded, timeouts included
	Elapsed time.Duration // from SetSecret (or session start) to the solving guess
}

var (
	// ErrInvalidCode marks input that fails the difficulty's rules.
	ErrInvalidCode = errors.New("invalid code")

	// ErrInvalidTransition marks an operation called in the wrong phase.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrUnknownDifficulty is returned by ParseDifficulty.
	ErrUnknownDifficulty = errors.New("unknown difficulty")

	ErrUnknownMode = errors.New("unknown mode")
)

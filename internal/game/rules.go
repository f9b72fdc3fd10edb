// internal/game/rules.go
//
// Difficulty parsing and code validation.
// Validate gates both secret-setting and guess submission.

package game

import (
	"fmt"
	"strings"
)

// Difficulties lists every supported ruleset in display order.
var Difficulties = []Difficulty{Standard, Challenge, Master}

// ParseDifficulty maps a wire name (case-insensitive) to a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case Standard, Challenge, Master:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDifficulty, s)
}

// distinctDigits reports whether repeated digits are forbidden.
func (d Difficulty) distinctDigits() bool { return d != Master }

// leadingZero reports whether the first digit may be '0'.
func (d Difficulty) leadingZero() bool { return d != Standard }

// Validate checks code against the rules of d and returns a wrapped
// ErrInvalidCode describing the first rule it breaks.
func Validate(code Code, d Difficulty) error {
	if len(code) != CodeLen {
		return fmt.Errorf("%w: want %d digits, got %d", ErrInvalidCode, CodeLen, len(code))
	}
	if !isDigits(string(code)) {
		return fmt.Errorf("%w: digits 0-9 only", ErrInvalidCode)
	}
	if d.distinctDigits() && !allDistinct(code) {
		return fmt.Errorf("%w: digits must not repeat", ErrInvalidCode)
	}
	if !d.leadingZero() && code[0] == '0' {
		return fmt.Errorf("%w: must not start with 0", ErrInvalidCode)
	}
	return nil
}

// IsValid reports whether code is legal under d.
func IsValid(code Code, d Difficulty) bool { return Validate(code, d) == nil }

// isDigits checks that a string consists only of ASCII 0–9.
func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func allDistinct(code Code) bool {
	var seen [10]bool
	for i := 0; i < len(code); i++ {
		j := code[i] - '0'
		if seen[j] {
			return false
		}
		seen[j] = true
	}
	return true
}

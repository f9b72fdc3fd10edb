// internal/game/space.go
//
// The candidate space: every code still consistent with the scores seen so far.
// Responsibilities:
//   - Generate the initial space for a difficulty (ascending order).
//   - Narrow it after each scored guess; timeouts never narrow.

package game

// Space is the set of codes still consistent with every score observed so far.
// Codes are kept in ascending numeric order. A Space is never mutated in place;
// Narrow returns a new one.
type Space struct {
	codes []Code
}

// Generate enumerates 0000–9999 and keeps the codes legal under d.
func Generate(d Difficulty) Space {
	codes := make([]Code, 0, 10000)
	var buf [CodeLen]byte
	for n := 0; n < 10000; n++ {
		for i, v := CodeLen-1, n; i >= 0; i, v = i-1, v/10 {
			buf[i] = byte('0' + v%10)
		}
		if c := Code(buf[:]); IsValid(c, d) {
			codes = append(codes, c)
		}
	}
	return Space{codes: codes}
}

// Narrow keeps exactly the candidates c for which Score(c, guess) equals
// (exact, valueOnly).
func (s Space) Narrow(guess Code, exact, valueOnly int) Space {
	out := make([]Code, 0, len(s.codes))
	for _, c := range s.codes {
		if a, b := Score(c, guess); a == exact && b == valueOnly {
			out = append(out, c)
		}
	}
	return Space{codes: out}
}

// Remaining returns the number of candidates left.
func (s Space) Remaining() int { return len(s.codes) }

// Contains reports whether code is still a candidate.
func (s Space) Contains(code Code) bool {
	for _, c := range s.codes {
		if c == code {
			return true
		}
	}
	return false
}

// Codes returns a copy of the candidates in ascending order.
func (s Space) Codes() []Code {
	return append([]Code(nil), s.codes...)
}

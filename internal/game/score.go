// internal/game/score.go
//
// 1A2B scoring.
// Responsibilities:
//   - Compare a guess with the secret: exact matches ("A") and value-only
//     matches ("B"), each digit counted at most once.

package game

// Score compares guess against secret and returns the number of exact
// (value and position) matches and value-only matches.
//
// Pass 1:
//   - Count positions where the digits agree.
//   - Tally the remaining digits of secret and guess separately.
//
// Pass 2:
//   - For each digit value, the smaller of the two tallies is a value-only match.
//
// Exact positions are removed from both tallies, so a digit never counts twice.
// Both codes are assumed to be validated CodeLen-digit strings.
func Score(secret, guess Code) (exact, valueOnly int) {
	var restS, restG [10]int
	for i := 0; i < CodeLen; i++ {
		if secret[i] == guess[i] {
			exact++
			continue
		}
		restS[secret[i]-'0']++
		restG[guess[i]-'0']++
	}
	for d := 0; d < 10; d++ {
		valueOnly += min(restS[d], restG[d])
	}
	return exact, valueOnly
}

// internal/identity/identity.go
//
// Anonymous player identity.
// A player picks a display name and receives a signed token (HS256 JWT)
// carrying a random player ID and that name. The game only ever reads the
// name back out to attribute leaderboard records.

package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const maxNameLen = 24

var (
	ErrInvalidName  = errors.New("invalid player name")
	ErrInvalidToken = errors.New("invalid token")
)

// Player is the identity attached to a request.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Issuer signs and verifies player tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer using an HMAC secret and token lifetime.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// NormalizeName trims whitespace and checks the display name: 1–24
// characters, no control characters. Any script is accepted.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLen {
		return "", fmt.Errorf("%w: must be 1-%d characters", ErrInvalidName, maxNameLen)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("%w: control characters not allowed", ErrInvalidName)
		}
	}
	return name, nil
}

// Issue creates a new player with the given display name.
func (i *Issuer) Issue(name string) (string, Player, time.Time, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return "", Player{}, time.Time{}, err
	}
	p := Player{ID: uuid.NewString(), Name: name}
	now := i.now()
	exp := now.Add(i.ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":   p.ID,
		"name": p.Name,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	})
	ss, err := t.SignedString(i.secret)
	return ss, p, exp, err
}

// Verify parses a token and returns the player it names.
func (i *Issuer) Verify(token string) (Player, error) {
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil || !t.Valid {
		return Player{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	id, _ := claims["id"].(string)
	name, _ := claims["name"].(string)
	if id == "" || name == "" {
		return Player{}, fmt.Errorf("%w: missing claims", ErrInvalidToken)
	}
	return Player{ID: id, Name: name}, nil
}

package identity

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestIssueVerify(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	tok, p, exp, err := iss.Issue("  小明 ")
	if err != nil {
		t.Fatalf("Issue error = %v", err)
	}
	if p.Name != "小明" || p.ID == "" || !exp.After(time.Now()) {
		t.Fatalf("Issue = (%+v, %v)", p, exp)
	}
	got, err := iss.Verify(tok)
	if err != nil || got != p {
		t.Fatalf("Verify = (%+v,%v), want (%+v,nil)", got, err, p)
	}
}

func TestVerify_Rejects(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	tok, _, _, _ := iss.Issue("Ann")

	if _, err := NewIssuer("other", time.Hour).Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong secret err = %v", err)
	}
	if _, err := iss.Verify("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage err = %v", err)
	}

	expired := NewIssuer("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, _, _ := expired.Issue("Ann")
	if _, err := iss.Verify(old); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired err = %v", err)
	}
}

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"Ann", true},
		{"   ", false},
		{"", false},
		{strings.Repeat("x", 24), true},
		{strings.Repeat("x", 25), false},
		{strings.Repeat("名", 24), true},
		{"a\nb", false},
	}
	for _, tc := range cases {
		_, err := NormalizeName(tc.in)
		if (err == nil) != tc.ok {
			t.Fatalf("NormalizeName(%q) = %v, want ok=%v", tc.in, err, tc.ok)
		}
	}
}

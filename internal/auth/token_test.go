package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	mgr := NewManager("test-secret", time.Hour, 30*time.Minute)

	token, issued, err := mgr.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if issued.Subject != "user-1" {
		t.Fatalf("subject = %q, want user-1", issued.Subject)
	}
	if issued.ID == "" {
		t.Fatal("expected a jti")
	}

	parsed, err := mgr.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.Subject != "user-1" || parsed.ID != issued.ID {
		t.Fatalf("parsed claims do not round-trip: %+v", parsed)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, _, err := NewManager("secret-a", time.Hour, 0).Issue("user-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := NewManager("secret-b", time.Hour, 0).Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	mgr := NewManager("test-secret", -time.Minute, 0)
	token, _, err := mgr.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := mgr.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	mgr := NewManager("test-secret", time.Hour, 0)
	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := mgr.Parse(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Parse(%q) err = %v, want ErrInvalidToken", tok, err)
		}
	}
}

func TestNeedsRefresh(t *testing.T) {
	mgr := NewManager("test-secret", time.Hour, 30*time.Minute)
	_, claims, err := mgr.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if mgr.NeedsRefresh(claims) {
		t.Fatal("fresh token should not need refresh")
	}

	near := NewManager("test-secret", 10*time.Minute, 30*time.Minute)
	_, claims, err = near.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !near.NeedsRefresh(claims) {
		t.Fatal("token inside the refresh window should need refresh")
	}
}

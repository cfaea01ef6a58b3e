package auth

import (
	"strings"
	"testing"
	"time"
)

func TestSignAndVerify(t *testing.T) {
	v := NewHS256("secret")
	tok, err := v.Sign(Identity{UserID: "u1", DisplayName: "Ada"}, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	id, err := v.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.UserID != "u1" || id.DisplayName != "Ada" {
		t.Fatalf("identity = %+v", id)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	tok, err := NewHS256("secret-a").Sign(Identity{UserID: "u1"}, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewHS256("secret-b").Verify(tok); err == nil {
		t.Fatal("expected verification failure")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	v := NewHS256("secret")
	tok, err := v.Sign(Identity{UserID: "u1"}, -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := v.Verify(tok); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	v := NewHS256("secret")
	for _, tok := range []string{"", "not-a-token", strings.Repeat("a", 64)} {
		if _, err := v.Verify(tok); err == nil {
			t.Fatalf("token %q should not verify", tok)
		}
	}
}

func TestDisplayNameDefaultsToSubject(t *testing.T) {
	v := NewHS256("secret")
	tok, err := v.Sign(Identity{UserID: "u1"}, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	id, err := v.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.DisplayName != "u1" {
		t.Fatalf("display name = %q, want subject fallback", id.DisplayName)
	}
}

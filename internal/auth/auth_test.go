package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestVerifyRoundTrip(t *testing.T) {
	token, err := GenerateToken("secret", "user-1", "org-1", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	id, err := NewVerifier("secret").Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if id.UserID != "user-1" || id.OrganizationID != "org-1" {
		t.Errorf("Verify() = %+v, want user-1/org-1", id)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret", "user-1", "org-1", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if _, err := NewVerifier("other").Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	token, err := GenerateToken("secret", "user-1", "org-1", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if _, err := NewVerifier("secret").Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRequiresOrganization(t *testing.T) {
	token, err := GenerateToken("secret", "user-1", "", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if _, err := NewVerifier("secret").Verify(token); !errors.Is(err, ErrNoOrganization) {
		t.Errorf("Verify() error = %v, want ErrNoOrganization", err)
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := IdentityFrom(ctx); ok {
		t.Error("IdentityFrom() on empty context should report false")
	}

	want := Identity{UserID: "u", OrganizationID: "o"}
	got, ok := IdentityFrom(WithIdentity(ctx, want))
	if !ok || got != want {
		t.Errorf("IdentityFrom() = %+v, %v; want %+v, true", got, ok, want)
	}
}

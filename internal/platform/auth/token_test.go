package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sga/sga/internal/platform/apperr"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService(testSigningKey, time.Hour)
	tok, exp, err := svc.Issue(Identity{ID: "u-1", Name: "Ana", Role: RolePhysician})
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if exp.Before(time.Now()) {
		t.Error("expected expiry in the future")
	}

	id, err := svc.Resolve(tok)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if id.ID != "u-1" || id.Role != RolePhysician || id.Name != "Ana" {
		t.Errorf("unexpected identity: %+v", id)
	}
}

func TestTokenService_IssueRequiresSubject(t *testing.T) {
	svc := NewTokenService(testSigningKey, time.Hour)
	if _, _, err := svc.Issue(Identity{Role: RoleAdmin}); err == nil {
		t.Error("expected error for empty subject")
	}
}

func TestTokenService_Expired(t *testing.T) {
	svc := NewTokenService(testSigningKey, time.Minute)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	tok, _, err := svc.Issue(Identity{ID: "u-1", Role: RoleNurse})
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	svc.now = time.Now
	if _, err := svc.Resolve(tok); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestTokenService_WrongKey(t *testing.T) {
	tok, _, _ := NewTokenService([]byte("other-key"), time.Hour).Issue(Identity{ID: "u-1", Role: RoleAdmin})
	if _, err := NewTokenService(testSigningKey, time.Hour).Resolve(tok); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestTokenService_WrongIssuer(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: RoleAdmin,
	}
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSigningKey)
	if _, err := NewTokenService(testSigningKey, time.Hour).Resolve(tok); err == nil {
		t.Error("expected error for foreign issuer")
	}
}

func TestTokenService_Garbage(t *testing.T) {
	svc := NewTokenService(testSigningKey, time.Hour)
	for _, cred := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := svc.Resolve(cred); !errors.Is(err, apperr.ErrUnauthenticated) {
			t.Errorf("Resolve(%q): expected ErrUnauthenticated, got %v", cred, err)
		}
	}
}

package auth

import (
	"errors"
	"testing"
	"time"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	manager := NewJWTManager("test-secret-key-at-least-32-bytes!!", time.Hour)

	identity := Identity{
		ID:          "user-1",
		DisplayName: "Ana Pérez",
		Email:       "ana@example.com",
	}

	token, err := manager.Generate(identity)
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}

	claims, err := manager.Validate(token)
	if err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	if claims.UserID != identity.ID {
		t.Errorf("expected user id %q, got %q", identity.ID, claims.UserID)
	}
	if claims.Email != identity.Email {
		t.Errorf("expected email %q, got %q", identity.Email, claims.Email)
	}
	if claims.DisplayName != identity.DisplayName {
		t.Errorf("expected display name %q, got %q", identity.DisplayName, claims.DisplayName)
	}
}

func TestJWTManager_Expired(t *testing.T) {
	manager := NewJWTManager("test-secret-key-at-least-32-bytes!!", -time.Minute)

	token, err := manager.Generate(Identity{ID: "user-1", Email: "ana@example.com"})
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}

	if _, err := manager.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestJWTManager_WrongSecret(t *testing.T) {
	issuer := NewJWTManager("issuer-secret-key-32-bytes-long!!!!", time.Hour)
	verifier := NewJWTManager("different-secret-key-32-bytes!!!!!!", time.Hour)

	token, err := issuer.Generate(Identity{ID: "user-1", Email: "ana@example.com"})
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}

	if _, err := verifier.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

package services

import (
	"testing"
	"time"
)

func TestJWTGenerateValidate(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour)

	token, err := svc.Generate("user-1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("user id %q, want user-1", claims.UserID)
	}
}

func TestJWTWrongSecret(t *testing.T) {
	issuer := NewJWTService("secret-a", time.Hour)
	verifier := NewJWTService("secret-b", time.Hour)

	token, _ := issuer.Generate("user-1")
	if _, err := verifier.Validate(token); err == nil {
		t.Fatal("token signed with another secret validated")
	}
}

func TestJWTGarbageToken(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour)
	if _, err := svc.Validate("not-a-token"); err == nil {
		t.Fatal("garbage token validated")
	}
}

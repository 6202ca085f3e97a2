package store

import (
	"context"
	"errors"
	"os"
	"testing"
)

// newTestPostgres connects to the database named by TEST_DATABASE_URL,
// skipping the test when none is configured.
func newTestPostgres(t *testing.T) *PostgresStore {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping postgres tests")
	}
	s, err := NewPostgresStore(dsn)
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostgresWalletRoundTrip(t *testing.T) {
	s := newTestPostgres(t)
	ctx := context.Background()
	userID := "pg-test-" + t.Name()

	w, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	w, err = s.Credit(ctx, userID, 500)
	if err != nil {
		t.Fatalf("Credit: %v", err)
	}
	debited, err := s.Debit(ctx, userID, 200, w.Version)
	if err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if debited.BalanceCents != w.BalanceCents-200 {
		t.Fatalf("balance %d, want %d", debited.BalanceCents, w.BalanceCents-200)
	}

	if _, err := s.Debit(ctx, userID, 200, w.Version); !errors.Is(err, ErrWalletConflict) {
		t.Fatalf("stale debit error = %v, want ErrWalletConflict", err)
	}
}

func TestPostgresSeedPair(t *testing.T) {
	s := newTestPostgres(t)
	ctx := context.Background()
	userID := "pg-test-" + t.Name()

	pair, err := s.GetOrCreateActive(ctx, userID)
	if err != nil {
		t.Fatalf("GetOrCreateActive: %v", err)
	}
	nonce, err := s.IncrementNonce(ctx, pair.ID)
	if err != nil {
		t.Fatalf("IncrementNonce: %v", err)
	}
	if nonce != pair.Nonce+1 {
		t.Fatalf("nonce %d, want %d", nonce, pair.Nonce+1)
	}

	previous, current, err := s.Rotate(ctx, userID)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if previous == nil || previous.RevealedAt == nil {
		t.Fatal("rotate must reveal the retired pair")
	}
	if current.ID == pair.ID {
		t.Fatal("rotate must create a fresh pair")
	}
}

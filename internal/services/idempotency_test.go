package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"slots-backend/internal/models"
)

func TestIdempotencyMissThenHit(t *testing.T) {
	c := NewIdempotencyCache(time.Hour)
	ctx := context.Background()
	fp := SpinFingerprint("sess_1", "game", 100, "USD", 20)

	cached, err := c.Check(ctx, "user-1", "key-1", fp)
	if err != nil || cached != nil {
		t.Fatalf("first check = (%v, %v), want miss", cached, err)
	}

	result := &models.SpinResult{SpinID: "spin_abc"}
	if err := c.Store(ctx, "user-1", "key-1", fp, result); err != nil {
		t.Fatalf("Store: %v", err)
	}

	cached, err = c.Check(ctx, "user-1", "key-1", fp)
	if err != nil {
		t.Fatalf("replay check: %v", err)
	}
	if cached == nil || cached.SpinID != "spin_abc" {
		t.Fatalf("replay returned %+v, want cached result", cached)
	}
}

func TestIdempotencyFingerprintConflict(t *testing.T) {
	c := NewIdempotencyCache(time.Hour)
	ctx := context.Background()

	fp := SpinFingerprint("sess_1", "game", 100, "USD", 20)
	c.Store(ctx, "user-1", "key-1", fp, &models.SpinResult{SpinID: "spin_abc"})

	changedBet := SpinFingerprint("sess_1", "game", 200, "USD", 20)
	_, err := c.Check(ctx, "user-1", "key-1", changedBet)
	if !errors.Is(err, models.ErrIdempotencyKeyReused) {
		t.Fatalf("conflict error = %v, want ErrIdempotencyKeyReused", err)
	}
}

func TestIdempotencyScopedPerUser(t *testing.T) {
	c := NewIdempotencyCache(time.Hour)
	ctx := context.Background()
	fp := SpinFingerprint("sess_1", "game", 100, "USD", 20)

	c.Store(ctx, "user-1", "key-1", fp, &models.SpinResult{SpinID: "spin_abc"})

	cached, err := c.Check(ctx, "user-2", "key-1", fp)
	if err != nil || cached != nil {
		t.Fatal("another user's key must not hit the cache")
	}
}

func TestIdempotencyExpiry(t *testing.T) {
	c := NewIdempotencyCache(time.Hour)
	ctx := context.Background()

	current := time.Now()
	c.now = func() time.Time { return current }

	fp := SpinFingerprint("sess_1", "game", 100, "USD", 20)
	c.Store(ctx, "user-1", "key-1", fp, &models.SpinResult{SpinID: "spin_abc"})

	current = current.Add(2 * time.Hour)
	cached, err := c.Check(ctx, "user-1", "key-1", fp)
	if err != nil || cached != nil {
		t.Fatal("expired entry must behave as a miss")
	}
}

func TestIdempotencyCheckClaimWaitsForStore(t *testing.T) {
	c := NewIdempotencyCache(time.Hour)
	ctx := context.Background()
	fp := SpinFingerprint("sess_1", "game", 100, "USD", 20)

	cached, err := c.Check(ctx, "user-1", "key-1", fp)
	if err != nil || cached != nil {
		t.Fatalf("claim = (%v, %v), want miss", cached, err)
	}

	// A duplicate must block on the claim and replay the winner's
	// result instead of running its own execution.
	replayed := make(chan *models.SpinResult, 1)
	go func() {
		got, err := c.Check(ctx, "user-1", "key-1", fp)
		if err != nil {
			t.Errorf("waiting check: %v", err)
		}
		replayed <- got
	}()

	select {
	case got := <-replayed:
		t.Fatalf("duplicate returned %+v before the claim resolved", got)
	case <-time.After(20 * time.Millisecond):
	}

	if err := c.Store(ctx, "user-1", "key-1", fp, &models.SpinResult{SpinID: "spin_abc"}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	select {
	case got := <-replayed:
		if got == nil || got.SpinID != "spin_abc" {
			t.Fatalf("duplicate replayed %+v, want the winner's result", got)
		}
	case <-time.After(time.Second):
		t.Fatal("duplicate never woke after Store")
	}
}

func TestIdempotencyConflictWhilePending(t *testing.T) {
	c := NewIdempotencyCache(time.Hour)
	ctx := context.Background()

	fp := SpinFingerprint("sess_1", "game", 100, "USD", 20)
	if cached, err := c.Check(ctx, "user-1", "key-1", fp); err != nil || cached != nil {
		t.Fatal("claim must miss")
	}

	changedBet := SpinFingerprint("sess_1", "game", 200, "USD", 20)
	_, err := c.Check(ctx, "user-1", "key-1", changedBet)
	if !errors.Is(err, models.ErrIdempotencyKeyReused) {
		t.Fatalf("pending conflict = %v, want ErrIdempotencyKeyReused", err)
	}
}

func TestIdempotencyReleaseFreesClaim(t *testing.T) {
	c := NewIdempotencyCache(time.Hour)
	ctx := context.Background()
	fp := SpinFingerprint("sess_1", "game", 100, "USD", 20)

	if cached, err := c.Check(ctx, "user-1", "key-1", fp); err != nil || cached != nil {
		t.Fatal("claim must miss")
	}
	if err := c.Release(ctx, "user-1", "key-1"); err != nil {
		t.Fatalf("Release: %v", err)
	}

	// Released claim behaves as unseen.
	cached, err := c.Check(ctx, "user-1", "key-1", fp)
	if err != nil || cached != nil {
		t.Fatalf("post-release check = (%v, %v), want miss", cached, err)
	}
}

func TestIdempotencyReleaseKeepsStoredResult(t *testing.T) {
	c := NewIdempotencyCache(time.Hour)
	ctx := context.Background()
	fp := SpinFingerprint("sess_1", "game", 100, "USD", 20)

	if _, err := c.Check(ctx, "user-1", "key-1", fp); err != nil {
		t.Fatal(err)
	}
	c.Store(ctx, "user-1", "key-1", fp, &models.SpinResult{SpinID: "spin_abc"})
	if err := c.Release(ctx, "user-1", "key-1"); err != nil {
		t.Fatalf("Release: %v", err)
	}

	cached, err := c.Check(ctx, "user-1", "key-1", fp)
	if err != nil || cached == nil || cached.SpinID != "spin_abc" {
		t.Fatalf("replay after no-op release = (%+v, %v), want cached result", cached, err)
	}
}

func TestIdempotencyCheckHonorsContext(t *testing.T) {
	c := NewIdempotencyCache(time.Hour)
	fp := SpinFingerprint("sess_1", "game", 100, "USD", 20)

	if _, err := c.Check(context.Background(), "user-1", "key-1", fp); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.Check(ctx, "user-1", "key-1", fp)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("canceled wait = %v, want deadline exceeded", err)
	}
}

func TestSpinFingerprintStable(t *testing.T) {
	a := SpinFingerprint("sess_1", "game", 100, "USD", 20)
	b := SpinFingerprint("sess_1", "game", 100, "USD", 20)
	if a != b {
		t.Fatal("identical requests produced different fingerprints")
	}
	if a == SpinFingerprint("sess_1", "game", 100, "USD", 19) {
		t.Fatal("changed lines did not change the fingerprint")
	}
}

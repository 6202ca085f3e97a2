package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"slots-backend/internal/engine"
	"slots-backend/internal/models"
)

func TestWalletStartsEmpty(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	w, err := s.GetOrCreate(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if w.BalanceCents != 0 {
		t.Fatalf("new wallet balance %d, want 0", w.BalanceCents)
	}
	if w.Version != 1 {
		t.Fatalf("new wallet version %d, want 1", w.Version)
	}
}

func TestWalletDebitCredit(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.GetOrCreate(ctx, "user-1"); err != nil {
		t.Fatal(err)
	}
	w, err := s.Credit(ctx, "user-1", 1000)
	if err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if w.BalanceCents != 1000 {
		t.Fatalf("balance %d, want 1000", w.BalanceCents)
	}

	w, err = s.Debit(ctx, "user-1", 300, w.Version)
	if err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if w.BalanceCents != 700 {
		t.Fatalf("balance %d, want 700", w.BalanceCents)
	}
}

func TestWalletDebitStaleVersion(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.GetOrCreate(ctx, "user-1"); err != nil {
		t.Fatal(err)
	}
	w, _ := s.Credit(ctx, "user-1", 1000)

	if _, err := s.Debit(ctx, "user-1", 100, w.Version); err != nil {
		t.Fatalf("first debit: %v", err)
	}
	// Second debit with the now-stale version must lose the race.
	if _, err := s.Debit(ctx, "user-1", 100, w.Version); !errors.Is(err, ErrWalletConflict) {
		t.Fatalf("stale debit error = %v, want ErrWalletConflict", err)
	}
}

func TestWalletDebitInsufficient(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.GetOrCreate(ctx, "user-1"); err != nil {
		t.Fatal(err)
	}
	w, _ := s.Credit(ctx, "user-1", 50)

	if _, err := s.Debit(ctx, "user-1", 100, w.Version); !errors.Is(err, ErrWalletConflict) {
		t.Fatalf("overdraft error = %v, want ErrWalletConflict", err)
	}
}

func TestSeedPairLifecycle(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	pair, err := s.GetOrCreateActive(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetOrCreateActive: %v", err)
	}
	if pair.ServerSeed == "" || pair.ServerSeedHash == "" {
		t.Fatal("seed pair missing server seed or hash")
	}
	if pair.ClientSeed != "" {
		t.Fatalf("fresh pair client seed %q, want empty", pair.ClientSeed)
	}
	if pair.Nonce != 0 {
		t.Fatalf("fresh pair nonce %d, want 0", pair.Nonce)
	}

	again, _ := s.GetOrCreateActive(ctx, "user-1")
	if again.ID != pair.ID {
		t.Fatal("GetOrCreateActive is not idempotent")
	}

	for want := int64(1); want <= 3; want++ {
		nonce, err := s.IncrementNonce(ctx, pair.ID)
		if err != nil {
			t.Fatalf("IncrementNonce: %v", err)
		}
		if nonce != want {
			t.Fatalf("nonce %d, want %d", nonce, want)
		}
	}

	if _, err := s.SetClientSeed(ctx, "user-1", "my-seed"); err != nil {
		t.Fatalf("SetClientSeed: %v", err)
	}
	updated, _ := s.GetSeedPair(ctx, pair.ID)
	if updated.ClientSeed != "my-seed" {
		t.Fatalf("client seed %q, want my-seed", updated.ClientSeed)
	}
}

func TestIncrementNonceConcurrent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	pair, _ := s.GetOrCreateActive(ctx, "user-1")

	const workers = 50
	nonces := make([]int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			nonce, err := s.IncrementNonce(ctx, pair.ID)
			if err != nil {
				t.Error(err)
				return
			}
			nonces[i] = nonce
		}(i)
	}
	wg.Wait()

	// Every worker must have gotten a distinct nonce in 1..workers.
	seen := make(map[int64]bool)
	for _, n := range nonces {
		if n < 1 || n > workers || seen[n] {
			t.Fatalf("nonce %d duplicated or out of range", n)
		}
		seen[n] = true
	}
}

func TestSeedPairRotate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, _ := s.GetOrCreateActive(ctx, "user-1")

	previous, current, err := s.Rotate(ctx, "user-1")
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if previous == nil || previous.ID != first.ID {
		t.Fatal("rotate did not return the retired pair")
	}
	if previous.Active || previous.RevealedAt == nil {
		t.Fatal("retired pair must be inactive with RevealedAt set")
	}
	if current.ID == first.ID || !current.Active {
		t.Fatal("rotate did not produce a fresh active pair")
	}

	active, _ := s.GetOrCreateActive(ctx, "user-1")
	if active.ID != current.ID {
		t.Fatal("active pair after rotate is not the new pair")
	}
}

func roundParams(roundID, userID string, betCents, winCents int64) CreateRoundParams {
	return CreateRoundParams{
		RoundID:              roundID,
		UserID:               userID,
		SessionID:            "sess_x",
		GameID:               engine.GameID,
		SeedPairID:           "pair-1",
		Nonce:                1,
		BetCents:             betCents,
		WinCents:             winCents,
		Currency:             engine.Currency,
		Lines:                20,
		BalanceBeforeCents:   10000,
		BalanceAfterBetCents: 10000 - betCents,
		BalanceAfterCents:    10000 - betCents + winCents,
		ReelMatrix:           [][]string{{"A", "K", "Q"}},
	}
}

func TestCreateRoundIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.CreateRound(ctx, roundParams("round-1", "user-1", 100, 50))
	if err != nil {
		t.Fatalf("CreateRound: %v", err)
	}
	second, err := s.CreateRound(ctx, roundParams("round-1", "user-1", 100, 50))
	if err != nil {
		t.Fatalf("replayed CreateRound: %v", err)
	}
	if first.ID != second.ID || first.CreatedAt != second.CreatedAt {
		t.Fatal("replayed CreateRound did not return the existing round")
	}

	_, total, err := s.ListRounds(ctx, "user-1", models.HistoryFilters{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 {
		t.Fatalf("total rounds %d, want 1", total)
	}
}

func TestRoundTransactions(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.CreateRound(ctx, roundParams("round-win", "user-1", 100, 250)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateRound(ctx, roundParams("round-loss", "user-1", 100, 0)); err != nil {
		t.Fatal(err)
	}

	winTxs, _ := s.GetRoundTransactions(ctx, "round-win")
	if len(winTxs) != 2 {
		t.Fatalf("winning round transactions %d, want 2 (bet + win)", len(winTxs))
	}
	lossTxs, _ := s.GetRoundTransactions(ctx, "round-loss")
	if len(lossTxs) != 1 {
		t.Fatalf("losing round transactions %d, want 1 (bet only)", len(lossTxs))
	}
}

func TestGetRoundScopedToUser(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.CreateRound(ctx, roundParams("round-1", "user-1", 100, 0)); err != nil {
		t.Fatal(err)
	}

	if _, err := s.GetRound(ctx, "round-1", "user-1"); err != nil {
		t.Fatalf("owner lookup: %v", err)
	}
	if _, err := s.GetRound(ctx, "round-1", "user-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign lookup error = %v, want ErrNotFound", err)
	}
}

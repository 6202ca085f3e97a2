// Package store owns the durable state: wallets, seed pairs, rounds and
// their transactions. The orchestrator only touches these through the
// interfaces below, never the rows directly.
package store

import (
	"context"
	"errors"

	"slots-backend/internal/engine"
	"slots-backend/internal/models"
)

// ErrWalletConflict is returned by Debit when the conditional update
// matched no row: either the version was stale or the balance was
// insufficient. Callers that already validated sufficiency from their
// own read should treat it as a lost optimistic-lock race.
var ErrWalletConflict = errors.New("wallet version conflict or insufficient balance")

var ErrNotFound = errors.New("not found")

type WalletStore interface {
	// GetOrCreate is idempotent; a new wallet starts at zero balance.
	GetOrCreate(ctx context.Context, userID string) (*models.Wallet, error)
	// Debit decrements the balance only if the stored version matches
	// expectedVersion and the balance covers the amount; the version
	// increments atomically with the balance.
	Debit(ctx context.Context, userID string, amountCents, expectedVersion int64) (*models.Wallet, error)
	// Credit is unconditional: credits are additive and commutative.
	Credit(ctx context.Context, userID string, amountCents int64) (*models.Wallet, error)
}

type SeedStore interface {
	GetOrCreateActive(ctx context.Context, userID string) (*models.SeedPair, error)
	// IncrementNonce atomically bumps the pair nonce and returns the
	// new value. Called exactly once per spin, before seed derivation.
	IncrementNonce(ctx context.Context, seedPairID string) (int64, error)
	SetClientSeed(ctx context.Context, userID, clientSeed string) (*models.SeedPair, error)
	// Rotate deactivates the active pair (stamping RevealedAt, which
	// makes the server seed visible) and creates a fresh one.
	Rotate(ctx context.Context, userID string) (previous, current *models.SeedPair, err error)
	GetSeedPair(ctx context.Context, seedPairID string) (*models.SeedPair, error)
}

// CreateRoundParams carries everything persisted for one finished spin.
// RoundID is generated by the caller so the write can be idempotent.
type CreateRoundParams struct {
	RoundID              string
	UserID               string
	SessionID            string
	GameID               string
	SeedPairID           string
	Nonce                int64
	BetCents             int64
	WinCents             int64
	Currency             string
	Lines                int
	BalanceBeforeCents   int64
	BalanceAfterBetCents int64
	BalanceAfterCents    int64
	ReelMatrix           [][]string
	WinBreakdown         []engine.LineWin
	Bonus                *engine.Bonus
	OutcomeHash          string
}

type RoundStore interface {
	// CreateRound persists the round, its bet transaction and the win
	// transaction (when WinCents > 0) as one durable unit, idempotent
	// per RoundID.
	CreateRound(ctx context.Context, params CreateRoundParams) (*models.GameRound, error)
	ListRounds(ctx context.Context, userID string, filters models.HistoryFilters) ([]*models.GameRound, int64, error)
	Summary(ctx context.Context, userID string, filters models.HistoryFilters) (*models.HistorySummary, error)
	GetRound(ctx context.Context, roundID, userID string) (*models.GameRound, error)
	GetRoundTransactions(ctx context.Context, roundID string) ([]*models.Transaction, error)
}

// Store bundles the three durable stores one backend provides.
type Store interface {
	WalletStore
	SeedStore
	RoundStore
}

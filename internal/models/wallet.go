package models

import "time"

// Wallet is the per-player ledger row. All amounts are integer minor
// units (cents). Version increments on every mutation and is the
// optimistic-concurrency token for debits.
type Wallet struct {
	UserID       string    `json:"user_id"`
	BalanceCents int64     `json:"balance_cents"`
	Version      int64     `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

package models

import (
	"time"

	"slots-backend/internal/engine"
)

// InitResult is the response of game init: a fresh session plus
// everything the client needs to render the idle state.
type InitResult struct {
	SessionID  string            `json:"session_id"`
	GameID     string            `json:"game_id"`
	Config     engine.GameConfig `json:"config"`
	Balance    Money             `json:"balance"`
	IdleMatrix [][]string        `json:"idle_matrix"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

// HistoryItem is one round in the history listing, in major units.
type HistoryItem struct {
	RoundID      string    `json:"round_id"`
	GameID       string    `json:"game_id"`
	Bet          float64   `json:"bet"`
	Win          float64   `json:"win"`
	Currency     string    `json:"currency"`
	Lines        int       `json:"lines"`
	Result       string    `json:"result"`
	BalanceAfter float64   `json:"balance_after"`
	Bonus        bool      `json:"bonus"`
	Nonce        int64     `json:"nonce"`
	CreatedAt    time.Time `json:"created_at"`
}

type HistoryResult struct {
	Items   []HistoryItem  `json:"items"`
	Total   int64          `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
	Summary HistorySummary `json:"summary"`
}

// SeedPairInfo is the API-facing view of a seed pair. ServerSeed is
// only populated once the pair has been rotated (revealed).
type SeedPairInfo struct {
	ID             string     `json:"id"`
	ServerSeedHash string     `json:"server_seed_hash"`
	ServerSeed     string     `json:"server_seed,omitempty"`
	ClientSeed     string     `json:"client_seed"`
	Nonce          int64      `json:"nonce"`
	Active         bool       `json:"active"`
	RevealedAt     *time.Time `json:"revealed_at,omitempty"`
}

// SeedPairView converts a stored pair, exposing the server seed only
// after reveal.
func SeedPairView(pair *SeedPair) SeedPairInfo {
	info := SeedPairInfo{
		ID:             pair.ID,
		ServerSeedHash: pair.ServerSeedHash,
		ClientSeed:     pair.ClientSeed,
		Nonce:          pair.Nonce,
		Active:         pair.Active,
		RevealedAt:     pair.RevealedAt,
	}
	if pair.RevealedAt != nil {
		info.ServerSeed = pair.ServerSeed
	}
	return info
}

type RotateResult struct {
	Previous *SeedPairInfo `json:"previous"`
	Current  SeedPairInfo  `json:"current"`
}

type TransactionInfo struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Amount       float64   `json:"amount"`
	BalanceAfter float64   `json:"balance_after"`
	CreatedAt    time.Time `json:"created_at"`
}

// RoundDetail is one round with its ledger movements and the
// provably-fair state needed to verify it.
type RoundDetail struct {
	Round        *GameRound        `json:"round"`
	Transactions []TransactionInfo `json:"transactions"`
	ProvablyFair *SeedPairInfo     `json:"provably_fair,omitempty"`
}

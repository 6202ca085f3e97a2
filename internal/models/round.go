package models

import (
	"time"

	"slots-backend/internal/engine"
)

type TransactionType string

const (
	TransactionTypeBet TransactionType = "bet"
	TransactionTypeWin TransactionType = "win"
)

// GameRound is the immutable record of one completed spin. Created
// exactly once per successful spin, never updated.
type GameRound struct {
	ID                 string           `json:"id"`
	UserID             string           `json:"user_id"`
	SessionID          string           `json:"session_id"`
	GameID             string           `json:"game_id"`
	SeedPairID         string           `json:"seed_pair_id"`
	Nonce              int64            `json:"nonce"`
	BetCents           int64            `json:"bet_cents"`
	WinCents           int64            `json:"win_cents"`
	Currency           string           `json:"currency"`
	Lines              int              `json:"lines"`
	BalanceBeforeCents int64            `json:"balance_before_cents"`
	BalanceAfterCents  int64            `json:"balance_after_cents"`
	ReelMatrix         [][]string       `json:"reel_matrix"`
	WinBreakdown       []engine.LineWin `json:"win_breakdown"`
	Bonus              *engine.Bonus    `json:"bonus_triggered,omitempty"`
	OutcomeHash        string           `json:"outcome_hash"`
	CreatedAt          time.Time        `json:"created_at"`
}

// Transaction is one ledger movement linked to a round: always a bet
// debit, plus a win credit when the payout is positive. Append-only.
type Transaction struct {
	ID                string          `json:"id"`
	RoundID           string          `json:"round_id"`
	UserID            string          `json:"user_id"`
	Type              TransactionType `json:"type"`
	AmountCents       int64           `json:"amount_cents"`
	BalanceAfterCents int64           `json:"balance_after_cents"`
	CreatedAt         time.Time       `json:"created_at"`
}

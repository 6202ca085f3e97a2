package models

import "time"

// BetSpec is the bet portion of a spin request, in major units.
type BetSpec struct {
	Amount   float64 `json:"amount" binding:"required,gt=0"`
	Currency string  `json:"currency" binding:"required"`
	Lines    int     `json:"lines" binding:"required"`
}

type SpinRequest struct {
	SessionID string  `json:"session_id" binding:"required"`
	GameID    string  `json:"game_id"`
	Bet       BetSpec `json:"bet" binding:"required"`
}

type InitRequest struct {
	GameID string `json:"game_id"`
}

type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type BetInfo struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Lines    int     `json:"lines"`
}

type LineWinInfo struct {
	Type      string  `json:"type"`
	LineIndex int     `json:"line_index"`
	Symbol    string  `json:"symbol"`
	Count     int     `json:"count"`
	Payout    float64 `json:"payout"`
}

type BonusInfo struct {
	Type           string `json:"type"`
	FreeSpinsCount int    `json:"free_spins_count"`
	BonusRoundID   string `json:"bonus_round_id"`
	Multiplier     int    `json:"multiplier"`
}

type WinInfo struct {
	Amount    float64       `json:"amount"`
	Currency  string        `json:"currency"`
	Breakdown []LineWinInfo `json:"breakdown"`
}

type OutcomeInfo struct {
	ReelMatrix     [][]string `json:"reel_matrix"`
	Win            WinInfo    `json:"win"`
	BonusTriggered *BonusInfo `json:"bonus_triggered"`
}

// SpinResult is the API-facing shape of one spin. It is the value
// cached under the idempotency key, so replays return it byte for byte.
type SpinResult struct {
	SpinID    string      `json:"spin_id"`
	SessionID string      `json:"session_id"`
	GameID    string      `json:"game_id"`
	Balance   Money       `json:"balance"`
	Bet       BetInfo     `json:"bet"`
	Outcome   OutcomeInfo `json:"outcome"`
	NextState string      `json:"next_state"`
	Timestamp int64       `json:"timestamp"`
}

// HistoryFilters narrows round history queries. Zero values mean
// "no filter"; Result accepts "win", "loss" or "all".
type HistoryFilters struct {
	DateFrom *time.Time
	DateTo   *time.Time
	Result   string
	MinBet   *int64
	MaxBet   *int64
	Limit    int
	Offset   int
}

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 100
)

// Page returns the effective limit and offset. A missing limit falls
// back to DefaultHistoryLimit; anything above MaxHistoryLimit is
// capped, not reset, so the reported page size matches what was
// fetched.
func (f HistoryFilters) Page() (limit, offset int) {
	limit = f.Limit
	switch {
	case limit < 1:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}
	offset = f.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// HistorySummary aggregates the same filter set as the item list.
// Amounts are major units.
type HistorySummary struct {
	TotalRounds  int64   `json:"total_rounds"`
	TotalWagered float64 `json:"total_wagered"`
	TotalWon     float64 `json:"total_won"`
	NetResult    float64 `json:"net_result"`
	BiggestWin   float64 `json:"biggest_win"`
}

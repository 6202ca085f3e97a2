package models

import (
	"math"
	"net/http"
	"time"
)

// GameError is a caller-visible failure with a stable machine code so
// SDKs can branch without parsing messages.
type GameError struct {
	Code       string  `json:"code"`
	Message    string  `json:"error"`
	Status     int     `json:"-"`
	RetryAfter float64 `json:"retry_after,omitempty"`
}

func (e *GameError) Error() string {
	return e.Message
}

var (
	ErrSessionExpired       = &GameError{Code: "session_expired", Message: "Session not found or expired", Status: http.StatusForbidden}
	ErrForbidden            = &GameError{Code: "forbidden", Message: "Forbidden", Status: http.StatusForbidden}
	ErrInvalidGameID        = &GameError{Code: "invalid_game_id", Message: "Invalid game for session", Status: http.StatusBadRequest}
	ErrInvalidBet           = &GameError{Code: "invalid_bet", Message: "Bet amount out of range", Status: http.StatusUnprocessableEntity}
	ErrInvalidCurrency      = &GameError{Code: "invalid_currency", Message: "Invalid currency", Status: http.StatusUnprocessableEntity}
	ErrInvalidLines         = &GameError{Code: "invalid_lines", Message: "Invalid lines count", Status: http.StatusUnprocessableEntity}
	ErrInsufficientBalance  = &GameError{Code: "insufficient_balance", Message: "insufficient_balance", Status: http.StatusUnprocessableEntity}
	ErrIdempotencyKeyReused = &GameError{Code: "idempotency_key_reused", Message: "Idempotency key reused with different request payload", Status: http.StatusConflict}
	ErrRoundNotFound        = &GameError{Code: "round_not_found", Message: "Round not found", Status: http.StatusNotFound}
	ErrInternal             = &GameError{Code: "internal_error", Message: "Internal server error", Status: http.StatusInternalServerError}
)

// ErrRateLimited builds the throughput error carrying the time until
// the current window resets.
func ErrRateLimited(retryAfter time.Duration) *GameError {
	seconds := math.Max(retryAfter.Seconds(), 0.001)
	return &GameError{
		Code:       "rate_limited",
		Message:    "Too many requests",
		Status:     http.StatusTooManyRequests,
		RetryAfter: seconds,
	}
}

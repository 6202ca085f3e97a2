package models

import "time"

type SessionStatus string

const (
	SessionStatusActive SessionStatus = "active"
	SessionStatusClosed SessionStatus = "closed"
)

// Session is a short-lived play session binding one user to one game.
// Expired sessions are inert and treated as absent.
type Session struct {
	ID        string        `json:"session_id"`
	UserID    string        `json:"user_id"`
	GameID    string        `json:"game_id"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"expires_at"`
}

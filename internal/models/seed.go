package models

import "time"

// SeedPair is a provably-fair commit-reveal pair. At most one active
// pair exists per user. ServerSeedHash is the pre-commitment published
// before any spin; ServerSeed is only exposed once the pair is rotated
// (RevealedAt set). Nonce increments exactly once per spin consuming
// the pair.
type SeedPair struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	ServerSeed     string     `json:"-"`
	ServerSeedHash string     `json:"server_seed_hash"`
	ClientSeed     string     `json:"client_seed"`
	Nonce          int64      `json:"nonce"`
	Active         bool       `json:"active"`
	RevealedAt     *time.Time `json:"revealed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

package services

import "slots-backend/internal/models"

// Broadcaster pushes realtime updates to a connected player. A nil
// Broadcaster is valid; the orchestrator works without one.
type Broadcaster interface {
	BroadcastRoundResult(userID string, result *models.SpinResult)
	BroadcastBalance(userID string, balanceCents int64)
}

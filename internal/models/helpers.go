package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CentsToAmount converts integer minor units to a major-unit value for
// API-facing shapes.
func CentsToAmount(cents int64) float64 {
	f, _ := decimal.NewFromInt(cents).Div(hundred).Float64()
	return f
}

// AmountToCents converts a major-unit value to integer minor units,
// rounding to the nearest cent.
func AmountToCents(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(hundred).Round(0).IntPart()
}

func GenerateSessionID() string {
	return fmt.Sprintf("sess_%s", uuid.New().String()[:12])
}

func GenerateRoundID() string {
	return fmt.Sprintf("spin_%s", uuid.New().String()[:12])
}

// GenerateClientSeed returns 128 bits of entropy for the default client
// seed set at pair creation.
func GenerateClientSeed() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate client seed: %v", err)
	}
	return hex.EncodeToString(bytes), nil
}

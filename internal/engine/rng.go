package engine

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// RNG is a seeded Mulberry32 generator. It is deliberately
// non-cryptographic: unpredictability comes from the seed derivation,
// the generator only has to replay the same sequence for the same seed.
type RNG struct {
	state uint32
}

func NewRNG(seed uint32) *RNG {
	return &RNG{state: seed}
}

// Next returns the next value in [0, 1).
func (r *RNG) Next() float64 {
	r.state += 0x6d2b79f5
	t := r.state
	t = (t ^ (t >> 15)) * (t | 1)
	t = (t + (t^(t>>7))*(t|61)) ^ t
	t = t ^ (t >> 14)
	return float64(t) / 4294967296.0
}

// RandomSeed returns a seed from the system CSPRNG. Used only when no
// committed seed pair exists for the request.
func RandomSeed() (uint32, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("failed to read random seed: %v", err)
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

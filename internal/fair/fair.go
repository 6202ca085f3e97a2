// Package fair implements the commit-reveal primitives behind the
// provably-fair protocol: server seed generation, the SHA-256
// pre-commitment, and the per-spin seed derivation a player can replay
// after the server seed is revealed.
package fair

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// GenerateServerSeed returns 32 bytes of CSPRNG entropy, hex encoded.
func GenerateServerSeed() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate server seed: %v", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashServerSeed computes the public pre-commitment for a server seed.
// It is computed once at pair creation and never recomputed.
func HashServerSeed(serverSeed string) string {
	sum := sha256.Sum256([]byte(serverSeed))
	return hex.EncodeToString(sum[:])
}

// DeriveSpinSeed derives the uint32 RNG seed for one spin:
// HMAC-SHA256(key=serverSeed, message=clientSeed:nonce), first 4 bytes
// read big-endian. Unforgeable without the server seed, reproducible
// with it.
func DeriveSpinSeed(serverSeed, clientSeed string, nonce int64) uint32 {
	mac := hmac.New(sha256.New, []byte(serverSeed))
	fmt.Fprintf(mac, "%s:%d", clientSeed, nonce)
	sum := mac.Sum(nil)
	return binary.BigEndian.Uint32(sum[:4])
}

// HashOutcome fingerprints a spin outcome for the audit trail.
func HashOutcome(outcome interface{}) (string, error) {
	data, err := json.Marshal(outcome)
	if err != nil {
		return "", fmt.Errorf("failed to marshal outcome: %v", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"slots-backend/internal/models"
)

const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStore deduplicates retried spin requests by client key.
// Check is a claim, not a lookup: when the scoped key is unseen it is
// atomically reserved and (nil, nil) is returned, after which the
// caller MUST finish with Store on success or Release on failure.
// When another claimant is in flight, Check waits for it and replays
// its result, so a retry that overlaps the first attempt's persistence
// window still observes exactly one execution. A matching key with a
// different fingerprint is ErrIdempotencyKeyReused.
type IdempotencyStore interface {
	Check(ctx context.Context, userID, key, fingerprint string) (*models.SpinResult, error)
	Store(ctx context.Context, userID, key, fingerprint string, result *models.SpinResult) error
	Release(ctx context.Context, userID, key string) error
}

// SpinFingerprint hashes the semantically meaningful request fields,
// not the whole payload, so cosmetic differences don't break replay
// while a changed bet is a hard conflict.
func SpinFingerprint(sessionID, gameID string, betCents int64, currency string, lines int) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%d|%s|%d", sessionID, gameID, betCents, currency, lines))
	return hex.EncodeToString(sum[:])
}

type idempotencyEntry struct {
	fingerprint string
	result      *models.SpinResult // nil while the claimant is executing
	createdAt   time.Time
	done        chan struct{} // closed on Store or Release
}

// IdempotencyCache is the process-local IdempotencyStore.
type IdempotencyCache struct {
	mu      sync.Mutex
	entries map[string]*idempotencyEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewIdempotencyCache(ttl time.Duration) *IdempotencyCache {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyCache{
		entries: make(map[string]*idempotencyEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func scopedKey(userID, key string) string {
	return userID + ":" + key
}

func (c *IdempotencyCache) Check(ctx context.Context, userID, key, fingerprint string) (*models.SpinResult, error) {
	scoped := scopedKey(userID, key)
	for {
		c.mu.Lock()
		entry, ok := c.entries[scoped]
		if ok && entry.result != nil && c.now().Sub(entry.createdAt) > c.ttl {
			delete(c.entries, scoped)
			ok = false
		}
		if !ok {
			c.entries[scoped] = &idempotencyEntry{
				fingerprint: fingerprint,
				createdAt:   c.now(),
				done:        make(chan struct{}),
			}
			c.mu.Unlock()
			return nil, nil
		}
		if entry.fingerprint != fingerprint {
			c.mu.Unlock()
			return nil, models.ErrIdempotencyKeyReused
		}
		if entry.result != nil {
			cp := *entry.result
			c.mu.Unlock()
			return &cp, nil
		}
		// Another claimant holds the key; wait for its Store or
		// Release, then re-check. After a Release the entry is gone
		// and the loop claims it.
		done := entry.done
		c.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (c *IdempotencyCache) Store(ctx context.Context, userID, key, fingerprint string, result *models.SpinResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	scoped := scopedKey(userID, key)
	entry, ok := c.entries[scoped]
	if !ok || entry.result != nil {
		entry = &idempotencyEntry{fingerprint: fingerprint, done: make(chan struct{})}
		c.entries[scoped] = entry
	}
	cp := *result
	entry.result = &cp
	entry.createdAt = c.now()
	close(entry.done)
	return nil
}

// Release drops an unfinished claim so a retry runs the pipeline
// again. A completed entry is left intact.
func (c *IdempotencyCache) Release(ctx context.Context, userID, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	scoped := scopedKey(userID, key)
	if entry, ok := c.entries[scoped]; ok && entry.result == nil {
		delete(c.entries, scoped)
		close(entry.done)
	}
	return nil
}

// Sweep drops completed entries past their TTL. In-flight claims are
// left alone; their holders finish them.
func (c *IdempotencyCache) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, entry := range c.entries {
		if entry.result != nil && now.Sub(entry.createdAt) > c.ttl {
			delete(c.entries, key)
		}
	}
}

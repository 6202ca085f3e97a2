package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"slots-backend/internal/models"
)

const (
	keySession       = "session:%s"
	keyIdempotency   = "idempotency:%s:%s"
	keySpinRateLimit = "ratelimit:spin:%s"
)

// RedisService backs the ephemeral state (sessions, idempotency,
// rate limits) with Redis so multiple instances share it. It satisfies
// SessionStore, IdempotencyStore and RateLimiter.
type RedisService struct {
	client     *redis.Client
	sessionTTL time.Duration
	idemTTL    time.Duration
	spinLimit  int
	spinWindow time.Duration
}

func NewRedisService(addr, password string, db int) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	return &RedisService{
		client:     client,
		sessionTTL: DefaultSessionTTL,
		idemTTL:    DefaultIdempotencyTTL,
		spinLimit:  DefaultSpinRateLimit,
		spinWindow: DefaultSpinRateWindow,
	}, nil
}

// Configure overrides the default TTLs and spin rate limits.
func (s *RedisService) Configure(sessionTTL, idemTTL time.Duration, spinLimit int, spinWindow time.Duration) {
	if sessionTTL > 0 {
		s.sessionTTL = sessionTTL
	}
	if idemTTL > 0 {
		s.idemTTL = idemTTL
	}
	if spinLimit > 0 {
		s.spinLimit = spinLimit
	}
	if spinWindow > 0 {
		s.spinWindow = spinWindow
	}
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

func (s *RedisService) Create(ctx context.Context, userID, gameID string) (*models.Session, error) {
	now := time.Now().UTC()
	session := &models.Session{
		ID:        models.GenerateSessionID(),
		UserID:    userID,
		GameID:    gameID,
		Status:    models.SessionStatusActive,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %v", err)
	}
	key := fmt.Sprintf(keySession, session.ID)
	if err := s.client.Set(ctx, key, data, s.sessionTTL).Err(); err != nil {
		return nil, fmt.Errorf("failed to store session: %v", err)
	}
	return session, nil
}

func (s *RedisService) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	key := fmt.Sprintf(keySession, sessionID)
	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %v", err)
	}

	var session models.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %v", err)
	}
	if session.Status != models.SessionStatusActive || time.Now().After(session.ExpiresAt) {
		s.client.Del(ctx, key)
		return nil, nil
	}
	return &session, nil
}

type redisIdempotencyEntry struct {
	Fingerprint string             `json:"fingerprint"`
	Result      *models.SpinResult `json:"result"`
	CreatedAt   int64              `json:"created_at"`
}

const (
	// Pending markers carry the claimant's fingerprint so a conflicting
	// key is rejected without waiting for the claimant to finish.
	idempotencyPendingPrefix = "pending:"
	// A crashed claimant must not block its key for the full result TTL.
	idempotencyPendingTTL = 30 * time.Second

	idempotencyPollInterval = 25 * time.Millisecond
)

// Check claims the key with SetNX. Losing the claim means another
// attempt is executing or already cached; pending markers are polled
// until the winner stores its result.
func (s *RedisService) Check(ctx context.Context, userID, key, fingerprint string) (*models.SpinResult, error) {
	redisKey := fmt.Sprintf(keyIdempotency, userID, key)
	for {
		claimed, err := s.client.SetNX(ctx, redisKey, idempotencyPendingPrefix+fingerprint, idempotencyPendingTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to claim idempotency key: %v", err)
		}
		if claimed {
			return nil, nil
		}

		data, err := s.client.Get(ctx, redisKey).Result()
		if err == redis.Nil {
			// Holder released between SetNX and Get; claim again.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency key: %v", err)
		}
		if pending, ok := strings.CutPrefix(data, idempotencyPendingPrefix); ok {
			if pending != fingerprint {
				return nil, models.ErrIdempotencyKeyReused
			}
			select {
			case <-time.After(idempotencyPollInterval):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}

		var entry redisIdempotencyEntry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal idempotency entry: %v", err)
		}
		if entry.Fingerprint != fingerprint {
			return nil, models.ErrIdempotencyKeyReused
		}
		return entry.Result, nil
	}
}

func (s *RedisService) Store(ctx context.Context, userID, key, fingerprint string, result *models.SpinResult) error {
	entry := redisIdempotencyEntry{
		Fingerprint: fingerprint,
		Result:      result,
		CreatedAt:   time.Now().Unix(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal idempotency entry: %v", err)
	}
	// Overwrites the caller's own pending marker.
	redisKey := fmt.Sprintf(keyIdempotency, userID, key)
	if err := s.client.Set(ctx, redisKey, data, s.idemTTL).Err(); err != nil {
		return fmt.Errorf("failed to store idempotency entry: %v", err)
	}
	return nil
}

// Release drops the caller's pending marker after a failed attempt.
// Completed entries are left intact.
func (s *RedisService) Release(ctx context.Context, userID, key string) error {
	redisKey := fmt.Sprintf(keyIdempotency, userID, key)
	data, err := s.client.Get(ctx, redisKey).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to release idempotency key: %v", err)
	}
	if strings.HasPrefix(data, idempotencyPendingPrefix) {
		if err := s.client.Del(ctx, redisKey).Err(); err != nil {
			return fmt.Errorf("failed to release idempotency key: %v", err)
		}
	}
	return nil
}

func (s *RedisService) Allow(ctx context.Context, userID string) (bool, time.Duration, error) {
	key := fmt.Sprintf(keySpinRateLimit, userID)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to check rate limit: %v", err)
	}
	if count == 1 {
		s.client.PExpire(ctx, key, s.spinWindow)
	}
	if count > int64(s.spinLimit) {
		retryAfter, err := s.client.PTTL(ctx, key).Result()
		if err != nil || retryAfter <= 0 {
			retryAfter = s.spinWindow
		}
		return false, retryAfter, nil
	}
	return true, 0, nil
}

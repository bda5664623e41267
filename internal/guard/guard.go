// Package guard implements a best-effort in-flight lock for enrollment
// requests, backed by Redis SETNX. It keeps two concurrent enrollments for the
// same retirement number from racing each other through the pipeline; the
// database unique constraints remain the authoritative duplicate check.
package guard

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	derrors "himpana/pkg/domain-errors"
)

const keyPrefix = "himpana:enroll:inflight:"

// locker is the slice of the Redis API the guard needs. *redis.Client
// satisfies it; tests swap in a scripted fake.
type locker interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Guard acquires short-lived per-retirement-number locks. A nil Redis client
// disables it: every Acquire succeeds with a no-op release.
type Guard struct {
	redis  locker
	ttl    time.Duration
	logger *slog.Logger
}

func New(client locker, ttl time.Duration, logger *slog.Logger) *Guard {
	return &Guard{redis: client, ttl: ttl, logger: logger}
}

// Acquire locks the retirement number for the duration of an enrollment. The
// returned release must be called once the request finishes, success or not.
// Redis outages fail open: the guard logs and lets the request through.
func (g *Guard) Acquire(ctx context.Context, retirementNumber string) (func(), error) {
	if g == nil || g.redis == nil {
		return func() {}, nil
	}

	key := keyPrefix + retirementNumber
	ok, err := g.redis.SetNX(ctx, key, "1", g.ttl).Result()
	if err != nil {
		g.logger.WarnContext(ctx, "in-flight guard unavailable, continuing without lock",
			"error", err.Error(),
		)
		return func() {}, nil
	}
	if !ok {
		return nil, derrors.New(derrors.CodeDuplicate, "an enrollment for this retirement number is already in progress")
	}

	return func() {
		// Release outside the request ctx so a cancelled request still
		// unlocks.
		relCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := g.redis.Del(relCtx, key).Err(); err != nil {
			g.logger.Warn("in-flight guard release failed, lock will expire",
				"key", key,
				"error", err.Error(),
			)
		}
	}, nil
}

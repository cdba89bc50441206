package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/yungbote/chief-of-staff/internal/pkg/logger"
)

// Lease guards a named job so that only one process runs it per window.
// Release is best-effort; an unreleased lease expires with its TTL.
type Lease interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, func(), error)
}

type redisLease struct {
	log      *logger.Logger
	rdb      *redis.Client
	holderID string
}

func NewRedisLease(log *logger.Logger, rdb *redis.Client) Lease {
	return &redisLease{
		log:      log.With("component", "RedisLease"),
		rdb:      rdb,
		holderID: uuid.NewString(),
	}
}

func (l *redisLease) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, func(), error) {
	key := "cos:job:" + name
	ok, err := l.rdb.SetNX(ctx, key, l.holderID, ttl).Result()
	if err != nil {
		return false, nil, err
	}
	if !ok {
		return false, nil, nil
	}
	release := func() {
		// Only delete a lease we still hold.
		val, err := l.rdb.Get(context.Background(), key).Result()
		if err != nil || val != l.holderID {
			return
		}
		if err := l.rdb.Del(context.Background(), key).Err(); err != nil {
			l.log.Warn("Lease release failed", "job", name, "error", err.Error())
		}
	}
	return true, release, nil
}

// noopLease always grants. Used when redis is not configured, which is fine
// for a single-process deployment.
type noopLease struct{}

func NewNoopLease() Lease { return noopLease{} }

func (noopLease) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, func(), error) {
	return true, func() {}, nil
}

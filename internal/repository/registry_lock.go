package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockTimeout is returned when the lock stays held by another process
// for longer than the wait allowance.
var ErrLockTimeout = errors.New("registry lock timeout")

// releaseScript deletes the key only while it still holds our token, so an
// expired lock re-acquired elsewhere is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RegistryLock is a Redis SETNX mutex shared by every process writing the
// same institutes file.
type RegistryLock struct {
	rdb   *redis.Client
	key   string
	ttl   time.Duration
	wait  time.Duration
	retry time.Duration
}

// NewRegistryLock creates a lock on key. ttl bounds how long a crashed
// holder can block others.
func NewRegistryLock(rdb *redis.Client, key string, ttl time.Duration) *RegistryLock {
	return &RegistryLock{
		rdb:   rdb,
		key:   key,
		ttl:   ttl,
		wait:  5 * time.Second,
		retry: 25 * time.Millisecond,
	}
}

// Acquire blocks until the lock is held, ctx ends, or the wait allowance
// runs out. The returned release function is safe to call once.
func (l *RegistryLock) Acquire(ctx context.Context) (func(), error) {
	token := uuid.New().String()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire registry lock: %w", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}

	return func() {
		// The caller's ctx may already be done; release on a fresh one.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(rctx, l.rdb, []string{l.key}, token).Err()
	}, nil
}

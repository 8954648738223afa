package redislock

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker hands out TTL-bounded advisory locks backed by Redis SET NX.
// "Lock already held" is a normal skip condition for callers, not an error.
type Locker struct {
	client *redis.Client
}

func NewLocker(client *redis.Client) *Locker {
	return &Locker{client: client}
}

// Lease represents a held lock. Release must be called (deferred) by the holder.
type Lease struct {
	client *redis.Client
	key    string
	token  string
}

// releaseScript deletes the key only if it still holds our token, so a lease
// that outlived its TTL cannot release a lock re-acquired by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// TryAcquire attempts to take the lock for key with the given TTL.
// Returns (nil, nil) when the lock is already held by another party.
func (l *Locker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	token := uuid.New().String()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, nil
	}

	return &Lease{client: l.client, key: key, token: token}, nil
}

// Release frees the lock if this lease still owns it.
func (le *Lease) Release(ctx context.Context) {
	if err := releaseScript.Run(ctx, le.client, []string{le.key}, le.token).Err(); err != nil && err != redis.Nil {
		log.Printf("[RedisLock] could not release lock %s: %v", le.key, err)
	}
}

package keylock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var errLockHeld = errors.New("lock held")

// Redis is a Locker shared between processes through SET NX
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis creates a Redis locker. ttl caps how long a crashed holder can
// block others and defaults to 30 seconds.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Redis{client: client, prefix: "projector:lock:", ttl: ttl}
}

// Lock implements Locker, polling with backoff until the lock is free
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := r.prefix + key
	token := uuid.NewString()

	acquire := func() error {
		ok, err := r.client.SetNX(ctx, lockKey, token, r.ttl).Result()
		if err != nil {
			return backoff.Permanent(fmt.Errorf("acquire lock %s: %w", key, err))
		}
		if !ok {
			return errLockHeld
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 20 * time.Millisecond
	policy.MaxInterval = 500 * time.Millisecond
	policy.MaxElapsedTime = r.ttl

	if err := backoff.Retry(acquire, backoff.WithContext(policy, ctx)); err != nil {
		return nil, err
	}

	return func() {
		// release even when the caller's context is already done
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, r.client, []string{lockKey}, token).Err()
	}, nil
}

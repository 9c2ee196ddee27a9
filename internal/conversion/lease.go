package conversion

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// releaseScript deletes the lease only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLease is a Locker backed by a Redis key with expiry.
type RedisLease struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisLease creates a lease on key. ttl should exceed the run timeout so
// the lease does not lapse mid-pass.
func NewRedisLease(client *redis.Client, key string, ttl time.Duration) *RedisLease {
	return &RedisLease{client: client, key: key, ttl: ttl}
}

// Acquire implements Locker.
func (l *RedisLease) Acquire(ctx context.Context) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.client, []string{l.key}, token).Err(); err != nil {
			slog.Warn("conversion: release lease failed", slog.String("key", l.key), slog.String("error", err.Error()))
		}
	}
	return release, true, nil
}

package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token, so an
// expired lock taken over by another process is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a single-key lease lock shared by every process that writes
// the same workbook.
type RedisLocker struct {
	Client *redis.Client
	Key    string
	TTL    time.Duration
	Retry  time.Duration
}

// NewRedisClient accepts either a redis:// URL or a bare host:port address.
func NewRedisClient(addr string) (*redis.Client, error) {
	if strings.Contains(addr, "://") {
		opts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{Addr: addr}), nil
}

// NewRedisLocker derives the lock key from the absolute workbook path.
func NewRedisLocker(client *redis.Client, path string, ttl time.Duration) *RedisLocker {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &RedisLocker{
		Client: client,
		Key:    "uniqtext:lock:" + abs,
		TTL:    ttl,
		Retry:  100 * time.Millisecond,
	}
}

func (l *RedisLocker) Lock(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	for {
		ok, err := l.Client.SetNX(ctx, l.Key, token, l.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", l.Key, err)
		}
		if ok {
			return func() {
				// released even when the caller's context is already cancelled
				_ = releaseScript.Run(context.Background(), l.Client, []string{l.Key}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.Retry):
		}
	}
}

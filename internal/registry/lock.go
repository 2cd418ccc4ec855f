package registry

import (
	"context" // Lock wait cancellation
	"errors"  // Error matching
	"fmt"     // Error wrapping
	"time"    // Expiry and polling

	"github.com/google/uuid"       // Lock ownership tokens
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// Locker serializes registry writers across processes
type Locker interface {
	// Lock blocks until the lock is held and returns the function releasing it
	Lock(ctx context.Context) (func(), error)
}

const (
	defaultLockTTL   = 10 * time.Second      // Expiry when none is configured
	defaultLockRetry = 25 * time.Millisecond // Poll interval while waiting
)

// releaseScript deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a single-key Redis lock. The key expires after ttl so a crashed holder
// never blocks other writers for longer than that
type RedisLocker struct {
	rdb   *redis.Client // Redis client
	key   string        // Lock key
	ttl   time.Duration // Key expiry and maximum wait
	retry time.Duration // Poll interval
}

// NewRedisLocker creates a lock stored under key
func NewRedisLocker(rdb *redis.Client, key string, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL // Never hold the key forever
	}
	return &RedisLocker{rdb: rdb, key: key, ttl: ttl, retry: defaultLockRetry}
}

// Lock polls until the key is acquired. Waiting is bounded by the lock TTL
func (l *RedisLocker) Lock(ctx context.Context) (func(), error) {
	token := uuid.NewString() // Identifies this holder on release

	waitCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.rdb.SetNX(waitCtx, l.key, token, l.ttl).Result() // Try to take the key
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("acquire lock %s: %w", l.key, err)
		}
		if ok {
			return func() { l.release(token) }, nil // Held
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err() // Caller gave up
			}
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, l.key)
		case <-ticker.C: // Retry
		}
	}
}

// release drops the key if this holder still owns it
func (l *RedisLocker) release(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, l.rdb, []string{l.key}, token).Err(); err != nil {
		logrus.WithFields(logrus.Fields{
			"key":   l.key,       // Lock key
			"error": err.Error(), // Error message
		}).Warn("Failed to release registry lock")
	}
}

package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/common-server/server-bootstrap/pkg/logger"
	"github.com/common-server/server-bootstrap/pkg/metrics"
)

const (
	defaultPrefix = "lock:"
	pollInterval  = 50 * time.Millisecond
)

// ErrNotAcquired is returned by WithLock when the wait time elapses.
var ErrNotAcquired = errors.New("lock not acquired")

// releaseScript deletes the key only while it still holds our token, so a
// holder whose lease expired cannot release someone else's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a Redis SET NX lock with a lease. Keys are stored as
// "<prefix><key>" with a random token as value.
type Locker struct {
	client *redis.Client
	prefix string
}

// NewRedisLocker creates a Locker. Prefix may be empty.
func NewRedisLocker(client *redis.Client, prefix string) *Locker {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Locker{client: client, prefix: prefix}
}

func (l *Locker) key(k string) string {
	return l.prefix + k
}

// TryLock polls until the lock is taken or wait elapses. It returns the
// token needed to unlock, or "" when the lock was not acquired.
func (l *Locker) TryLock(ctx context.Context, key string, wait, lease time.Duration) (string, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(wait)
	for {
		ok, err := l.client.SetNX(ctx, l.key(key), token, lease).Result()
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}
		if !time.Now().Before(deadline) {
			return "", nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Unlock releases the lock if token still owns it. It reports whether the
// key was deleted.
func (l *Locker) Unlock(ctx context.Context, key, token string) (bool, error) {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key(key)}, token).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// WithLock runs fn while holding the lock.
func (l *Locker) WithLock(ctx context.Context, key string, wait, lease time.Duration, fn func(ctx context.Context) error) error {
	token, err := l.TryLock(ctx, key, wait, lease)
	if err != nil {
		metrics.LockAttempts.WithLabelValues("error").Inc()
		return fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if token == "" {
		metrics.LockAttempts.WithLabelValues("timeout").Inc()
		return fmt.Errorf("%w: %s after %s", ErrNotAcquired, key, wait)
	}
	metrics.LockAttempts.WithLabelValues("acquired").Inc()
	logger.Debugf("lock acquired: %s", key)
	defer func() {
		// release with a fresh context so a cancelled run still frees the key
		released, err := l.Unlock(context.Background(), key, token)
		switch {
		case err != nil:
			logger.Warnf("lock %s not released: %v", key, err)
		case !released:
			logger.Warnf("lock %s expired before release", key)
		default:
			logger.Debugf("lock released: %s", key)
		}
	}()
	return fn(ctx)
}

// ForceUnlock deletes the lock regardless of owner.
func (l *Locker) ForceUnlock(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.key(key)).Err(); err != nil {
		return err
	}
	logger.Warnf("lock forcefully released: %s", key)
	return nil
}

func (l *Locker) IsLocked(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Exists(ctx, l.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

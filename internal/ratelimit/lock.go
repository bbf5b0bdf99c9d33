package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// RunLocker serializes refresh runs across instances. A job acquires
// "refresh:<job>" before running and skips the run when another holder exists.
// With no redis configured the locker is nil and runs are unguarded, which
// falls back to last-write-wins at the row level.
type RunLocker struct {
	client *redis.Client
	script *redis.Script
}

func NewRunLocker(client *redis.Client) *RunLocker {
	if client == nil {
		return nil
	}
	return &RunLocker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
	}
}

func RunLockKey(job string) string {
	return "refresh:" + job
}

// TryLock attempts to take the lock without blocking. The returned token must
// be passed to Release; only the holder's token releases the lock.
func (l *RunLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", true, nil
	}
	if key == "" {
		return "", false, errors.New("lock key is empty")
	}
	if ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *RunLocker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}

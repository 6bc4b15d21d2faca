package sweeplock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKey = "clinicremind:sweep:lock"

// Lock elects a single sweep runner across service instances using
// SET NX PX on a shared Redis key. The TTL bounds how long a crashed
// holder can block the next sweep.
type Lock struct {
	rdb *redis.Client
	key string
}

func New(rdb *redis.Client, key string) *Lock {
	if key == "" {
		key = defaultKey
	}
	return &Lock{rdb: rdb, key: key}
}

// TryAcquire reports whether this instance won the lock for ttl.
func (l *Lock) TryAcquire(ctx context.Context, holder string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return l.rdb.SetNX(ctx, l.key, holder, ttl).Result()
}

// Release deletes the lock only if this holder still owns it.
func (l *Lock) Release(ctx context.Context, holder string) error {
	return releaseScript.Run(ctx, l.rdb, []string{l.key}, holder).Err()
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

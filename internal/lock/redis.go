package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrLockTimeout = errors.New("lock: could not acquire lock before deadline")

// releaseScript deletes the key only when it still holds our token, so an expired
// lock taken over by another replica is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker shared by every replica connected to the same Redis.
type RedisLocker struct {
	client  redis.UniversalClient
	ttl     time.Duration
	retry   time.Duration
	maxWait time.Duration
	prefix  string
	log     *zap.Logger
}

type RedisOption func(*RedisLocker)

func WithRetryInterval(d time.Duration) RedisOption { return func(l *RedisLocker) { l.retry = d } }
func WithMaxWait(d time.Duration) RedisOption       { return func(l *RedisLocker) { l.maxWait = d } }
func WithKeyPrefix(p string) RedisOption            { return func(l *RedisLocker) { l.prefix = p } }

func NewRedisLocker(client redis.UniversalClient, ttl time.Duration, log *zap.Logger, opts ...RedisOption) *RedisLocker {
	l := &RedisLocker{
		client:  client,
		ttl:     ttl,
		retry:   50 * time.Millisecond,
		maxWait: 10 * time.Second,
		prefix:  "lock:",
		log:     log,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			l.log.Error("redis lock acquire failed", zap.String("key", redisKey), zap.Error(err))
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrLockTimeout
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return func() {
		// release must not depend on the caller's context being alive
		rctx, rcancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer rcancel()
		if err := releaseScript.Run(rctx, l.client, []string{redisKey}, token).Err(); err != nil {
			l.log.Warn("redis lock release failed", zap.String("key", redisKey), zap.Error(err))
		}
	}, nil
}

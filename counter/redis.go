package counter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the default key holding the counter value.
const DefaultRedisKey = "shardkit:shard_counter"

// DefaultLockTTL bounds how long a crashed holder can block other writers.
const DefaultLockTTL = 10 * time.Second

const (
	minLockBackoff = 2 * time.Millisecond
	maxLockBackoff = 100 * time.Millisecond
)

// unlockScript deletes the lock only if it still carries our token.
var unlockScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisConfig configures a Redis-backed counter.
type RedisConfig struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Key holds the counter value (default: shardkit:shard_counter).
	// The lock lives at Key + ":lock".
	Key string
	// Initial is the value read when Key does not exist.
	Initial int64
	// LockTTL is the lock expiry (default 10s).
	LockTTL time.Duration
}

// Redis is a counter shared by processes on any host.
//
// The lock is a SET NX PX key holding a random token; Unlock deletes it
// only while the token still matches. Goroutines sharing one *Redis are
// serialized by an in-process mutex first.
type Redis struct {
	client  *goredis.Client
	key     string
	lockKey string
	initial int64
	ttl     time.Duration

	mu    sync.Mutex // held between Lock and Unlock
	token string
}

// NewRedis creates a Redis-backed counter from cfg.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis counter requires a URL")
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis counter: invalid URL: %w", err)
	}
	return NewRedisWithClient(goredis.NewClient(opts), cfg), nil
}

// NewRedisWithClient creates a Redis-backed counter on an existing client.
// cfg.URL is ignored.
func NewRedisWithClient(client *goredis.Client, cfg RedisConfig) *Redis {
	if cfg.Key == "" {
		cfg.Key = DefaultRedisKey
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultLockTTL
	}
	return &Redis{
		client:  client,
		key:     cfg.Key,
		lockKey: cfg.Key + ":lock",
		initial: cfg.Initial,
		ttl:     cfg.LockTTL,
	}
}

// Lock implements Value. Contended locks are retried with exponential
// backoff until acquired or ctx is done.
func (r *Redis) Lock(ctx context.Context) error {
	r.mu.Lock()

	token := uuid.NewString()
	backoff := minLockBackoff
	for {
		ok, err := r.client.SetNX(ctx, r.lockKey, token, r.ttl).Result()
		if err != nil {
			r.mu.Unlock()
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %s: %w", ErrLockTimeout, r.lockKey, ctx.Err())
			}
			return fmt.Errorf("redis counter: lock: %w", err)
		}
		if ok {
			r.token = token
			return nil
		}

		select {
		case <-ctx.Done():
			r.mu.Unlock()
			return fmt.Errorf("%w: %s: %w", ErrLockTimeout, r.lockKey, ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxLockBackoff)
	}
}

// Unlock implements Value.
func (r *Redis) Unlock(ctx context.Context) error {
	token := r.token
	if token == "" {
		return errors.New("redis counter: unlock without lock")
	}
	r.token = ""
	defer r.mu.Unlock()

	// Release even if the caller's context is already canceled.
	ctx = context.WithoutCancel(ctx)
	n, err := unlockScript.Run(ctx, r.client, []string{r.lockKey}, token).Int()
	if err != nil {
		return fmt.Errorf("redis counter: unlock: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("redis counter: lock %s expired before unlock", r.lockKey)
	}
	return nil
}

// Get implements Value.
func (r *Redis) Get(ctx context.Context) (int64, error) {
	v, err := r.client.Get(ctx, r.key).Int64()
	if errors.Is(err, goredis.Nil) {
		return r.initial, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis counter: get %s: %w", r.key, err)
	}
	return v, nil
}

// Set implements Value.
func (r *Redis) Set(ctx context.Context, v int64) error {
	if err := r.client.Set(ctx, r.key, v, 0).Err(); err != nil {
		return fmt.Errorf("redis counter: set %s: %w", r.key, err)
	}
	return nil
}

// Close releases the client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Verify Redis implements Value.
var _ Value = (*Redis)(nil)

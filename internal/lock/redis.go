package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisOptions tune the distributed locker.
type RedisOptions struct {
	TTL          time.Duration // lease of a held lock
	Timeout      time.Duration // how long Acquire waits
	PollInterval time.Duration
}

func (o RedisOptions) withDefaults() RedisOptions {
	if o.TTL <= 0 {
		o.TTL = 10 * time.Second
	}
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 25 * time.Millisecond
	}
	return o
}

// Redis is a Locker shared by every process talking to the same redis.
type Redis struct {
	client *redis.Client
	opts   RedisOptions
	logger zerolog.Logger
}

// NewRedis creates a redis-backed locker.
func NewRedis(client *redis.Client, opts RedisOptions, logger *zerolog.Logger) *Redis {
	return &Redis{
		client: client,
		opts:   opts.withDefaults(),
		logger: logger.With().Str("component", "lock").Logger(),
	}
}

// Acquire takes key with SET NX PX, polling until the timeout.
func (r *Redis) Acquire(ctx context.Context, key string) (Releaser, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(r.opts.Timeout)

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.opts.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}

		select {
		case <-time.After(r.opts.PollInterval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release must run even if the request context was cancelled.
			ctxRelease, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := releaseScript.Run(ctxRelease, r.client, []string{key}, token).Err(); err != nil {
				r.logger.Warn().Err(err).Str("key", key).Msg("release lock")
			}
		})
	}, nil
}

package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	errs "github.com/linkpulse/linkpulse-backend/internal/pkg/errors"
	"github.com/linkpulse/linkpulse-backend/internal/pkg/logger"
	"github.com/linkpulse/linkpulse-backend/internal/utils"
)

// SharedCache is the low-latency tier shared across processes. A miss,
// an expired key, and an unreachable server all surface as
// errs.ErrCacheMiss; callers fall through to the next tier.
type SharedCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type sharedCache struct {
	log     *logger.Logger
	rdb     *goredis.Client
	timeout time.Duration
}

func NewSharedCache(log *logger.Logger) (SharedCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(utils.GetEnv("REDIS_ADDR", "localhost:6379", log))
	timeout := utils.GetEnvAsDuration("REDIS_OP_TIMEOUT", 250*time.Millisecond, log)

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &sharedCache{
		log:     log.With("service", "RedisSharedCache"),
		rdb:     rdb,
		timeout: timeout,
	}, nil
}

func (c *sharedCache) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, errs.ErrCacheMiss
	}
	if err != nil {
		c.log.Debug("shared cache get failed, treating as miss", "key", key, "error", err)
		return nil, errs.ErrCacheMiss
	}
	return raw, nil
}

func (c *sharedCache) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("shared cache set %s: %w", key, err)
	}
	return nil
}

func (c *sharedCache) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("shared cache delete %s: %w", key, err)
	}
	return nil
}

func (c *sharedCache) Close() error { return c.rdb.Close() }

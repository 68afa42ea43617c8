package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis shares cached responses between service instances. Keys are the
// prompt digest under a configurable prefix.
type Redis struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedis(client redis.Cmdable, prefix string, ttl time.Duration, log *zap.Logger) *Redis {
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl, log: log}
}

func (c *Redis) key(k Key) string {
	return c.prefix + k.Digest()
}

func (c *Redis) Get(ctx context.Context, key Key) (string, bool) {
	v, err := c.client.Get(ctx, c.key(key)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("redis cache get failed", zap.Error(err))
		}
		return "", false
	}
	return v, true
}

func (c *Redis) Set(ctx context.Context, key Key, value string) {
	if err := c.client.Set(ctx, c.key(key), value, c.ttl).Err(); err != nil {
		c.log.Warn("redis cache set failed", zap.Error(err))
	}
}

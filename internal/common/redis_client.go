package common

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"mdm-platform/feedhub/internal/config"
	"mdm-platform/feedhub/internal/logging"
)

// RedisCmdable is the subset of the go-redis client the cache and the event
// publisher use
type RedisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XLen(ctx context.Context, stream string) *redis.IntCmd
	XRevRangeN(ctx context.Context, stream, start, stop string, count int64) *redis.XMessageSliceCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

var _ RedisCmdable = (*redis.Client)(nil)

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	addr := cfg.Addr()
	log := logging.Component("redis")
	log.Infow("Initializing Redis client", "addr", addr)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		// the pool keeps retrying, callers still get a usable client
		log.Errorw("Failed to ping Redis", "error", err)
		return client
	}

	log.Infow("Successfully connected to Redis")
	return client
}

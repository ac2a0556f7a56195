package common

import "time"

// CacheInterface defines the contract for cache implementations. Values are
// stored as JSON so both backends hand out independent copies.
type CacheInterface interface {
	// Set stores a value in cache with the given key and duration
	Set(key string, value interface{}, duration time.Duration)

	// Get decodes the cached value into dest. Returns false on a miss or
	// when the stored value does not decode into dest.
	Get(key string, dest interface{}) bool

	// Delete removes a value from cache by key
	Delete(key string)

	// Close closes any underlying connections (for Redis, etc.)
	Close() error
}

// NewCache picks the backend named by backend, "memory" or "redis"
func NewCache(backend string, redisClient RedisCmdable, defaultTTL time.Duration) CacheInterface {
	if backend == "redis" && redisClient != nil {
		return NewRedisCacheService(redisClient)
	}
	return NewCacheService(defaultTTL, 10*time.Minute)
}

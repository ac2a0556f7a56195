package common

import (
	"encoding/json"
	"time"

	"github.com/patrickmn/go-cache"

	"mdm-platform/feedhub/internal/logging"
)

// CacheService is the in-process cache used for a single API instance
type CacheService struct {
	cache *cache.Cache
}

// Ensure CacheService implements CacheInterface
var _ CacheInterface = (*CacheService)(nil)

func NewCacheService(defaultExpiration, cleanUpInterval time.Duration) *CacheService {
	return &CacheService{cache: cache.New(defaultExpiration, cleanUpInterval)}
}

func (cs *CacheService) Set(key string, value interface{}, duration time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		logging.Warn("Memory cache: failed to marshal value", "key", key, "error", err)
		return
	}
	cs.cache.Set(key, data, duration)
}

func (cs *CacheService) Get(key string, dest interface{}) bool {
	val, found := cs.cache.Get(key)
	if !found {
		return false
	}
	data, ok := val.([]byte)
	if !ok {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

func (cs *CacheService) Delete(key string) {
	cs.cache.Delete(key)
}

// ItemCount reports how many entries are held, expired ones included until cleanup
func (cs *CacheService) ItemCount() int {
	return cs.cache.ItemCount()
}

// Close closes the cache (no-op for in-memory cache)
func (cs *CacheService) Close() error {
	return nil
}

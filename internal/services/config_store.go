package services

import (
	"context"
	"time"

	"mdm-platform/feedhub/internal/common"
	"mdm-platform/feedhub/internal/constants"
	"mdm-platform/feedhub/internal/db/repositories"
	"mdm-platform/feedhub/internal/ingestion"
	"mdm-platform/feedhub/internal/metrics"
	gormModels "mdm-platform/feedhub/internal/models/gorm"
)

const configCacheTTL = 10 * time.Minute

// CachedConfigStore serves data sources and templates from the cache and
// connections straight from the database, so credential and status changes
// apply to the next run
type CachedConfigStore struct {
	dataSources *repositories.DataSourceRepo
	connections *repositories.ConnectionRepo
	cache       common.CacheInterface
	metrics     *metrics.MetricsRegistry
}

var _ ingestion.ConfigStore = (*CachedConfigStore)(nil)

func NewCachedConfigStore(dataSources *repositories.DataSourceRepo, connections *repositories.ConnectionRepo, cache common.CacheInterface, m *metrics.MetricsRegistry) *CachedConfigStore {
	return &CachedConfigStore{dataSources: dataSources, connections: connections, cache: cache, metrics: m}
}

func (s *CachedConfigStore) GetDataSource(ctx context.Context, id string) (*gormModels.DataSource, error) {
	key := string(constants.CachePrefixDataSource) + id

	var ds gormModels.DataSource
	if s.lookup(key, constants.CachePrefixDataSource, &ds) {
		return &ds, nil
	}

	found, err := s.dataSources.GetByID(ctx, id)
	if err != nil || found == nil {
		return found, err
	}
	s.cache.Set(key, found, configCacheTTL)
	return found, nil
}

func (s *CachedConfigStore) GetTemplate(ctx context.Context, id string) (*gormModels.MappingTemplate, error) {
	key := string(constants.CachePrefixTemplate) + id

	var tpl gormModels.MappingTemplate
	if s.lookup(key, constants.CachePrefixTemplate, &tpl) {
		return &tpl, nil
	}

	found, err := s.dataSources.GetTemplate(ctx, id)
	if err != nil || found == nil {
		return found, err
	}
	s.cache.Set(key, found, configCacheTTL)
	return found, nil
}

func (s *CachedConfigStore) GetConnection(ctx context.Context, id string) (*gormModels.Connection, error) {
	return s.connections.GetByID(ctx, id)
}

// InvalidateDataSource drops the cached copy after a write
func (s *CachedConfigStore) InvalidateDataSource(id string) {
	s.cache.Delete(string(constants.CachePrefixDataSource) + id)
}

func (s *CachedConfigStore) InvalidateTemplate(id string) {
	s.cache.Delete(string(constants.CachePrefixTemplate) + id)
}

func (s *CachedConfigStore) lookup(key string, prefix constants.CachePrefix, dest interface{}) bool {
	hit := s.cache.Get(key, dest)
	if s.metrics != nil {
		if hit {
			s.metrics.CacheHitsTotal.WithLabelValues(string(prefix)).Inc()
		} else {
			s.metrics.CacheMissesTotal.WithLabelValues(string(prefix)).Inc()
		}
	}
	return hit
}

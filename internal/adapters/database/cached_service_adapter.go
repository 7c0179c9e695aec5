package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/serviceportal/internal/domain/entities"
	"github.com/zatekoja/serviceportal/internal/domain/providers"
	"github.com/zatekoja/serviceportal/internal/domain/repositories"
)

// The catalog only changes at bootstrap, so entries can live for a while.
const (
	serviceByIDTTL   = 600
	serviceByNameTTL = 600
	servicesListTTL  = 300
)

const servicesListCacheKey = "services:list"

func serviceCacheKey(id int64) string {
	return fmt.Sprintf("service:id:%d", id)
}

func serviceNameCacheKey(name string) string {
	return "service:name:" + name
}

// CachedServiceAdapter wraps a ServiceRepository with read-through caching
type CachedServiceAdapter struct {
	adapter repositories.ServiceRepository
	cache   providers.CacheProvider
}

// NewCachedServiceAdapter creates a new cached service adapter
func NewCachedServiceAdapter(adapter repositories.ServiceRepository, cache providers.CacheProvider) repositories.ServiceRepository {
	return &CachedServiceAdapter{
		adapter: adapter,
		cache:   cache,
	}
}

// Create inserts through to the database and drops the cached list
func (a *CachedServiceAdapter) Create(ctx context.Context, service *entities.Service) error {
	if err := a.adapter.Create(ctx, service); err != nil {
		return err
	}
	if err := a.cache.Delete(ctx, servicesListCacheKey); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate cached service list")
	}
	return nil
}

// GetByID retrieves a service by ID with caching
func (a *CachedServiceAdapter) GetByID(ctx context.Context, id int64) (*entities.Service, error) {
	key := serviceCacheKey(id)
	var cached entities.Service
	if a.load(ctx, key, &cached) {
		return &cached, nil
	}

	service, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a.store(ctx, key, service, serviceByIDTTL)
	return service, nil
}

// GetByName retrieves a service by name with caching
func (a *CachedServiceAdapter) GetByName(ctx context.Context, name string) (*entities.Service, error) {
	key := serviceNameCacheKey(name)
	var cached entities.Service
	if a.load(ctx, key, &cached) {
		return &cached, nil
	}

	service, err := a.adapter.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	a.store(ctx, key, service, serviceByNameTTL)
	return service, nil
}

// List returns all services with caching
func (a *CachedServiceAdapter) List(ctx context.Context) ([]*entities.Service, error) {
	var cached []*entities.Service
	if a.load(ctx, servicesListCacheKey, &cached) {
		return cached, nil
	}

	services, err := a.adapter.List(ctx)
	if err != nil {
		return nil, err
	}
	a.store(ctx, servicesListCacheKey, services, servicesListTTL)
	return services, nil
}

// Count is not cached; bootstrap relies on it seeing the database directly
func (a *CachedServiceAdapter) Count(ctx context.Context) (int, error) {
	return a.adapter.Count(ctx)
}

func (a *CachedServiceAdapter) load(ctx context.Context, key string, dest interface{}) bool {
	data, err := a.cache.Get(ctx, key)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to unmarshal cached service data")
		return false
	}
	return true
}

func (a *CachedServiceAdapter) store(ctx context.Context, key string, value interface{}, ttl int) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, data, ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to cache service data")
	}
}

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/serviceportal/internal/domain/repositories"
)

// CacheWarmingService keeps the catalog cache populated. It reads through the
// cached service repository so every entry is written with the repository's own
// keys and TTLs.
type CacheWarmingService struct {
	services repositories.ServiceRepository
}

// NewCacheWarmingService creates a new cache warming service
func NewCacheWarmingService(services repositories.ServiceRepository) *CacheWarmingService {
	return &CacheWarmingService{services: services}
}

// WarmCache loads the catalog list and every service by id and by name. It
// returns the number of services warmed.
func (s *CacheWarmingService) WarmCache(ctx context.Context) (int, error) {
	list, err := s.services.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch service list: %w", err)
	}

	warmed := 0
	for _, service := range list {
		if _, err := s.services.GetByID(ctx, service.ID); err != nil {
			log.Warn().Err(err).Int64("service_id", service.ID).Msg("Failed to warm service by id")
			continue
		}
		// Client accounts resolve their queue by name.
		if _, err := s.services.GetByName(ctx, service.Name); err != nil {
			log.Warn().Err(err).Str("service", service.Name).Msg("Failed to warm service by name")
			continue
		}
		warmed++
	}

	log.Debug().Int("services", warmed).Msg("Catalog cache warmed")
	return warmed, nil
}

// StartPeriodicWarming warms once, then again every interval until ctx is done
func (s *CacheWarmingService) StartPeriodicWarming(ctx context.Context, interval time.Duration) {
	if _, err := s.WarmCache(ctx); err != nil {
		log.Warn().Err(err).Msg("Initial cache warming failed")
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("Stopping cache warming service")
				return
			case <-ticker.C:
				if _, err := s.WarmCache(ctx); err != nil {
					log.Warn().Err(err).Msg("Periodic cache warming failed")
				}
			}
		}
	}()
	log.Info().Dur("interval", interval).Msg("Started periodic cache warming")
}

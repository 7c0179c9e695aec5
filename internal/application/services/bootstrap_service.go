package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/serviceportal/internal/domain/entities"
	"github.com/zatekoja/serviceportal/internal/domain/repositories"
	"github.com/zatekoja/serviceportal/internal/infrastructure/migrations"
)

// DefaultCatalog is seeded, in this order, into an empty service table
var DefaultCatalog = []entities.Service{
	{Name: "Plumbing", Description: "Water leaks, pipe repairs, installations"},
	{Name: "Electrical", Description: "Wiring, electrical repairs, installations"},
	{Name: "Carpentry", Description: "Furniture repairs, installations, woodwork"},
	{Name: "Cleaning", Description: "Home cleaning, deep cleaning services"},
	{Name: "Gardening", Description: "Garden maintenance, landscaping"},
	{Name: "Automotive", Description: "Car repair, maintenance, towing"},
	{Name: "Ambulance", Description: "Emergency medical transport"},
	{Name: "Police", Description: "Emergency law enforcement assistance"},
	{Name: "Fire Fighter", Description: "Fire emergency and rescue services"},
}

// BootstrapService brings the database to the current schema and seeds the catalog.
type BootstrapService struct {
	migrator *migrations.Migrator
	services repositories.ServiceRepository
}

// NewBootstrapService creates a new bootstrap service.
func NewBootstrapService(migrator *migrations.Migrator, services repositories.ServiceRepository) *BootstrapService {
	return &BootstrapService{migrator: migrator, services: services}
}

// Run applies pending migrations and seeds the catalog when it is empty. Safe to
// call on every start.
func (s *BootstrapService) Run(ctx context.Context) error {
	applied, err := s.migrator.Apply(ctx)
	if err != nil {
		return err
	}
	if len(applied) > 0 {
		log.Info().Ints("versions", applied).Msg("Database schema updated")
	}

	_, err = s.Seed(ctx)
	return err
}

// Seed inserts DefaultCatalog when the service table is empty and returns the
// number of services created
func (s *BootstrapService) Seed(ctx context.Context) (int, error) {
	n, err := s.services.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	for i := range DefaultCatalog {
		service := DefaultCatalog[i]
		if err := s.services.Create(ctx, &service); err != nil {
			return i, err
		}
	}

	log.Info().Int("services", len(DefaultCatalog)).Msg("Seeded service catalog")
	return len(DefaultCatalog), nil
}

// Reset drops every table and bootstraps from scratch
func (s *BootstrapService) Reset(ctx context.Context) error {
	if err := s.migrator.Reset(ctx); err != nil {
		return err
	}
	log.Warn().Msg("Database reset")
	return s.Run(ctx)
}

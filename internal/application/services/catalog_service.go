package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/zatekoja/serviceportal/internal/domain/entities"
	"github.com/zatekoja/serviceportal/internal/domain/repositories"
	apperrors "github.com/zatekoja/serviceportal/pkg/errors"
)

// CatalogService reads the service catalog.
type CatalogService struct {
	services repositories.ServiceRepository
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(services repositories.ServiceRepository) *CatalogService {
	return &CatalogService{services: services}
}

// List returns every service in catalog order
func (s *CatalogService) List(ctx context.Context) ([]*entities.Service, error) {
	return s.services.List(ctx)
}

// VisibleTo returns the services shown on the home page. A client with a service
// type sees only the matching service (or nothing when the name matches no
// service); everyone else sees the full catalog.
func (s *CatalogService) VisibleTo(ctx context.Context, role, serviceType string) ([]*entities.Service, error) {
	if role != entities.RoleClient || serviceType == "" {
		return s.services.List(ctx)
	}

	service, err := s.services.GetByName(ctx, serviceType)
	if apperrors.Is(err, apperrors.ErrorTypeNotFound) {
		return []*entities.Service{}, nil
	}
	if err != nil {
		return nil, err
	}
	return []*entities.Service{service}, nil
}

// Get returns a service by its id as it appears in a URL or form field
func (s *CatalogService) Get(ctx context.Context, rawID string) (*entities.Service, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("service %q not found", rawID))
	}
	return s.services.GetByID(ctx, id)
}

// Summaries returns the id/name list served as JSON
func (s *CatalogService) Summaries(ctx context.Context) ([]entities.ServiceSummary, error) {
	services, err := s.services.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]entities.ServiceSummary, 0, len(services))
	for _, service := range services {
		out = append(out, service.Summary())
	}
	return out, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

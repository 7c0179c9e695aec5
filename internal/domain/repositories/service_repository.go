package repositories

import (
	"context"

	"github.com/zatekoja/serviceportal/internal/domain/entities"
)

// ServiceRepository defines the interface for service catalog operations
type ServiceRepository interface {
	// Create inserts a service and assigns its ID
	Create(ctx context.Context, service *entities.Service) error

	// GetByID retrieves a service by ID
	GetByID(ctx context.Context, id int64) (*entities.Service, error)

	// GetByName retrieves the first service whose name equals name exactly
	GetByName(ctx context.Context, name string) (*entities.Service, error)

	// List returns all services in insertion order
	List(ctx context.Context) ([]*entities.Service, error)

	// Count returns the number of services
	Count(ctx context.Context) (int, error)
}

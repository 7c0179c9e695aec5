package repositories

import (
	"context"

	"github.com/zatekoja/serviceportal/internal/domain/entities"
)

// ServiceRequestRepository defines the interface for service request operations
type ServiceRequestRepository interface {
	// Create inserts a request and assigns its ID
	Create(ctx context.Context, request *entities.ServiceRequest) error

	// GetByID retrieves a request by ID
	GetByID(ctx context.Context, id int64) (*entities.ServiceRequest, error)

	// ListByService returns the requests for a service, most recent first
	ListByService(ctx context.Context, serviceID int64) ([]*entities.ServiceRequest, error)

	// CountByService returns the number of requests for a service
	CountByService(ctx context.Context, serviceID int64) (int, error)

	// ListAll returns every request ordered by ID
	ListAll(ctx context.Context) ([]*entities.ServiceRequest, error)
}

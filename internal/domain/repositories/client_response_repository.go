package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/serviceportal/internal/domain/entities"
)

// ClientResponseRepository defines the interface for client response operations
type ClientResponseRepository interface {
	// Create inserts a new response row
	Create(ctx context.Context, response *entities.ClientResponse) error

	// Accept marks the client's existing response to the request as accepted, or
	// inserts an accepted response when none exists. Runs in a single transaction.
	Accept(ctx context.Context, requestID, clientID int64, at time.Time) (*entities.ClientResponse, error)

	// ListByRequest returns all responses to a request ordered by ID
	ListByRequest(ctx context.Context, requestID int64) ([]*entities.ClientResponse, error)

	// ListByClient returns all responses written by a client ordered by ID
	ListByClient(ctx context.Context, clientID int64) ([]*entities.ClientResponse, error)
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/zatekoja/serviceportal/internal/domain/entities"
	"github.com/zatekoja/serviceportal/internal/domain/repositories"
	"github.com/zatekoja/serviceportal/internal/infrastructure/clients/sqldb"
	"github.com/zatekoja/serviceportal/internal/infrastructure/migrations"
	apperrors "github.com/zatekoja/serviceportal/pkg/errors"
)

var serviceRequestColumns = []interface{}{
	"id", "service_id", "customer_name", "customer_email", "customer_phone",
	"address", "description", "urgency", "created_at",
}

// ServiceRequestAdapter implements ServiceRequestRepository
type ServiceRequestAdapter struct {
	client *sqldb.Client
}

// NewServiceRequestAdapter creates a new service request adapter
func NewServiceRequestAdapter(client *sqldb.Client) repositories.ServiceRequestRepository {
	return &ServiceRequestAdapter{client: client}
}

// Create inserts a service request
func (a *ServiceRequestAdapter) Create(ctx context.Context, request *entities.ServiceRequest) error {
	if request == nil {
		return apperrors.NewInternalError("service request is nil", fmt.Errorf("service request is nil"))
	}

	ds := a.client.Dialect().Insert(migrations.TableServiceRequest).Rows(goqu.Record{
		"service_id":     request.ServiceID,
		"customer_name":  request.CustomerName,
		"customer_email": request.CustomerEmail,
		"customer_phone": request.CustomerPhone,
		"address":        request.Address,
		"description":    nullString(request.Description),
		"urgency":        nullString(request.Urgency),
		"created_at":     request.CreatedAt,
	})

	id, err := a.client.InsertReturningID(ctx, a.client.DB(), ds)
	if err != nil {
		return apperrors.NewInternalError("failed to create service request", err)
	}
	request.ID = id
	return nil
}

// GetByID retrieves a service request by ID
func (a *ServiceRequestAdapter) GetByID(ctx context.Context, id int64) (*entities.ServiceRequest, error) {
	query, args, err := a.client.Dialect().
		Select(serviceRequestColumns...).
		From(migrations.TableServiceRequest).
		Where(goqu.Ex{"id": id}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	request, err := scanServiceRequest(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("service request %d not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get service request", err)
	}
	return request, nil
}

// ListByService returns requests for a service, newest first
func (a *ServiceRequestAdapter) ListByService(ctx context.Context, serviceID int64) ([]*entities.ServiceRequest, error) {
	ds := a.client.Dialect().
		Select(serviceRequestColumns...).
		From(migrations.TableServiceRequest).
		Where(goqu.Ex{"service_id": serviceID}).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc())
	return a.list(ctx, ds)
}

// CountByService returns the number of requests for a service
func (a *ServiceRequestAdapter) CountByService(ctx context.Context, serviceID int64) (int, error) {
	return count(ctx, a.client, a.client.Dialect().From(migrations.TableServiceRequest).Where(goqu.Ex{"service_id": serviceID}))
}

// ListAll returns every request ordered by ID
func (a *ServiceRequestAdapter) ListAll(ctx context.Context) ([]*entities.ServiceRequest, error) {
	ds := a.client.Dialect().
		Select(serviceRequestColumns...).
		From(migrations.TableServiceRequest).
		Order(goqu.C("id").Asc())
	return a.list(ctx, ds)
}

func (a *ServiceRequestAdapter) list(ctx context.Context, ds *goqu.SelectDataset) ([]*entities.ServiceRequest, error) {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list service requests", err)
	}
	defer rows.Close()

	requests := make([]*entities.ServiceRequest, 0)
	for rows.Next() {
		request, err := scanServiceRequest(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan service request", err)
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to list service requests", err)
	}

	return requests, nil
}

func scanServiceRequest(row rowScanner) (*entities.ServiceRequest, error) {
	request := &entities.ServiceRequest{}
	var description, urgency sql.NullString
	var createdAt sql.NullTime

	err := row.Scan(
		&request.ID,
		&request.ServiceID,
		&request.CustomerName,
		&request.CustomerEmail,
		&request.CustomerPhone,
		&request.Address,
		&description,
		&urgency,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	request.Description = description.String
	request.Urgency = urgency.String
	request.CreatedAt = createdAt.Time
	return request, nil
}

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

var serviceColumns = []interface{}{"id", "name", "description"}

// ServiceAdapter implements ServiceRepository
type ServiceAdapter struct {
	client *sqldb.Client
}

// NewServiceAdapter creates a new service adapter
func NewServiceAdapter(client *sqldb.Client) repositories.ServiceRepository {
	return &ServiceAdapter{client: client}
}

// Create inserts a service
func (a *ServiceAdapter) Create(ctx context.Context, service *entities.Service) error {
	if service == nil {
		return apperrors.NewInternalError("service is nil", fmt.Errorf("service is nil"))
	}

	ds := a.client.Dialect().Insert(migrations.TableService).Rows(goqu.Record{
		"name":        service.Name,
		"description": nullString(service.Description),
	})

	id, err := a.client.InsertReturningID(ctx, a.client.DB(), ds)
	if err != nil {
		return apperrors.NewInternalError("failed to create service", err)
	}
	service.ID = id
	return nil
}

// GetByID retrieves a service by ID
func (a *ServiceAdapter) GetByID(ctx context.Context, id int64) (*entities.Service, error) {
	return a.getOne(ctx, goqu.Ex{"id": id}, fmt.Sprintf("service %d not found", id))
}

// GetByName retrieves the lowest-id service with exactly this name
func (a *ServiceAdapter) GetByName(ctx context.Context, name string) (*entities.Service, error) {
	return a.getOne(ctx, goqu.Ex{"name": name}, fmt.Sprintf("no service named %q", name))
}

func (a *ServiceAdapter) getOne(ctx context.Context, where goqu.Ex, notFound string) (*entities.Service, error) {
	query, args, err := a.client.Dialect().
		Select(serviceColumns...).
		From(migrations.TableService).
		Where(where).
		Order(goqu.C("id").Asc()).
		Limit(1).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	service, err := scanService(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(notFound)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get service", err)
	}
	return service, nil
}

// List returns all services ordered by ID
func (a *ServiceAdapter) List(ctx context.Context) ([]*entities.Service, error) {
	query, args, err := a.client.Dialect().
		Select(serviceColumns...).
		From(migrations.TableService).
		Order(goqu.C("id").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list services", err)
	}
	defer rows.Close()

	services := make([]*entities.Service, 0)
	for rows.Next() {
		service, err := scanService(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan service", err)
		}
		services = append(services, service)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to list services", err)
	}

	return services, nil
}

// Count returns the number of services
func (a *ServiceAdapter) Count(ctx context.Context) (int, error) {
	return count(ctx, a.client, a.client.Dialect().From(migrations.TableService))
}

func scanService(row rowScanner) (*entities.Service, error) {
	service := &entities.Service{}
	var description sql.NullString

	if err := row.Scan(&service.ID, &service.Name, &description); err != nil {
		return nil, err
	}
	service.Description = description.String
	return service, nil
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/zatekoja/serviceportal/internal/domain/entities"
	"github.com/zatekoja/serviceportal/internal/domain/repositories"
	"github.com/zatekoja/serviceportal/internal/infrastructure/clients/sqldb"
	"github.com/zatekoja/serviceportal/internal/infrastructure/migrations"
	apperrors "github.com/zatekoja/serviceportal/pkg/errors"
)

var userColumns = []interface{}{"id", "username", "email", "password_hash", "role", "service_type"}

// UserAdapter implements UserRepository
type UserAdapter struct {
	client *sqldb.Client
}

// NewUserAdapter creates a new user adapter
func NewUserAdapter(client *sqldb.Client) repositories.UserRepository {
	return &UserAdapter{client: client}
}

// Create inserts a user
func (a *UserAdapter) Create(ctx context.Context, user *entities.User) error {
	if user == nil {
		return apperrors.NewInternalError("user is nil", fmt.Errorf("user is nil"))
	}

	role := user.Role
	if role == "" {
		role = entities.RoleUser
	}

	ds := a.client.Dialect().Insert(migrations.TableUser).Rows(goqu.Record{
		"username":      user.Username,
		"email":         user.Email,
		"password_hash": user.PasswordHash,
		"role":          role,
		"service_type":  nullString(user.ServiceType),
	})

	id, err := a.client.InsertReturningID(ctx, a.client.DB(), ds)
	if err != nil {
		return apperrors.NewInternalError("failed to create user", err)
	}
	user.ID = id
	user.Role = role
	return nil
}

// GetByID retrieves a user by ID
func (a *UserAdapter) GetByID(ctx context.Context, id int64) (*entities.User, error) {
	return a.getOne(ctx, goqu.C("id").Eq(id))
}

// FindByUsernameOrEmail retrieves the first user matching either value
func (a *UserAdapter) FindByUsernameOrEmail(ctx context.Context, username, email string) (*entities.User, error) {
	return a.getOne(ctx, goqu.Or(goqu.C("username").Eq(username), goqu.C("email").Eq(email)))
}

func (a *UserAdapter) getOne(ctx context.Context, where exp.Expression) (*entities.User, error) {
	query, args, err := a.client.Dialect().
		Select(userColumns...).
		From(migrations.TableUser).
		Where(where).
		Order(goqu.C("id").Asc()).
		Limit(1).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	user := &entities.User{}
	var serviceType sql.NullString
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&serviceType,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("user not found")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get user", err)
	}

	user.ServiceType = serviceType.String
	return user, nil
}

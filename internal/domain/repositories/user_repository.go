package repositories

import (
	"context"

	"github.com/zatekoja/serviceportal/internal/domain/entities"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// Create creates a new user and assigns its ID
	Create(ctx context.Context, user *entities.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id int64) (*entities.User, error)

	// FindByUsernameOrEmail retrieves the first user whose username equals username
	// or whose email equals email
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*entities.User, error)
}

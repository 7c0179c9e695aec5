package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/serviceportal/internal/domain/entities"
	"github.com/zatekoja/serviceportal/internal/domain/repositories"
	apperrors "github.com/zatekoja/serviceportal/pkg/errors"
	"github.com/zatekoja/serviceportal/pkg/password"
)

// User-facing registration and login messages
const (
	MsgMissingFields      = "Please fill in all required fields"
	MsgUserExists         = "A user with that username or email already exists"
	MsgMissingServiceType = "Please select a service type for client registration"
	MsgInvalidRole        = "Please choose a valid account type"
	MsgInvalidCredentials = "Invalid credentials"
)

// RegisterInput is the registration form
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	Role        string
	ServiceType string
}

// AuthService handles account registration and login.
type AuthService struct {
	users repositories.UserRepository
}

// NewAuthService creates a new auth service.
func NewAuthService(users repositories.UserRepository) *AuthService {
	return &AuthService{users: users}
}

// Register validates the input and creates the account. Role defaults to user;
// clients must name a service type, which is dropped for plain users.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*entities.User, error) {
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, apperrors.NewValidationError(MsgMissingFields)
	}

	role := in.Role
	if role == "" {
		role = entities.RoleUser
	}
	if !entities.ValidRole(role) {
		return nil, apperrors.NewValidationError(MsgInvalidRole)
	}

	exists, err := s.exists(ctx, in.Username, in.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.NewConflictError(MsgUserExists)
	}

	serviceType := ""
	if role == entities.RoleClient {
		serviceType = in.ServiceType
		if serviceType == "" {
			return nil, apperrors.NewValidationError(MsgMissingServiceType)
		}
	}

	hash, err := password.Hash(in.Password)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}

	user := &entities.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		ServiceType:  serviceType,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// lost a race with a concurrent registration for the same name
		if exists, lookupErr := s.exists(ctx, in.Username, in.Email); lookupErr == nil && exists {
			return nil, apperrors.NewConflictError(MsgUserExists)
		}
		return nil, err
	}

	log.Info().Int64("user_id", user.ID).Str("role", user.Role).Msg("Registered user")
	return user, nil
}

// Authenticate looks the account up by username or email and checks the password
func (s *AuthService) Authenticate(ctx context.Context, identifier, plain string) (*entities.User, error) {
	if identifier == "" || plain == "" {
		return nil, apperrors.NewUnauthorizedError(MsgInvalidCredentials)
	}

	user, err := s.users.FindByUsernameOrEmail(ctx, identifier, identifier)
	if apperrors.Is(err, apperrors.ErrorTypeNotFound) {
		return nil, apperrors.NewUnauthorizedError(MsgInvalidCredentials)
	}
	if err != nil {
		return nil, err
	}

	ok, err := password.Verify(user.PasswordHash, plain)
	if errors.Is(err, password.ErrUnsupportedHash) {
		log.Warn().Int64("user_id", user.ID).Msg("Stored password hash has an unsupported format")
		return nil, apperrors.NewUnauthorizedError(MsgInvalidCredentials)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to verify password", err)
	}
	if !ok {
		return nil, apperrors.NewUnauthorizedError(MsgInvalidCredentials)
	}

	return user, nil
}

func (s *AuthService) exists(ctx context.Context, username, email string) (bool, error) {
	_, err := s.users.FindByUsernameOrEmail(ctx, username, email)
	switch {
	case err == nil:
		return true, nil
	case apperrors.Is(err, apperrors.ErrorTypeNotFound):
		return false, nil
	default:
		return false, err
	}
}

package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/serviceportal/internal/adapters/database"
	"github.com/zatekoja/serviceportal/internal/application/services"
	"github.com/zatekoja/serviceportal/internal/domain/entities"
	"github.com/zatekoja/serviceportal/internal/testutil"
	apperrors "github.com/zatekoja/serviceportal/pkg/errors"
	"github.com/zatekoja/serviceportal/pkg/password"
)

// Mocks

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *entities.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*entities.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*entities.User, error) {
	args := m.Called(ctx, username, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

// Tests

func TestAuthService_Register_Validation(t *testing.T) {
	tests := []struct {
		name    string
		input   services.RegisterInput
		errType apperrors.ErrorType
		message string
	}{
		{
			name:    "missing password",
			input:   services.RegisterInput{Username: "a", Email: "a@example.com"},
			errType: apperrors.ErrorTypeValidation,
			message: services.MsgMissingFields,
		},
		{
			name:    "missing username",
			input:   services.RegisterInput{Email: "a@example.com", Password: "pw"},
			errType: apperrors.ErrorTypeValidation,
			message: services.MsgMissingFields,
		},
		{
			name:    "unknown role",
			input:   services.RegisterInput{Username: "a", Email: "a@example.com", Password: "pw", Role: "admin"},
			errType: apperrors.ErrorTypeValidation,
			message: services.MsgInvalidRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockUserRepository)
			svc := services.NewAuthService(repo)

			user, err := svc.Register(context.Background(), tt.input)
			assert.Nil(t, user)
			assert.True(t, apperrors.Is(err, tt.errType))
			assert.Equal(t, tt.message, apperrors.MessageOf(err, ""))
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestAuthService_Register_ClientWithoutServiceType(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("FindByUsernameOrEmail", mock.Anything, "prov", "prov@example.com").
		Return(nil, apperrors.NewNotFoundError("user not found"))
	svc := services.NewAuthService(repo)

	_, err := svc.Register(context.Background(), services.RegisterInput{
		Username: "prov", Email: "prov@example.com", Password: "pw", Role: entities.RoleClient, ServiceType: "",
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))
	assert.Equal(t, services.MsgMissingServiceType, apperrors.MessageOf(err, ""))
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("FindByUsernameOrEmail", mock.Anything, "alice", "new@example.com").
		Return(&entities.User{ID: 1, Username: "alice"}, nil)
	svc := services.NewAuthService(repo)

	_, err := svc.Register(context.Background(), services.RegisterInput{
		Username: "alice", Email: "new@example.com", Password: "pw",
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeConflict))
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_Register_HashesPasswordAndDropsServiceTypeForUsers(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("FindByUsernameOrEmail", mock.Anything, "carol", "carol@example.com").
		Return(nil, apperrors.NewNotFoundError("user not found"))
	repo.On("Create", mock.Anything, mock.MatchedBy(func(u *entities.User) bool {
		ok, _ := password.Verify(u.PasswordHash, "s3cret")
		return ok && u.Role == entities.RoleUser && u.ServiceType == ""
	})).Return(nil)
	svc := services.NewAuthService(repo)

	user, err := svc.Register(context.Background(), services.RegisterInput{
		Username: "carol", Email: "carol@example.com", Password: "s3cret", ServiceType: "Plumbing",
	})
	require.NoError(t, err)
	assert.Equal(t, entities.RoleUser, user.Role)
	repo.AssertExpectations(t)
}

func TestAuthService_Register_LookupFailure(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("FindByUsernameOrEmail", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apperrors.NewInternalError("db down", errors.New("boom")))
	svc := services.NewAuthService(repo)

	_, err := svc.Register(context.Background(), services.RegisterInput{Username: "x", Email: "x@example.com", Password: "pw"})
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeInternal))
}

func TestAuthService_DuplicateRegistrationCreatesNoRow(t *testing.T) {
	ctx := context.Background()
	client := testutil.NewSQLiteClient(t)
	svc := services.NewAuthService(database.NewUserAdapter(client))

	_, err := svc.Register(ctx, services.RegisterInput{Username: "dan", Email: "dan@example.com", Password: "pw"})
	require.NoError(t, err)

	for _, in := range []services.RegisterInput{
		{Username: "dan", Email: "other@example.com", Password: "pw"},
		{Username: "other", Email: "dan@example.com", Password: "pw"},
	} {
		_, err := svc.Register(ctx, in)
		assert.True(t, apperrors.Is(err, apperrors.ErrorTypeConflict))
	}

	var n int
	require.NoError(t, client.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM "user"`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestAuthService_Authenticate(t *testing.T) {
	ctx := context.Background()
	client := testutil.NewSQLiteClient(t)
	svc := services.NewAuthService(database.NewUserAdapter(client))

	registered, err := svc.Register(ctx, services.RegisterInput{
		Username: "erin", Email: "erin@example.com", Password: "pw123", Role: entities.RoleClient, ServiceType: "Police",
	})
	require.NoError(t, err)

	t.Run("by username", func(t *testing.T) {
		user, err := svc.Authenticate(ctx, "erin", "pw123")
		require.NoError(t, err)
		assert.Equal(t, registered.ID, user.ID)
		assert.Equal(t, "Police", user.ServiceType)
	})

	t.Run("by email", func(t *testing.T) {
		user, err := svc.Authenticate(ctx, "erin@example.com", "pw123")
		require.NoError(t, err)
		assert.Equal(t, registered.ID, user.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "erin", "nope")
		assert.True(t, apperrors.Is(err, apperrors.ErrorTypeUnauthorized))
		assert.Equal(t, services.MsgInvalidCredentials, apperrors.MessageOf(err, ""))
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "zed", "pw123")
		assert.True(t, apperrors.Is(err, apperrors.ErrorTypeUnauthorized))
	})
}

func TestAuthService_Authenticate_LegacyHash(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("FindByUsernameOrEmail", mock.Anything, "old", "old").Return(&entities.User{
		ID:           7,
		Username:     "old",
		PasswordHash: "pbkdf2:sha256:1000$abcdefgh$2cdce3437da4f42bdf5ac99866eb977b3f96a373ae2063003abd42c0713638cb",
		Role:         entities.RoleUser,
	}, nil)
	svc := services.NewAuthService(repo)

	user, err := svc.Authenticate(context.Background(), "old", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
}

func TestAuthService_Register_KeepsServiceTypeVerbatim(t *testing.T) {
	ctx := context.Background()
	client := testutil.NewSQLiteClient(t)
	svc := services.NewAuthService(database.NewUserAdapter(client))

	_, err := svc.Register(ctx, services.RegisterInput{
		Username: "gus", Email: "gus@example.com", Password: "pw", Role: entities.RoleClient, ServiceType: " Plumbing ",
	})
	require.NoError(t, err)

	var stored string
	require.NoError(t, client.DB().QueryRowContext(ctx, `SELECT service_type FROM "user" WHERE username = 'gus'`).Scan(&stored))
	assert.Equal(t, " Plumbing ", stored)
}

func TestAuthService_Register_LongPassphrase(t *testing.T) {
	ctx := context.Background()
	client := testutil.NewSQLiteClient(t)
	svc := services.NewAuthService(database.NewUserAdapter(client))

	passphrase := strings.Repeat("a long and memorable passphrase ", 3)
	require.Greater(t, len(passphrase), 72)

	_, err := svc.Register(ctx, services.RegisterInput{Username: "hal", Email: "hal@example.com", Password: passphrase})
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "hal", passphrase)
	require.NoError(t, err)
	assert.Equal(t, "hal", user.Username)
}

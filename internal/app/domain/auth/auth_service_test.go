package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/wrath-m/boilerplate-express/internal/app/models"
)

// --- Mock Repo ---

type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) GetUserByEmail(ctx context.Context, email string) (*models.UserAuth, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserAuth), args.Error(1)
}

func (m *MockRepo) GetUserByID(ctx context.Context, userID string) (*models.UserAuth, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserAuth), args.Error(1)
}

func (m *MockRepo) CreateUser(ctx context.Context, email, hashedPassword string) (string, error) {
	args := m.Called(ctx, email, hashedPassword)
	return args.String(0), args.Error(1)
}

func (m *MockRepo) UpdatePassword(ctx context.Context, userID, newHashedPassword string) error {
	args := m.Called(ctx, userID, newHashedPassword)
	return args.Error(0)
}

func (m *MockRepo) UpdateProfile(ctx context.Context, userID string, profile models.User) error {
	args := m.Called(ctx, userID, profile)
	return args.Error(0)
}

func (m *MockRepo) DeleteUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockRepo) CreateUserProvider(ctx context.Context, userID, provider, providerUserID string) error {
	args := m.Called(ctx, userID, provider, providerUserID)
	return args.Error(0)
}

func (m *MockRepo) GetUserIDByProvider(ctx context.Context, provider, providerUserID string) (string, error) {
	args := m.Called(ctx, provider, providerUserID)
	return args.String(0), args.Error(1)
}

func (m *MockRepo) DeleteUserProvider(ctx context.Context, userID, provider string) error {
	args := m.Called(ctx, userID, provider)
	return args.Error(0)
}

func (m *MockRepo) UpsertProviderToken(ctx context.Context, token models.ProviderToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockRepo) GetProviderToken(ctx context.Context, userID, provider string) (*models.ProviderToken, error) {
	args := m.Called(ctx, userID, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProviderToken), args.Error(1)
}

func (m *MockRepo) DeleteProviderToken(ctx context.Context, userID, provider string) error {
	args := m.Called(ctx, userID, provider)
	return args.Error(0)
}

var _ Repo = (*MockRepo)(nil)

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func isBcryptHashOf(password string) func(string) bool {
	return func(hash string) bool {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials return the principal", func(t *testing.T) {
		repo := new(MockRepo)
		svc := NewService(repo, "secret", zap.NewNop())
		repo.On("GetUserByEmail", mock.Anything, "test@example.com").Return(&models.UserAuth{
			User:         models.User{ID: "u1", Email: "test@example.com"},
			PasswordHash: hashOf(t, "correct horse"),
		}, nil)

		user, err := svc.Login(ctx, "test@example.com", "correct horse")

		require.NoError(t, err)
		assert.Equal(t, "u1", user.ID)
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		repo := new(MockRepo)
		svc := NewService(repo, "secret", zap.NewNop())
		repo.On("GetUserByEmail", mock.Anything, "test@example.com").Return(&models.UserAuth{
			User:         models.User{ID: "u1", Email: "test@example.com"},
			PasswordHash: hashOf(t, "correct horse"),
		}, nil)

		user, err := svc.Login(ctx, "test@example.com", "battery staple")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, models.ErrUnauthenticated)
	})

	t.Run("unknown email is rejected without detail", func(t *testing.T) {
		repo := new(MockRepo)
		svc := NewService(repo, "secret", zap.NewNop())
		repo.On("GetUserByEmail", mock.Anything, "nobody@example.com").Return(nil, models.ErrNotFound)

		user, err := svc.Login(ctx, "nobody@example.com", "whatever")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, models.ErrUnauthenticated)
		assert.NotContains(t, err.Error(), "not found")
	})

	t.Run("passwordless oauth account cannot log in locally", func(t *testing.T) {
		repo := new(MockRepo)
		svc := NewService(repo, "secret", zap.NewNop())
		repo.On("GetUserByEmail", mock.Anything, "oauth@example.com").Return(&models.UserAuth{
			User: models.User{ID: "u2", Email: "oauth@example.com"},
		}, nil)

		user, err := svc.Login(ctx, "oauth@example.com", "anything")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, models.ErrUnauthenticated)
	})
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("stores a bcrypt hash, never the raw password", func(t *testing.T) {
		repo := new(MockRepo)
		svc := NewService(repo, "secret", zap.NewNop())
		repo.On("CreateUser", mock.Anything, "new@example.com",
			mock.MatchedBy(isBcryptHashOf("hunter22hunter22"))).Return("u3", nil)
		repo.On("GetUserByID", mock.Anything, "u3").Return(&models.UserAuth{
			User: models.User{ID: "u3", Email: "new@example.com"},
		}, nil)

		user, err := svc.Register(ctx, "new@example.com", "hunter22hunter22")

		require.NoError(t, err)
		assert.Equal(t, "u3", user.ID)
		repo.AssertExpectations(t)
	})

	t.Run("duplicate email conflict propagates", func(t *testing.T) {
		repo := new(MockRepo)
		svc := NewService(repo, "secret", zap.NewNop())
		repo.On("CreateUser", mock.Anything, "dup@example.com", mock.AnythingOfType("string")).
			Return("", models.ErrConflict)

		user, err := svc.Register(ctx, "dup@example.com", "hunter22hunter22")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, models.ErrConflict)
	})
}

func TestUpdatePassword(t *testing.T) {
	repo := new(MockRepo)
	svc := NewService(repo, "secret", zap.NewNop())
	repo.On("UpdatePassword", mock.Anything, "u1",
		mock.MatchedBy(isBcryptHashOf("new password!"))).Return(nil)

	err := svc.UpdatePassword(context.Background(), "u1", "new password!")

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestPasswordResetFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("issued token verifies back to the user id", func(t *testing.T) {
		repo := new(MockRepo)
		svc := NewService(repo, "secret", zap.NewNop())
		repo.On("GetUserByEmail", mock.Anything, "test@example.com").Return(&models.UserAuth{
			User: models.User{ID: "u1", Email: "test@example.com"},
		}, nil)

		token, err := svc.RequestPasswordReset(ctx, "test@example.com")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		userID, err := svc.VerifyResetToken(token)
		require.NoError(t, err)
		assert.Equal(t, "u1", userID)
	})

	t.Run("unknown email yields not found", func(t *testing.T) {
		repo := new(MockRepo)
		svc := NewService(repo, "secret", zap.NewNop())
		repo.On("GetUserByEmail", mock.Anything, "nobody@example.com").Return(nil, models.ErrNotFound)

		token, err := svc.RequestPasswordReset(ctx, "nobody@example.com")

		assert.Empty(t, token)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		token, err := issueResetToken("secret", "u1", -time.Minute)
		require.NoError(t, err)

		_, err = verifyResetToken("secret", token)
		assert.ErrorIs(t, err, models.ErrTokenExpired)
	})

	t.Run("token signed with another secret is rejected", func(t *testing.T) {
		token, err := issueResetToken("other-secret", "u1", time.Hour)
		require.NoError(t, err)

		_, err = verifyResetToken("secret", token)
		assert.ErrorIs(t, err, models.ErrTokenExpired)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		_, err := verifyResetToken("secret", "not.a.token")
		assert.ErrorIs(t, err, models.ErrTokenExpired)
	})

	t.Run("reset consumes the token and stores the new hash", func(t *testing.T) {
		repo := new(MockRepo)
		svc := NewService(repo, "secret", zap.NewNop())
		token, err := issueResetToken("secret", "u1", time.Hour)
		require.NoError(t, err)

		repo.On("UpdatePassword", mock.Anything, "u1",
			mock.MatchedBy(isBcryptHashOf("brand new pass"))).Return(nil)
		repo.On("GetUserByID", mock.Anything, "u1").Return(&models.UserAuth{
			User: models.User{ID: "u1", Email: "test@example.com"},
		}, nil)

		user, err := svc.ResetPassword(ctx, token, "brand new pass")

		require.NoError(t, err)
		assert.Equal(t, "u1", user.ID)
		repo.AssertExpectations(t)
	})

	t.Run("reset with an invalid token touches nothing", func(t *testing.T) {
		repo := new(MockRepo)
		svc := NewService(repo, "secret", zap.NewNop())

		user, err := svc.ResetPassword(ctx, "bogus", "brand new pass")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, models.ErrTokenExpired)
		repo.AssertNotCalled(t, "UpdatePassword")
	})
}

package auth

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/wrath-m/boilerplate-express/internal/app/models"
)

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service defines the authentication business logic contract.
type Service interface {
	Login(ctx context.Context, email, password string) (*models.User, error)
	Register(ctx context.Context, email, password string) (*models.User, error)
	GetUserByID(ctx context.Context, userID string) (*models.User, error)

	// UpdatePassword hashes and stores a new password for the user.
	UpdatePassword(ctx context.Context, userID, newPassword string) error

	// Password reset flow: request issues a signed single-purpose token,
	// reset consumes it.
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	VerifyResetToken(token string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) (*models.User, error)
}

// ServiceImpl provides the implementation for Service.
type ServiceImpl struct {
	logger      *zap.Logger
	repo        Repo
	resetSecret string
	resetTTL    time.Duration
}

// NewService creates a new authentication service instance. The secret signs
// password reset tokens.
func NewService(repo Repo, secret string, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:      logger,
		repo:        repo,
		resetSecret: secret,
		resetTTL:    time.Hour,
	}
}

// Login validates credentials and returns the principal.
func (s *ServiceImpl) Login(ctx context.Context, email, password string) (*models.User, error) {
	ctx, span := otel.Tracer("auth").Start(ctx, "Service.Login")
	defer span.End()
	l := s.logger.With(zap.String("method", "Login"), zap.String("email", email))

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		l.Warn("GetUserByEmail failed")
		// Don't reveal if user exists or password is wrong
		return nil, fmt.Errorf("invalid credentials: %w", models.ErrUnauthenticated)
	}

	if user.PasswordHash == "" {
		// OAuth-only account, no local password set
		l.Warn("Login attempt against passwordless account", zap.String("userID", user.ID))
		return nil, fmt.Errorf("invalid credentials: %w", models.ErrUnauthenticated)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		l.Warn("Password comparison failed", zap.String("userID", user.ID))
		span.SetStatus(codes.Error, "invalid credentials")
		return nil, fmt.Errorf("invalid credentials: %w", models.ErrUnauthenticated)
	}

	span.SetAttributes(attribute.String("user.id", user.ID))
	return &user.User, nil
}

// Register creates a user with a hashed password and returns the principal.
func (s *ServiceImpl) Register(ctx context.Context, email, password string) (*models.User, error) {
	ctx, span := otel.Tracer("auth").Start(ctx, "Service.Register")
	defer span.End()
	l := s.logger.With(zap.String("method", "Register"), zap.String("email", email))

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		l.Error("Failed to hash password", zap.Error(err))
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	id, err := s.repo.CreateUser(ctx, email, string(hash))
	if err != nil {
		l.Warn("CreateUser failed", zap.Error(err))
		return nil, err
	}

	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("user.id", id))
	return &user.User, nil
}

// GetUserByID resolves a stored principal id. Satisfies the principal loader
// contract used by the session middleware.
func (s *ServiceImpl) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &user.User, nil
}

// UpdatePassword hashes and stores a new password for the user.
func (s *ServiceImpl) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.repo.UpdatePassword(ctx, userID, string(hash))
}

// RequestPasswordReset issues a reset token for the account, if it exists.
func (s *ServiceImpl) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("no account with that email: %w", models.ErrNotFound)
	}

	token, err := issueResetToken(s.resetSecret, user.ID, s.resetTTL)
	if err != nil {
		s.logger.Error("Failed to issue reset token", zap.Error(err), zap.String("userID", user.ID))
		return "", fmt.Errorf("failed to issue reset token: %w", err)
	}
	return token, nil
}

// VerifyResetToken checks signature, purpose and expiry, returning the user id.
func (s *ServiceImpl) VerifyResetToken(token string) (string, error) {
	return verifyResetToken(s.resetSecret, token)
}

// ResetPassword consumes a reset token and stores the new password hash.
func (s *ServiceImpl) ResetPassword(ctx context.Context, token, newPassword string) (*models.User, error) {
	userID, err := verifyResetToken(s.resetSecret, token)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Password reset completed", zap.String("userID", userID))
	return &user.User, nil
}

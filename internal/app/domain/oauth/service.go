package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/wrath-m/boilerplate-express/internal/app/domain/auth"
	"github.com/wrath-m/boilerplate-express/internal/app/middleware"
	"github.com/wrath-m/boilerplate-express/internal/app/models"
)

var _ middleware.TokenChecker = (*Service)(nil)

// Service turns completed provider flows into users, identity links and
// stored tokens.
type Service struct {
	repo   auth.Repo
	logger *zap.Logger
}

func NewService(repo auth.Repo, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// HasValidToken reports whether the user holds an unexpired access token for
// the provider. Satisfies the authorization gate contract.
func (s *Service) HasValidToken(ctx context.Context, userID, provider string) bool {
	token, err := s.repo.GetProviderToken(ctx, userID, provider)
	if err != nil {
		return false
	}
	return !token.Expired(time.Now())
}

// Token returns the stored access token for API calls.
func (s *Service) Token(ctx context.Context, userID, provider string) (*models.ProviderToken, error) {
	return s.repo.GetProviderToken(ctx, userID, provider)
}

// SignIn resolves a provider identity to a local user, creating one when the
// identity is unknown. Known email addresses are linked rather than
// duplicated.
func (s *Service) SignIn(ctx context.Context, provider string, identity *Identity, token models.ProviderToken) (*models.User, error) {
	l := s.logger.With(zap.String("provider", provider), zap.String("providerUserID", identity.ID))

	userID, err := s.repo.GetUserIDByProvider(ctx, provider, identity.ID)
	switch {
	case err == nil:
		// Known identity
	case errors.Is(err, models.ErrNotFound):
		userID, err = s.findOrCreateUser(ctx, provider, identity)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	token.UserID = userID
	token.Provider = provider
	if err := s.repo.UpsertProviderToken(ctx, token); err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	l.Info("Provider sign-in completed", zap.String("userID", userID))
	return &user.User, nil
}

func (s *Service) findOrCreateUser(ctx context.Context, provider string, identity *Identity) (string, error) {
	if identity.Email != "" {
		if existing, err := s.repo.GetUserByEmail(ctx, identity.Email); err == nil {
			if err := s.repo.CreateUserProvider(ctx, existing.ID, provider, identity.ID); err != nil {
				return "", err
			}
			return existing.ID, nil
		}
	}

	email := identity.Email
	if email == "" {
		// Providers like Instagram and Twitter may not disclose an email.
		email = fmt.Sprintf("%s-%s@users.noreply.invalid", provider, identity.ID)
	}

	userID, err := s.repo.CreateUser(ctx, email, "")
	if err != nil {
		return "", err
	}
	if identity.Name != "" {
		user, gerr := s.repo.GetUserByID(ctx, userID)
		if gerr == nil {
			user.Name = identity.Name
			_ = s.repo.UpdateProfile(ctx, userID, user.User)
		}
	}
	if err := s.repo.CreateUserProvider(ctx, userID, provider, identity.ID); err != nil {
		return "", err
	}
	return userID, nil
}

// Link attaches a provider identity and token to an existing principal.
func (s *Service) Link(ctx context.Context, userID, provider, providerUserID string, token models.ProviderToken) error {
	if providerUserID != "" {
		if err := s.repo.CreateUserProvider(ctx, userID, provider, providerUserID); err != nil {
			return err
		}
	}
	token.UserID = userID
	token.Provider = provider
	return s.repo.UpsertProviderToken(ctx, token)
}

// tokenFromOAuth2 converts the library token into the stored shape.
func tokenFromOAuth2(t *oauth2.Token) models.ProviderToken {
	token := models.ProviderToken{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
	}
	if !t.Expiry.IsZero() {
		expiry := t.Expiry
		token.ExpiresAt = &expiry
	}
	return token
}

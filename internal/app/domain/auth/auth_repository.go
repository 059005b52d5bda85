package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/wrath-m/boilerplate-express/internal/app/models"
)

var _ Repo = (*PostgresRepo)(nil)

// Repo is the persistence contract shared by the auth, oauth and account
// domains: users, provider identities, and provider access tokens.
type Repo interface {
	// GetUserByEmail fetches user details needed for credential validation.
	GetUserByEmail(ctx context.Context, email string) (*models.UserAuth, error)
	// GetUserByID fetches user details by ID.
	GetUserByID(ctx context.Context, userID string) (*models.UserAuth, error)
	// CreateUser stores a new user with a HASHED password. Returns new user ID.
	CreateUser(ctx context.Context, email, hashedPassword string) (string, error)
	// UpdatePassword updates the user's HASHED password.
	UpdatePassword(ctx context.Context, userID, newHashedPassword string) error
	// UpdateProfile updates the mutable profile fields.
	UpdateProfile(ctx context.Context, userID string, profile models.User) error
	// DeleteUser removes the user and, via cascade, their identities and tokens.
	DeleteUser(ctx context.Context, userID string) error

	// Provider identity linking.
	CreateUserProvider(ctx context.Context, userID, provider, providerUserID string) error
	GetUserIDByProvider(ctx context.Context, provider, providerUserID string) (string, error)
	DeleteUserProvider(ctx context.Context, userID, provider string) error

	// Provider access tokens.
	UpsertProviderToken(ctx context.Context, token models.ProviderToken) error
	GetProviderToken(ctx context.Context, userID, provider string) (*models.ProviderToken, error)
	DeleteProviderToken(ctx context.Context, userID, provider string) error
}

type PostgresRepo struct {
	logger *zap.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresRepo(pool *pgxpool.Pool, logger *zap.Logger) *PostgresRepo {
	return &PostgresRepo{
		logger: logger,
		pgpool: pool,
	}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const userColumns = "id, email, password_hash, name, gender, location, website, picture, created_at"

func scanUserAuth(row pgx.Row) (*models.UserAuth, error) {
	var u models.UserAuth
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Gender,
		&u.Location, &u.Website, &u.Picture, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PostgresRepo) GetUserByEmail(ctx context.Context, email string) (*models.UserAuth, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUserAuth(r.pgpool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user with email %s not found: %w", email, models.ErrNotFound)
		}
		r.logger.Error("Error fetching user by email", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("database error fetching user: %w", err)
	}
	return user, nil
}

func (r *PostgresRepo) GetUserByID(ctx context.Context, userID string) (*models.UserAuth, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUserAuth(r.pgpool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s not found: %w", userID, models.ErrNotFound)
		}
		r.logger.Error("Error fetching user by id", zap.Error(err), zap.String("userID", userID))
		return nil, fmt.Errorf("database error fetching user: %w", err)
	}
	return user, nil
}

func (r *PostgresRepo) CreateUser(ctx context.Context, email, hashedPassword string) (string, error) {
	var id string
	query := `INSERT INTO users (email, password_hash) VALUES ($1, $2) RETURNING id`
	err := r.pgpool.QueryRow(ctx, query, email, hashedPassword).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return "", fmt.Errorf("email %s already registered: %w", email, models.ErrConflict)
		}
		r.logger.Error("Error creating user", zap.Error(err), zap.String("email", email))
		return "", fmt.Errorf("database error creating user: %w", err)
	}
	return id, nil
}

func (r *PostgresRepo) UpdatePassword(ctx context.Context, userID, newHashedPassword string) error {
	tag, err := r.pgpool.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`,
		newHashedPassword, userID)
	if err != nil {
		r.logger.Error("Error updating password", zap.Error(err), zap.String("userID", userID))
		return fmt.Errorf("database error updating password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found: %w", userID, models.ErrNotFound)
	}
	return nil
}

func (r *PostgresRepo) UpdateProfile(ctx context.Context, userID string, profile models.User) error {
	query, args, err := psql.Update("users").
		Set("email", profile.Email).
		Set("name", profile.Name).
		Set("gender", profile.Gender).
		Set("location", profile.Location).
		Set("website", profile.Website).
		Set("picture", profile.Picture).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed building profile update: %w", err)
	}

	tag, err := r.pgpool.Exec(ctx, query, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("email %s already taken: %w", profile.Email, models.ErrConflict)
		}
		r.logger.Error("Error updating profile", zap.Error(err), zap.String("userID", userID))
		return fmt.Errorf("database error updating profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found: %w", userID, models.ErrNotFound)
	}
	return nil
}

func (r *PostgresRepo) DeleteUser(ctx context.Context, userID string) error {
	tag, err := r.pgpool.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		r.logger.Error("Error deleting user", zap.Error(err), zap.String("userID", userID))
		return fmt.Errorf("database error deleting user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found: %w", userID, models.ErrNotFound)
	}
	return nil
}

func (r *PostgresRepo) CreateUserProvider(ctx context.Context, userID, provider, providerUserID string) error {
	query := `
		INSERT INTO user_providers (user_id, provider, provider_user_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, provider) DO UPDATE SET provider_user_id = EXCLUDED.provider_user_id`
	_, err := r.pgpool.Exec(ctx, query, userID, provider, providerUserID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%s account already linked elsewhere: %w", provider, models.ErrConflict)
		}
		r.logger.Error("Error linking provider", zap.Error(err),
			zap.String("userID", userID), zap.String("provider", provider))
		return fmt.Errorf("database error linking provider: %w", err)
	}
	return nil
}

func (r *PostgresRepo) GetUserIDByProvider(ctx context.Context, provider, providerUserID string) (string, error) {
	var userID string
	query := `SELECT user_id FROM user_providers WHERE provider = $1 AND provider_user_id = $2`
	err := r.pgpool.QueryRow(ctx, query, provider, providerUserID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("no user for %s identity: %w", provider, models.ErrNotFound)
		}
		return "", fmt.Errorf("database error resolving provider identity: %w", err)
	}
	return userID, nil
}

func (r *PostgresRepo) DeleteUserProvider(ctx context.Context, userID, provider string) error {
	_, err := r.pgpool.Exec(ctx,
		`DELETE FROM user_providers WHERE user_id = $1 AND provider = $2`, userID, provider)
	if err != nil {
		return fmt.Errorf("database error unlinking provider: %w", err)
	}
	return nil
}

func (r *PostgresRepo) UpsertProviderToken(ctx context.Context, token models.ProviderToken) error {
	query := `
		INSERT INTO provider_tokens (user_id, provider, access_token, refresh_token, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, provider) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    refresh_token = EXCLUDED.refresh_token,
		    expires_at = EXCLUDED.expires_at,
		    updated_at = now()`
	_, err := r.pgpool.Exec(ctx, query,
		token.UserID, token.Provider, token.AccessToken, token.RefreshToken, token.ExpiresAt)
	if err != nil {
		r.logger.Error("Error storing provider token", zap.Error(err),
			zap.String("userID", token.UserID), zap.String("provider", token.Provider))
		return fmt.Errorf("database error storing provider token: %w", err)
	}
	return nil
}

func (r *PostgresRepo) GetProviderToken(ctx context.Context, userID, provider string) (*models.ProviderToken, error) {
	t := models.ProviderToken{UserID: userID, Provider: provider}
	var expiresAt *time.Time
	query := `SELECT access_token, refresh_token, expires_at FROM provider_tokens WHERE user_id = $1 AND provider = $2`
	err := r.pgpool.QueryRow(ctx, query, userID, provider).Scan(&t.AccessToken, &t.RefreshToken, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no %s token for user %s: %w", provider, userID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("database error fetching provider token: %w", err)
	}
	t.ExpiresAt = expiresAt
	return &t, nil
}

func (r *PostgresRepo) DeleteProviderToken(ctx context.Context, userID, provider string) error {
	_, err := r.pgpool.Exec(ctx,
		`DELETE FROM provider_tokens WHERE user_id = $1 AND provider = $2`, userID, provider)
	if err != nil {
		return fmt.Errorf("database error deleting provider token: %w", err)
	}
	return nil
}

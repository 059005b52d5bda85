// Package session provides a Postgres-backed store for gin-contrib/sessions.
// Session payloads live in the sessions table; the cookie only carries the
// securecookie-signed session id.
package session

import (
	"context"
	"encoding/gob"
	"fmt"
	"net/http"
	"time"

	ginsessions "github.com/gin-contrib/sessions"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	gsessions "github.com/gorilla/sessions"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/wrath-m/boilerplate-express/internal/app/models"
)

func init() {
	// Flash messages ride gorilla's flash mechanism and are gob-encoded.
	gob.Register(models.Flash{})
}

// defaultMaxAge is applied when the cookie is a browser-session cookie
// (MaxAge 0); the server-side row still needs a bounded lifetime.
const defaultMaxAge = 14 * 24 * time.Hour

var _ ginsessions.Store = (*Store)(nil)

// Store persists sessions in Postgres and satisfies the gin-contrib/sessions
// Store contract.
type Store struct {
	pool   *pgxpool.Pool
	codecs []securecookie.Codec
	opts   *gsessions.Options
	logger *zap.Logger

	stopCleanup chan struct{}
}

// NewStore creates a Store signing cookies with the given key pairs.
func NewStore(pool *pgxpool.Pool, logger *zap.Logger, keyPairs ...[]byte) *Store {
	return &Store{
		pool:   pool,
		codecs: securecookie.CodecsFromPairs(keyPairs...),
		opts: &gsessions.Options{
			Path:     "/",
			MaxAge:   int(defaultMaxAge / time.Second),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
		logger: logger,
	}
}

// Get returns a cached session from the request registry, loading it on first
// use.
func (s *Store) Get(r *http.Request, name string) (*gsessions.Session, error) {
	return gsessions.GetRegistry(r).Get(s, name)
}

// New loads the session identified by the request cookie, or returns a fresh
// one when the cookie is absent, tampered with, or the row is gone.
func (s *Store) New(r *http.Request, name string) (*gsessions.Session, error) {
	session := gsessions.NewSession(s, name)
	opts := *s.opts
	session.Options = &opts
	session.IsNew = true

	cookie, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}

	var id string
	if err := securecookie.DecodeMulti(name, cookie.Value, &id, s.codecs...); err != nil {
		return session, nil
	}
	session.ID = id

	if err := s.load(r.Context(), session); err != nil {
		session.ID = ""
		return session, nil
	}
	session.IsNew = false
	return session, nil
}

// Save writes the session row and cookie. A negative MaxAge destroys both.
func (s *Store) Save(r *http.Request, w http.ResponseWriter, session *gsessions.Session) error {
	if session.Options.MaxAge < 0 {
		if session.ID != "" {
			if err := s.destroy(r.Context(), session.ID); err != nil {
				return err
			}
		}
		http.SetCookie(w, gsessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if err := s.save(r.Context(), session); err != nil {
		return err
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.codecs...)
	if err != nil {
		return fmt.Errorf("failed to encode session cookie: %w", err)
	}
	http.SetCookie(w, gsessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

// Options applies gin-level cookie options to sessions created afterwards.
func (s *Store) Options(opts ginsessions.Options) {
	s.opts = opts.ToGorillaOptions()
}

func (s *Store) load(ctx context.Context, session *gsessions.Session) error {
	var data []byte
	var expiresAt time.Time
	query := `SELECT data, expires_at FROM sessions WHERE id = $1`
	err := s.pool.QueryRow(ctx, query, session.ID).Scan(&data, &expiresAt)
	if err != nil {
		return fmt.Errorf("session %s not found: %w", session.ID, err)
	}
	if expiresAt.Before(time.Now()) {
		return fmt.Errorf("session %s expired: %w", session.ID, models.ErrTokenExpired)
	}

	return securecookie.DecodeMulti(session.Name(), string(data), &session.Values, s.codecs...)
}

func (s *Store) save(ctx context.Context, session *gsessions.Session) error {
	encoded, err := securecookie.EncodeMulti(session.Name(), session.Values, s.codecs...)
	if err != nil {
		return fmt.Errorf("failed to encode session data: %w", err)
	}

	maxAge := time.Duration(session.Options.MaxAge) * time.Second
	if maxAge <= 0 {
		maxAge = defaultMaxAge
	}
	expiresAt := time.Now().Add(maxAge)

	query := `
		INSERT INTO sessions (id, data, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at, updated_at = now()`
	_, err = s.pool.Exec(ctx, query, session.ID, []byte(encoded), expiresAt)
	if err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

func (s *Store) destroy(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// StartCleanup periodically deletes expired session rows until StopCleanup is
// called.
func (s *Store) StartCleanup(interval time.Duration) {
	if s.stopCleanup != nil {
		return
	}
	s.stopCleanup = make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				tag, err := s.pool.Exec(context.Background(), `DELETE FROM sessions WHERE expires_at < now()`)
				if err != nil {
					s.logger.Warn("Session cleanup failed", zap.Error(err))
					continue
				}
				if tag.RowsAffected() > 0 {
					s.logger.Debug("Expired sessions removed", zap.Int64("count", tag.RowsAffected()))
				}
			case <-s.stopCleanup:
				return
			}
		}
	}()
}

// StopCleanup stops the cleanup goroutine.
func (s *Store) StopCleanup() {
	if s.stopCleanup != nil {
		close(s.stopCleanup)
		s.stopCleanup = nil
	}
}

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	appsession "github.com/wrath-m/boilerplate-express/internal/app/session"
	database "github.com/wrath-m/boilerplate-express/internal/db"
	"github.com/wrath-m/boilerplate-express/internal/pkg/config"
)

// Server holds the dependencies for the HTTP server
type Server struct {
	cfg          *config.Config
	logger       *zap.Logger
	dbPool       *pgxpool.Pool
	router       http.Handler
	sessionStore *appsession.Store
}

// New creates a new Server instance with all dependencies
func New(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logger,
	}

	ctx := context.Background()
	dbPool, err := s.setupDatabase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}
	s.dbPool = dbPool

	return s, nil
}

// setupDatabase initializes the connection pool, performs the single startup
// connectivity check and runs migrations. A failed check is fatal upstream;
// there is no retry.
func (s *Server) setupDatabase(ctx context.Context) (*pgxpool.Pool, error) {
	s.logger.Info("Setting up database connection and migrations")

	connURL := s.cfg.ConnectionURL()
	pool, err := database.Init(connURL, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database pool: %w", err)
	}

	if err := database.Ping(ctx, pool, s.logger); err != nil {
		pool.Close()
		return nil, err
	}

	if err := database.RunMigrations(connURL, s.logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	s.logger.Info("Database setup completed successfully")
	return pool, nil
}

// HTTPServer creates and configures the HTTP server
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr(),
		Handler:      s.router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// SetRouter sets the HTTP router/handler
func (s *Server) SetRouter(router http.Handler) {
	s.router = router
}

// SetSessionStore hands the session store over for lifecycle management.
func (s *Server) SetSessionStore(store *appsession.Store) {
	s.sessionStore = store
}

// GetDBPool returns the database connection pool
func (s *Server) GetDBPool() *pgxpool.Pool {
	return s.dbPool
}

// Close closes all server resources
func (s *Server) Close() {
	if s.sessionStore != nil {
		s.sessionStore.StopCleanup()
	}
	if s.dbPool != nil {
		s.dbPool.Close()
	}
}

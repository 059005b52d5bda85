package server

import (
	"html/template"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wrath-m/boilerplate-express/internal/app/domain/account"
	"github.com/wrath-m/boilerplate-express/internal/app/domain/apidemo"
	"github.com/wrath-m/boilerplate-express/internal/app/domain/auth"
	"github.com/wrath-m/boilerplate-express/internal/app/domain/oauth"
	appmiddleware "github.com/wrath-m/boilerplate-express/internal/app/middleware"
	appsession "github.com/wrath-m/boilerplate-express/internal/app/session"
	"github.com/wrath-m/boilerplate-express/internal/pkg/config"
	"github.com/wrath-m/boilerplate-express/internal/routes"
	"github.com/wrath-m/boilerplate-express/web"
)

const serviceName = "boilerplate-express"

// SetupRouter configures and returns the Gin router with all middleware and
// routes, plus the session store so the caller can stop its cleanup loop on
// shutdown. The middleware order is the contract: logging, tracing,
// compression, security headers, metrics, session attachment, principal
// loading, CSRF, return-to tracking, then route dispatch.
func SetupRouter(dbPool *pgxpool.Pool, cfg *config.Config, logger *zap.Logger) (*gin.Engine, *appsession.Store) {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(ginzap.GinzapWithConfig(logger, &ginzap.Config{
		UTC:        true,
		TimeFormat: time.RFC3339,
		Context:    zapContextFunc(),
	}))
	r.Use(ginzap.RecoveryWithZap(logger, true))
	r.Use(appmiddleware.OTELGinMiddleware(serviceName))
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(appmiddleware.SecurityMiddleware())
	r.Use(appmiddleware.Metrics())

	store := appsession.NewStore(dbPool, logger, []byte(cfg.SessionSecret))
	store.StartCleanup(time.Hour)
	r.Use(sessions.Sessions(appsession.Name, store))

	repo := auth.NewPostgresRepo(dbPool, logger)
	authService := auth.NewService(repo, cfg.SessionSecret, logger)
	table := oauth.NewTable(cfg.Providers, cfg.BaseURL)
	oauthService := oauth.NewService(repo, logger)

	r.Use(appmiddleware.LoadPrincipal(authService))
	r.Use(appmiddleware.CSRF(cfg.SessionSecret))
	r.Use(appmiddleware.RememberReturnTo())

	r.SetHTMLTemplate(template.Must(template.ParseFS(web.Templates, "templates/*.html")))

	routes.Setup(r, routes.Handlers{
		Auth:    auth.NewHandlers(authService, cfg.BaseURL, logger),
		OAuth:   oauth.NewHandlers(table, oauthService, cfg.BaseURL, logger),
		Account: account.NewHandlers(repo, authService, logger),
		API:     apidemo.NewHandlers(oauthService, table, cfg.Providers.SteamKey, logger),
		Tokens:  oauthService,
	})

	return r, store
}

// zapContextFunc returns the Zap context function for logging
func zapContextFunc() ginzap.Fn {
	return func(c *gin.Context) []zapcore.Field {
		fields := []zapcore.Field{}

		if requestID := c.Writer.Header().Get("X-Request-Id"); requestID != "" {
			fields = append(fields, zap.String("request_id", requestID))
		}

		if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().IsValid() {
			fields = append(fields,
				zap.String("trace_id", span.SpanContext().TraceID().String()),
				zap.String("span_id", span.SpanContext().SpanID().String()),
			)
		}

		return fields
	}
}

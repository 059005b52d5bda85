// Package apidemo hosts the third-party API demonstration endpoints. Each
// provider endpoint sits behind the authentication and authorization gates
// and performs one representative call with the stored access token.
package apidemo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/wrath-m/boilerplate-express/internal/app/domain/oauth"
	"github.com/wrath-m/boilerplate-express/internal/app/middleware"
	"github.com/wrath-m/boilerplate-express/internal/app/observability/metrics"
	"github.com/wrath-m/boilerplate-express/internal/app/view"
)

type Handlers struct {
	tokens   *oauth.Service
	table    *oauth.Table
	steamKey string
	client   *resty.Client
	logger   *zap.Logger
}

func NewHandlers(tokens *oauth.Service, table *oauth.Table, steamKey string, logger *zap.Logger) *Handlers {
	return &Handlers{
		tokens:   tokens,
		table:    table,
		steamKey: steamKey,
		client:   resty.New().SetTimeout(10 * time.Second),
		logger:   logger,
	}
}

// demoProviders are the providers with a demonstration endpoint, in display
// order. Sign-in-only providers have no /api/<name> route and are not listed.
var demoProviders = []string{"github", "foursquare", "tumblr", "pinterest"}

// Index lists the API demonstrations whose provider is actually configured.
// Steam rides the operator API key rather than the OAuth table.
func (h *Handlers) Index(c *gin.Context) {
	providers := make([]string, 0, len(demoProviders)+1)
	for _, name := range demoProviders {
		if _, ok := h.table.Get(name); ok {
			providers = append(providers, name)
		}
	}
	if h.steamKey != "" {
		providers = append(providers, "steam")
	}
	c.HTML(http.StatusOK, "api.html", view.Data(c, "API Examples", gin.H{
		"providers": providers,
	}))
}

// GitHub shows the authenticated user's repositories.
func (h *Handlers) GitHub(c *gin.Context) {
	h.show(c, "github", func(ctx context.Context, accessToken string) (*resty.Response, error) {
		return h.client.R().
			SetContext(ctx).
			SetAuthToken(accessToken).
			SetHeader("Accept", "application/vnd.github+json").
			Get("https://api.github.com/user/repos")
	})
}

// Foursquare shows the user's check-in history.
func (h *Handlers) Foursquare(c *gin.Context) {
	h.show(c, "foursquare", func(ctx context.Context, accessToken string) (*resty.Response, error) {
		return h.client.R().
			SetContext(ctx).
			SetQueryParam("oauth_token", accessToken).
			SetQueryParam("v", "20140806").
			Get("https://api.foursquare.com/v2/users/self/checkins")
	})
}

// Tumblr shows the user's blog information.
func (h *Handlers) Tumblr(c *gin.Context) {
	h.show(c, "tumblr", func(ctx context.Context, accessToken string) (*resty.Response, error) {
		return h.client.R().
			SetContext(ctx).
			SetAuthToken(accessToken).
			Get("https://api.tumblr.com/v2/user/info")
	})
}

// Pinterest shows the user's boards.
func (h *Handlers) Pinterest(c *gin.Context) {
	h.show(c, "pinterest", func(ctx context.Context, accessToken string) (*resty.Response, error) {
		return h.client.R().
			SetContext(ctx).
			SetAuthToken(accessToken).
			Get("https://api.pinterest.com/v5/boards")
	})
}

// Steam shows the user's owned games. The stored "token" is the verified
// Steam ID; the Web API authenticates with the operator key.
func (h *Handlers) Steam(c *gin.Context) {
	h.show(c, "steam", func(ctx context.Context, steamID string) (*resty.Response, error) {
		return h.client.R().
			SetContext(ctx).
			SetQueryParam("key", h.steamKey).
			SetQueryParam("steamid", steamID).
			SetQueryParam("include_appinfo", "1").
			SetQueryParam("format", "json").
			Get("https://api.steampowered.com/IPlayerService/GetOwnedGames/v1/")
	})
}

type apiCall func(ctx context.Context, accessToken string) (*resty.Response, error)

// show runs one provider call with the stored token and renders the pretty
// printed response. The authorization gate has already guaranteed the token
// exists.
func (h *Handlers) show(c *gin.Context, provider string, call apiCall) {
	user := middleware.GetUserFromContext(c)

	token, err := h.tokens.Token(c.Request.Context(), user.ID, provider)
	if err != nil {
		c.Redirect(http.StatusFound, "/auth/"+provider)
		return
	}

	if m := metrics.Get(); m != nil {
		m.ProviderAPIRequestsTotal.Add(c.Request.Context(), 1,
			metric.WithAttributes(attribute.String("provider", provider)))
	}

	resp, err := call(c.Request.Context(), token.AccessToken)
	if err != nil {
		h.logger.Error("Provider API call failed", zap.String("provider", provider), zap.Error(err))
		c.HTML(http.StatusBadGateway, "api_result.html", view.Data(c, provider+" API", gin.H{
			"provider": provider,
			"error":    fmt.Sprintf("%s API is unreachable", provider),
		}))
		return
	}

	c.HTML(http.StatusOK, "api_result.html", view.Data(c, provider+" API", gin.H{
		"provider": provider,
		"status":   resp.Status(),
		"payload":  prettyJSON(resp.Body()),
	}))
}

func prettyJSON(body []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return string(body)
	}
	return buf.String()
}

package apidemo

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/wrath-m/boilerplate-express/internal/app/domain/oauth"
	"github.com/wrath-m/boilerplate-express/internal/app/middleware"
	appsession "github.com/wrath-m/boilerplate-express/internal/app/session"
	"github.com/wrath-m/boilerplate-express/internal/pkg/config"
	"github.com/wrath-m/boilerplate-express/web"
)

func newIndexRouter(creds config.ProviderCredentials, steamKey string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions(appsession.Name, cookie.NewStore([]byte("test-secret"))))
	r.Use(middleware.CSRF("test-secret"))
	r.SetHTMLTemplate(template.Must(template.ParseFS(web.Templates, "templates/*.html")))

	table := oauth.NewTable(creds, "http://localhost:3000")
	h := NewHandlers(nil, table, steamKey, zap.NewNop())
	r.GET("/api", h.Index)
	return r
}

func TestIndex(t *testing.T) {
	t.Run("lists only configured demo providers", func(t *testing.T) {
		r := newIndexRouter(config.ProviderCredentials{
			GitHubID: "gh-id", TumblrKey: "tumblr-key",
		}, "")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, `href="/api/github"`)
		assert.Contains(t, body, `href="/api/tumblr"`)
		assert.NotContains(t, body, `href="/api/pinterest"`)
		assert.NotContains(t, body, `href="/api/steam"`)
	})

	t.Run("steam appears only with an operator key", func(t *testing.T) {
		r := newIndexRouter(config.ProviderCredentials{}, "steam-key")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `href="/api/steam"`)
	})

	t.Run("sign-in-only providers are not advertised", func(t *testing.T) {
		r := newIndexRouter(config.ProviderCredentials{
			GoogleID: "g-id", FacebookID: "fb-id",
		}, "")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.NotContains(t, body, `href="/api/google"`)
		assert.NotContains(t, body, `href="/api/facebook"`)
	})
}

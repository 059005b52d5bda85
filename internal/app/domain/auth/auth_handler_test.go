package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wrath-m/boilerplate-express/internal/app/models"
	appsession "github.com/wrath-m/boilerplate-express/internal/app/session"
)

// --- Mock Service ---

type MockService struct {
	mock.Mock
}

func (m *MockService) Login(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockService) Register(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockService) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockService) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	args := m.Called(ctx, userID, newPassword)
	return args.Error(0)
}

func (m *MockService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *MockService) VerifyResetToken(token string) (string, error) {
	args := m.Called(token)
	return args.String(0), args.Error(1)
}

func (m *MockService) ResetPassword(ctx context.Context, token, newPassword string) (*models.User, error) {
	args := m.Called(ctx, token, newPassword)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

var _ Service = (*MockService)(nil)

func newHandlerRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions(appsession.Name, cookie.NewStore([]byte("test-secret"))))

	h := NewHandlers(svc, "http://localhost:3000", zap.NewNop())
	r.POST("/login", h.Login)
	r.GET("/logout", h.Logout)
	r.POST("/signup", h.Signup)
	r.POST("/forgot", h.Forgot)
	r.POST("/reset/:token", h.Reset)
	return r
}

func postForm(r *gin.Engine, path string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestLoginHandler(t *testing.T) {
	t.Run("invalid form redirects back to login", func(t *testing.T) {
		svc := new(MockService)
		r := newHandlerRouter(svc)

		w := postForm(r, "/login", url.Values{"email": {"not-an-email"}}, nil)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login", w.Header().Get("Location"))
		svc.AssertNotCalled(t, "Login")
	})

	t.Run("bad credentials redirect back to login", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Login", mock.Anything, "test@example.com", "wrong").
			Return(nil, models.ErrUnauthenticated)
		r := newHandlerRouter(svc)

		w := postForm(r, "/login", url.Values{
			"email":    {"test@example.com"},
			"password": {"wrong"},
		}, nil)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login", w.Header().Get("Location"))
	})

	t.Run("success stores the principal and goes to the root", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Login", mock.Anything, "test@example.com", "correct").
			Return(&models.User{ID: "u1"}, nil)
		r := newHandlerRouter(svc)
		r.GET("/whoami", func(c *gin.Context) {
			c.String(http.StatusOK, appsession.PrincipalID(c))
		})

		w := postForm(r, "/login", url.Values{
			"email":    {"test@example.com"},
			"password": {"correct"},
		}, nil)

		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))

		whoami := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		for _, c := range w.Result().Cookies() {
			req.AddCookie(c)
		}
		r.ServeHTTP(whoami, req)
		assert.Equal(t, "u1", whoami.Body.String())
	})

	t.Run("success returns to the remembered path", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Login", mock.Anything, "test@example.com", "correct").
			Return(&models.User{ID: "u1"}, nil)
		r := newHandlerRouter(svc)
		r.GET("/remember", func(c *gin.Context) {
			require.NoError(t, appsession.SetReturnTo(c, "/api/account"))
			c.Status(http.StatusOK)
		})

		remember := httptest.NewRecorder()
		r.ServeHTTP(remember, httptest.NewRequest(http.MethodGet, "/remember", nil))

		w := postForm(r, "/login", url.Values{
			"email":    {"test@example.com"},
			"password": {"correct"},
		}, remember.Result().Cookies())

		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/api/account", w.Header().Get("Location"))
	})
}

func TestLogoutHandler(t *testing.T) {
	svc := new(MockService)
	r := newHandlerRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/logout", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestSignupHandler(t *testing.T) {
	t.Run("mismatched passwords redirect back", func(t *testing.T) {
		svc := new(MockService)
		r := newHandlerRouter(svc)

		w := postForm(r, "/signup", url.Values{
			"email":           {"new@example.com"},
			"password":        {"longenough1"},
			"confirmPassword": {"different1!"},
		}, nil)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/signup", w.Header().Get("Location"))
		svc.AssertNotCalled(t, "Register")
	})

	t.Run("duplicate email redirects back", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Register", mock.Anything, "dup@example.com", "longenough1").
			Return(nil, models.ErrConflict)
		r := newHandlerRouter(svc)

		w := postForm(r, "/signup", url.Values{
			"email":           {"dup@example.com"},
			"password":        {"longenough1"},
			"confirmPassword": {"longenough1"},
		}, nil)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/signup", w.Header().Get("Location"))
	})

	t.Run("success logs the new user in", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Register", mock.Anything, "new@example.com", "longenough1").
			Return(&models.User{ID: "u9"}, nil)
		r := newHandlerRouter(svc)

		w := postForm(r, "/signup", url.Values{
			"email":           {"new@example.com"},
			"password":        {"longenough1"},
			"confirmPassword": {"longenough1"},
		}, nil)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
	})
}

func TestForgotHandler(t *testing.T) {
	t.Run("unknown email redirects back with an error", func(t *testing.T) {
		svc := new(MockService)
		svc.On("RequestPasswordReset", mock.Anything, "nobody@example.com").
			Return("", models.ErrNotFound)
		r := newHandlerRouter(svc)

		w := postForm(r, "/forgot", url.Values{"email": {"nobody@example.com"}}, nil)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/forgot", w.Header().Get("Location"))
	})

	t.Run("known email issues a token", func(t *testing.T) {
		svc := new(MockService)
		svc.On("RequestPasswordReset", mock.Anything, "test@example.com").
			Return("tok123", nil)
		r := newHandlerRouter(svc)

		w := postForm(r, "/forgot", url.Values{"email": {"test@example.com"}}, nil)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/forgot", w.Header().Get("Location"))
		svc.AssertExpectations(t)
	})
}

func TestResetHandler(t *testing.T) {
	t.Run("invalid token redirects to forgot", func(t *testing.T) {
		svc := new(MockService)
		svc.On("ResetPassword", mock.Anything, "expired", "longenough1").
			Return(nil, models.ErrTokenExpired)
		r := newHandlerRouter(svc)

		w := postForm(r, "/reset/expired", url.Values{
			"password":        {"longenough1"},
			"confirmPassword": {"longenough1"},
		}, nil)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/forgot", w.Header().Get("Location"))
	})

	t.Run("valid token changes the password and logs in", func(t *testing.T) {
		svc := new(MockService)
		svc.On("ResetPassword", mock.Anything, "tok123", "longenough1").
			Return(&models.User{ID: "u1"}, nil)
		r := newHandlerRouter(svc)

		w := postForm(r, "/reset/tok123", url.Values{
			"password":        {"longenough1"},
			"confirmPassword": {"longenough1"},
		}, nil)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
	})
}

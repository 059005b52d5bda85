package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wrath-m/boilerplate-express/internal/pkg/config"
)

func TestNewTableSkipsUnconfiguredProviders(t *testing.T) {
	creds := config.ProviderCredentials{
		GitHubID:     "gh-id",
		GitHubSecret: "gh-secret",
		TumblrKey:    "tumblr-key",
		TumblrSecret: "tumblr-secret",
	}

	table := NewTable(creds, "http://localhost:3000")

	github, ok := table.Get("github")
	require.True(t, ok)
	assert.True(t, github.SignIn)
	assert.Equal(t, "gh-id", github.Config.ClientID)
	assert.Equal(t, "http://localhost:3000/auth/github/callback", github.Config.RedirectURL)

	tumblr, ok := table.Get("tumblr")
	require.True(t, ok)
	assert.False(t, tumblr.SignIn)

	_, ok = table.Get("google")
	assert.False(t, ok, "google has no credentials and must be absent")

	assert.ElementsMatch(t, []string{"github", "tumblr"}, table.Names())
}

func TestNewTableSignInFlags(t *testing.T) {
	creds := config.ProviderCredentials{
		InstagramID: "x", FacebookID: "x", GitHubID: "x", GoogleID: "x",
		TwitterKey: "x", LinkedInID: "x",
		FoursquareID: "x", TumblrKey: "x", PinterestID: "x",
	}
	table := NewTable(creds, "http://localhost:3000")

	signIn := map[string]bool{
		"instagram": true, "facebook": true, "github": true,
		"google": true, "twitter": true, "linkedin": true,
		"foursquare": false, "tumblr": false, "pinterest": false,
	}
	for name, want := range signIn {
		p, ok := table.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, want, p.SignIn, name)
	}
}

func TestLookupString(t *testing.T) {
	payload := map[string]any{
		"id":    float64(583231),
		"email": "octocat@github.com",
		"data": map[string]any{
			"id":   "2244994945",
			"name": "Twitter Dev",
		},
	}

	tests := []struct {
		name string
		path string
		want string
	}{
		{"top level string", "email", "octocat@github.com"},
		{"numeric id renders without exponent", "id", "583231"},
		{"nested path", "data.name", "Twitter Dev"},
		{"nested string id", "data.id", "2244994945"},
		{"missing key", "login", ""},
		{"missing nested key", "data.login", ""},
		{"path through a leaf", "email.domain", ""},
		{"empty path", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lookupString(payload, tt.path))
		})
	}
}

func TestFetchIdentity(t *testing.T) {
	t.Run("extracts configured fields", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id": 583231, "name": "The Octocat", "email": "octocat@github.com"}`))
		}))
		defer srv.Close()

		p := &Provider{
			Name:        "github",
			UserInfoURL: srv.URL,
			IDPath:      "id",
			EmailPath:   "email",
			NamePath:    "name",
		}

		identity, err := p.FetchIdentity(context.Background(), resty.New(), "token-abc")

		require.NoError(t, err)
		assert.Equal(t, "583231", identity.ID)
		assert.Equal(t, "octocat@github.com", identity.Email)
		assert.Equal(t, "The Octocat", identity.Name)
	})

	t.Run("missing id field is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"name": "No ID"}`))
		}))
		defer srv.Close()

		p := &Provider{Name: "github", UserInfoURL: srv.URL, IDPath: "id"}

		_, err := p.FetchIdentity(context.Background(), resty.New(), "token-abc")
		assert.Error(t, err)
	})

	t.Run("provider error status is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		p := &Provider{Name: "github", UserInfoURL: srv.URL, IDPath: "id"}

		_, err := p.FetchIdentity(context.Background(), resty.New(), "bad-token")
		assert.Error(t, err)
	})
}

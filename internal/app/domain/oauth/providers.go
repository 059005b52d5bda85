// Package oauth implements third-party sign-in and authorization flows.
// Providers are declarative table entries; one pair of handlers serves them
// all. Steam is the exception: it speaks OpenID 2.0 and has its own small
// flow.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"

	"github.com/wrath-m/boilerplate-express/internal/pkg/config"
)

// Identity is what a sign-in provider tells us about the authenticated user.
type Identity struct {
	ID    string
	Email string
	Name  string
}

// Provider is one table entry. SignIn providers establish a principal;
// the rest only link an access token to the current principal.
type Provider struct {
	Name   string
	SignIn bool
	Config *oauth2.Config

	// UserInfoURL plus the dotted JSON paths below describe how to read
	// the provider's identity document. Only sign-in providers need them.
	UserInfoURL string
	IDPath      string
	EmailPath   string
	NamePath    string
}

// Table holds the configured providers keyed by name.
type Table struct {
	providers map[string]*Provider
}

// Get returns the named provider.
func (t *Table) Get(name string) (*Provider, bool) {
	p, ok := t.providers[name]
	return p, ok
}

// Names lists configured providers in registration order is not needed;
// callers sort for display.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.providers))
	for name := range t.providers {
		names = append(names, name)
	}
	return names
}

// NewTable builds the provider table from configured credentials. Providers
// without credentials are omitted, which disables their routes' targets.
func NewTable(creds config.ProviderCredentials, baseURL string) *Table {
	callback := func(name string) string {
		return baseURL + "/auth/" + name + "/callback"
	}

	candidates := []*Provider{
		{
			Name:   "instagram",
			SignIn: true,
			Config: &oauth2.Config{
				ClientID:     creds.InstagramID,
				ClientSecret: creds.InstagramSecret,
				Endpoint: oauth2.Endpoint{
					AuthURL:  "https://api.instagram.com/oauth/authorize",
					TokenURL: "https://api.instagram.com/oauth/access_token",
				},
				RedirectURL: callback("instagram"),
				Scopes:      []string{"user_profile"},
			},
			UserInfoURL: "https://graph.instagram.com/me?fields=id,username",
			IDPath:      "id",
			NamePath:    "username",
		},
		{
			Name:   "facebook",
			SignIn: true,
			Config: &oauth2.Config{
				ClientID:     creds.FacebookID,
				ClientSecret: creds.FacebookSecret,
				Endpoint: oauth2.Endpoint{
					AuthURL:  "https://www.facebook.com/v17.0/dialog/oauth",
					TokenURL: "https://graph.facebook.com/v17.0/oauth/access_token",
				},
				RedirectURL: callback("facebook"),
				Scopes:      []string{"email", "public_profile"},
			},
			UserInfoURL: "https://graph.facebook.com/me?fields=id,name,email",
			IDPath:      "id",
			EmailPath:   "email",
			NamePath:    "name",
		},
		{
			Name:   "github",
			SignIn: true,
			Config: &oauth2.Config{
				ClientID:     creds.GitHubID,
				ClientSecret: creds.GitHubSecret,
				Endpoint: oauth2.Endpoint{
					AuthURL:  "https://github.com/login/oauth/authorize",
					TokenURL: "https://github.com/login/oauth/access_token",
				},
				RedirectURL: callback("github"),
				Scopes:      []string{"user:email", "repo"},
			},
			UserInfoURL: "https://api.github.com/user",
			IDPath:      "id",
			EmailPath:   "email",
			NamePath:    "name",
		},
		{
			Name:   "google",
			SignIn: true,
			Config: &oauth2.Config{
				ClientID:     creds.GoogleID,
				ClientSecret: creds.GoogleSecret,
				Endpoint: oauth2.Endpoint{
					AuthURL:  "https://accounts.google.com/o/oauth2/auth",
					TokenURL: "https://oauth2.googleapis.com/token",
				},
				RedirectURL: callback("google"),
				Scopes:      []string{"openid", "profile", "email"},
			},
			UserInfoURL: "https://www.googleapis.com/oauth2/v3/userinfo",
			IDPath:      "sub",
			EmailPath:   "email",
			NamePath:    "name",
		},
		{
			Name:   "twitter",
			SignIn: true,
			Config: &oauth2.Config{
				ClientID:     creds.TwitterKey,
				ClientSecret: creds.TwitterSecret,
				Endpoint: oauth2.Endpoint{
					AuthURL:  "https://twitter.com/i/oauth2/authorize",
					TokenURL: "https://api.twitter.com/2/oauth2/token",
				},
				RedirectURL: callback("twitter"),
				Scopes:      []string{"users.read", "tweet.read"},
			},
			UserInfoURL: "https://api.twitter.com/2/users/me",
			IDPath:      "data.id",
			NamePath:    "data.name",
		},
		{
			Name:   "linkedin",
			SignIn: true,
			Config: &oauth2.Config{
				ClientID:     creds.LinkedInID,
				ClientSecret: creds.LinkedInSecret,
				Endpoint: oauth2.Endpoint{
					AuthURL:  "https://www.linkedin.com/oauth/v2/authorization",
					TokenURL: "https://www.linkedin.com/oauth/v2/accessToken",
				},
				RedirectURL: callback("linkedin"),
				Scopes:      []string{"openid", "profile", "email"},
			},
			UserInfoURL: "https://api.linkedin.com/v2/userinfo",
			IDPath:      "sub",
			EmailPath:   "email",
			NamePath:    "name",
		},
		{
			Name: "foursquare",
			Config: &oauth2.Config{
				ClientID:     creds.FoursquareID,
				ClientSecret: creds.FoursquareSecret,
				Endpoint: oauth2.Endpoint{
					AuthURL:  "https://foursquare.com/oauth2/authenticate",
					TokenURL: "https://foursquare.com/oauth2/access_token",
				},
				RedirectURL: callback("foursquare"),
			},
		},
		{
			Name: "tumblr",
			Config: &oauth2.Config{
				ClientID:     creds.TumblrKey,
				ClientSecret: creds.TumblrSecret,
				Endpoint: oauth2.Endpoint{
					AuthURL:  "https://www.tumblr.com/oauth2/authorize",
					TokenURL: "https://api.tumblr.com/v2/oauth2/token",
				},
				RedirectURL: callback("tumblr"),
				Scopes:      []string{"basic"},
			},
		},
		{
			Name: "pinterest",
			Config: &oauth2.Config{
				ClientID:     creds.PinterestID,
				ClientSecret: creds.PinterestSecret,
				Endpoint: oauth2.Endpoint{
					AuthURL:  "https://www.pinterest.com/oauth/",
					TokenURL: "https://api.pinterest.com/v5/oauth/token",
				},
				RedirectURL: callback("pinterest"),
				Scopes:      []string{"boards:read", "pins:read"},
			},
		},
	}

	table := &Table{providers: make(map[string]*Provider, len(candidates))}
	for _, p := range candidates {
		if p.Config.ClientID == "" {
			continue
		}
		table.providers[p.Name] = p
	}
	return table
}

// FetchIdentity retrieves the provider's identity document and extracts the
// configured fields.
func (p *Provider) FetchIdentity(ctx context.Context, client *resty.Client, accessToken string) (*Identity, error) {
	resp, err := client.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetHeader("Accept", "application/json").
		Get(p.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("%s userinfo request failed: %w", p.Name, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%s userinfo returned %s", p.Name, resp.Status())
	}

	var payload map[string]any
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("%s userinfo response malformed: %w", p.Name, err)
	}

	identity := &Identity{
		ID:    lookupString(payload, p.IDPath),
		Email: lookupString(payload, p.EmailPath),
		Name:  lookupString(payload, p.NamePath),
	}
	if identity.ID == "" {
		return nil, fmt.Errorf("%s userinfo missing id field %q", p.Name, p.IDPath)
	}
	return identity, nil
}

// lookupString walks a dotted path through nested JSON objects and renders
// the leaf as a string. Numeric ids (GitHub) come back as JSON numbers.
func lookupString(payload map[string]any, path string) string {
	if path == "" {
		return ""
	}
	var current any = payload
	for _, part := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return ""
		}
		current, ok = obj[part]
		if !ok {
			return ""
		}
	}

	switch v := current.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

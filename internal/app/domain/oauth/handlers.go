package oauth

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/wrath-m/boilerplate-express/internal/app/middleware"
	"github.com/wrath-m/boilerplate-express/internal/app/models"
	"github.com/wrath-m/boilerplate-express/internal/app/session"
)

const (
	stateKey    = "oauthState"
	verifierKey = "oauthVerifier"
)

type Handlers struct {
	table   *Table
	service *Service
	client  *resty.Client
	baseURL string
	logger  *zap.Logger
}

func NewHandlers(table *Table, service *Service, baseURL string, logger *zap.Logger) *Handlers {
	return &Handlers{
		table:   table,
		service: service,
		client:  resty.New().SetTimeout(10 * time.Second),
		baseURL: baseURL,
		logger:  logger,
	}
}

// Authorize starts the provider flow: state + PKCE verifier go into the
// session, the client goes to the provider.
func (h *Handlers) Authorize(c *gin.Context) {
	name := c.Param("provider")
	if name == "steam" {
		h.steamAuthorize(c)
		return
	}

	p, ok := h.table.Get(name)
	if !ok {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	if !p.SignIn && middleware.GetUserFromContext(c) == nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	sess := sessions.Default(c)
	sess.Set(stateKey, state)
	sess.Set(verifierKey, verifier)
	if err := sess.Save(); err != nil {
		h.logger.Error("Failed to persist oauth state", zap.Error(err))
		c.String(http.StatusInternalServerError, "session error")
		return
	}

	c.Redirect(http.StatusFound, p.Config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)))
}

// Callback completes the provider flow: validate state, exchange the code,
// then either link the token to the current principal or establish one.
// Success always redirects to the remembered path, defaulting to the root.
func (h *Handlers) Callback(c *gin.Context) {
	name := c.Param("provider")
	if name == "steam" {
		h.steamCallback(c)
		return
	}

	p, ok := h.table.Get(name)
	if !ok {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	if errParam := c.Query("error"); errParam != "" {
		h.logger.Warn("Provider returned error", zap.String("provider", name), zap.String("error", errParam))
		session.AddFlash(c, models.FlashError, "Authentication with "+name+" was denied.")
		c.Redirect(http.StatusFound, "/login")
		return
	}

	sess := sessions.Default(c)
	storedState, _ := sess.Get(stateKey).(string)
	verifier, _ := sess.Get(verifierKey).(string)
	sess.Delete(stateKey)
	sess.Delete(verifierKey)
	_ = sess.Save()

	if storedState == "" || c.Query("state") != storedState {
		session.AddFlash(c, models.FlashError, "Authentication state mismatch. Please try again.")
		c.Redirect(http.StatusFound, "/login")
		return
	}

	tok, err := p.Config.Exchange(c.Request.Context(), c.Query("code"), oauth2.VerifierOption(verifier))
	if err != nil {
		h.logger.Error("Code exchange failed", zap.String("provider", name), zap.Error(err))
		session.AddFlash(c, models.FlashError, "Could not complete authentication with "+name+".")
		c.Redirect(http.StatusFound, "/login")
		return
	}
	token := tokenFromOAuth2(tok)

	// Linking: a present principal keeps their session, the token is stored
	// against them.
	if user := middleware.GetUserFromContext(c); user != nil {
		providerUserID := ""
		if p.SignIn {
			if identity, ferr := p.FetchIdentity(c.Request.Context(), h.client, tok.AccessToken); ferr == nil {
				providerUserID = identity.ID
			}
		}
		if err := h.service.Link(c.Request.Context(), user.ID, name, providerUserID, token); err != nil {
			h.logger.Error("Failed to link provider", zap.String("provider", name), zap.Error(err))
			session.AddFlash(c, models.FlashError, "Could not link your "+name+" account.")
			c.Redirect(http.StatusFound, "/api/account")
			return
		}
		session.AddFlash(c, models.FlashSuccess, "Your "+name+" account has been linked.")
		c.Redirect(http.StatusFound, session.PopReturnTo(c))
		return
	}

	if !p.SignIn {
		// Authorization-only providers cannot establish a principal.
		c.Redirect(http.StatusFound, "/login")
		return
	}

	identity, err := p.FetchIdentity(c.Request.Context(), h.client, tok.AccessToken)
	if err != nil {
		h.logger.Error("Identity fetch failed", zap.String("provider", name), zap.Error(err))
		session.AddFlash(c, models.FlashError, "Could not read your "+name+" profile.")
		c.Redirect(http.StatusFound, "/login")
		return
	}

	user, err := h.service.SignIn(c.Request.Context(), name, identity, token)
	if err != nil {
		h.logger.Error("Provider sign-in failed", zap.String("provider", name), zap.Error(err))
		session.AddFlash(c, models.FlashError, "Could not sign you in with "+name+".")
		c.Redirect(http.StatusFound, "/login")
		return
	}

	if err := session.SetPrincipal(c, user.ID); err != nil {
		h.logger.Error("Failed to persist session", zap.Error(err))
		c.String(http.StatusInternalServerError, "session error")
		return
	}
	c.Redirect(http.StatusFound, session.PopReturnTo(c))
}

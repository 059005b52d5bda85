package oauth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wrath-m/boilerplate-express/internal/app/middleware"
	"github.com/wrath-m/boilerplate-express/internal/app/models"
	"github.com/wrath-m/boilerplate-express/internal/app/session"
)

// Steam does not speak OAuth; it is an OpenID 2.0 identity provider. The flow
// is a redirect to steamcommunity.com and a server-side check_authentication
// round trip on the way back. The verified 64-bit Steam ID doubles as the
// stored credential: Steam Web API calls authenticate with the operator's API
// key plus that ID.
const steamOpenIDEndpoint = "https://steamcommunity.com/openid/login"

const openIDIdentifierSelect = "http://specs.openid.net/auth/2.0/identifier_select"

func (h *Handlers) steamAuthorize(c *gin.Context) {
	if middleware.GetUserFromContext(c) == nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	query := url.Values{}
	query.Set("openid.ns", "http://specs.openid.net/auth/2.0")
	query.Set("openid.mode", "checkid_setup")
	query.Set("openid.return_to", h.baseURL+"/auth/steam/callback")
	query.Set("openid.realm", h.baseURL)
	query.Set("openid.identity", openIDIdentifierSelect)
	query.Set("openid.claimed_id", openIDIdentifierSelect)

	c.Redirect(http.StatusFound, steamOpenIDEndpoint+"?"+query.Encode())
}

func (h *Handlers) steamCallback(c *gin.Context) {
	user := middleware.GetUserFromContext(c)
	if user == nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	if c.Query("openid.mode") != "id_res" {
		session.AddFlash(c, models.FlashError, "Steam authentication was cancelled.")
		c.Redirect(http.StatusFound, "/api/account")
		return
	}

	// Replay the assertion back to Steam for verification.
	form := url.Values{}
	for key, values := range c.Request.URL.Query() {
		if strings.HasPrefix(key, "openid.") && len(values) > 0 {
			form.Set(key, values[0])
		}
	}
	form.Set("openid.mode", "check_authentication")

	resp, err := h.client.R().
		SetContext(c.Request.Context()).
		SetFormDataFromValues(form).
		Post(steamOpenIDEndpoint)
	if err != nil || !strings.Contains(string(resp.Body()), "is_valid:true") {
		h.logger.Warn("Steam assertion verification failed", zap.Error(err))
		session.AddFlash(c, models.FlashError, "Could not verify your Steam identity.")
		c.Redirect(http.StatusFound, "/api/account")
		return
	}

	claimedID := c.Query("openid.claimed_id")
	steamID := claimedID[strings.LastIndex(claimedID, "/")+1:]
	if steamID == "" {
		session.AddFlash(c, models.FlashError, "Steam did not return an identity.")
		c.Redirect(http.StatusFound, "/api/account")
		return
	}

	token := models.ProviderToken{AccessToken: steamID}
	if err := h.service.Link(c.Request.Context(), user.ID, "steam", steamID, token); err != nil {
		h.logger.Error("Failed to link steam identity", zap.Error(err))
		session.AddFlash(c, models.FlashError, "Could not link your Steam account.")
		c.Redirect(http.StatusFound, "/api/account")
		return
	}

	session.AddFlash(c, models.FlashSuccess, "Your Steam account has been linked.")
	c.Redirect(http.StatusFound, session.PopReturnTo(c))
}

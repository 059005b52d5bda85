package session

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/wrath-m/boilerplate-express/internal/app/models"
)

// Name is the session cookie name.
const Name = "boilerplate.sid"

const (
	principalKey = "userID"
	returnToKey  = "returnTo"
)

// PrincipalID returns the authenticated user id stored in the session, or ""
// when the request carries no principal.
func PrincipalID(c *gin.Context) string {
	sess := sessions.Default(c)
	if v, ok := sess.Get(principalKey).(string); ok {
		return v
	}
	return ""
}

// SetPrincipal records a successful authentication in the session.
func SetPrincipal(c *gin.Context, userID string) error {
	sess := sessions.Default(c)
	sess.Set(principalKey, userID)
	return sess.Save()
}

// Destroy drops all session state and expires the cookie.
func Destroy(c *gin.Context) error {
	sess := sessions.Default(c)
	sess.Clear()
	sess.Options(sessions.Options{Path: "/", MaxAge: -1})
	return sess.Save()
}

// SetReturnTo overwrites the single remembered path for post-login redirect.
func SetReturnTo(c *gin.Context, path string) error {
	sess := sessions.Default(c)
	sess.Set(returnToKey, path)
	return sess.Save()
}

// ReturnTo reads the remembered path without consuming it.
func ReturnTo(c *gin.Context) string {
	sess := sessions.Default(c)
	if v, ok := sess.Get(returnToKey).(string); ok {
		return v
	}
	return ""
}

// PopReturnTo consumes the remembered path, defaulting to the site root.
func PopReturnTo(c *gin.Context) string {
	sess := sessions.Default(c)
	target, _ := sess.Get(returnToKey).(string)
	if target == "" {
		return "/"
	}
	sess.Delete(returnToKey)
	_ = sess.Save()
	return target
}

// AddFlash queues a one-shot message for the next rendered page.
func AddFlash(c *gin.Context, flashType, message string) {
	sess := sessions.Default(c)
	sess.AddFlash(models.Flash{Type: flashType, Message: message})
	_ = sess.Save()
}

// Flashes drains the queued flash messages.
func Flashes(c *gin.Context) []models.Flash {
	sess := sessions.Default(c)
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	_ = sess.Save()
	out := make([]models.Flash, 0, len(raw))
	for _, f := range raw {
		if flash, ok := f.(models.Flash); ok {
			out = append(out, flash)
		}
	}
	return out
}

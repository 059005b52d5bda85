// Package view carries the data every rendered page needs.
package view

import (
	"github.com/gin-gonic/gin"

	"github.com/wrath-m/boilerplate-express/internal/app/middleware"
	"github.com/wrath-m/boilerplate-express/internal/app/session"
)

// Data builds the template payload: title, principal, flashes and the CSRF
// token, merged with page-specific extras.
func Data(c *gin.Context, title string, extra gin.H) gin.H {
	h := gin.H{
		"title":     title,
		"user":      middleware.GetUserFromContext(c),
		"flashes":   session.Flashes(c),
		"csrfToken": middleware.CSRFToken(c),
	}
	for k, v := range extra {
		h[k] = v
	}
	return h
}

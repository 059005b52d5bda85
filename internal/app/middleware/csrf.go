package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	csrf "github.com/utrack/gin-csrf"
)

// UploadPath is the single multipart endpoint exempt from CSRF validation.
// Multipart form submissions cannot carry the token where the validator
// expects it.
const UploadPath = "/api/upload"

// CSRF applies token validation to every request except POST UploadPath.
func CSRF(secret string) gin.HandlerFunc {
	protect := csrf.Middleware(csrf.Options{
		Secret: secret,
		ErrorFunc: func(c *gin.Context) {
			c.String(http.StatusForbidden, "CSRF token mismatch")
			c.Abort()
		},
	})

	return func(c *gin.Context) {
		if c.Request.URL.Path == UploadPath && c.Request.Method == http.MethodPost {
			c.Next()
			return
		}
		protect(c)
	}
}

// CSRFToken exposes the per-session token for form rendering.
func CSRFToken(c *gin.Context) string {
	return csrf.GetToken(c)
}

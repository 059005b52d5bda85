package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wrath-m/boilerplate-express/assets"
)

// SetupAssets configures static asset serving for the Gin router
func SetupAssets(r *gin.Engine) error {
	r.StaticFS("/assets", http.FS(assets.Assets))
	return nil
}

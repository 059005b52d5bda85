// Package routes holds the static route table. Built once at startup,
// immutable thereafter.
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wrath-m/boilerplate-express/internal/app/domain/account"
	"github.com/wrath-m/boilerplate-express/internal/app/domain/apidemo"
	"github.com/wrath-m/boilerplate-express/internal/app/domain/auth"
	"github.com/wrath-m/boilerplate-express/internal/app/domain/oauth"
	"github.com/wrath-m/boilerplate-express/internal/app/middleware"
	"github.com/wrath-m/boilerplate-express/internal/app/view"
)

// Handlers bundles every controller the route table dispatches to.
type Handlers struct {
	Auth    *auth.Handlers
	OAuth   *oauth.Handlers
	Account *account.Handlers
	API     *apidemo.Handlers
	Tokens  middleware.TokenChecker
}

// Setup registers every route with its gates.
func Setup(r *gin.Engine, h Handlers) {
	r.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "index.html", view.Data(c, "Home", nil))
	})

	// Local authentication
	r.GET("/login", h.Auth.LoginPage)
	r.POST("/login", h.Auth.Login)
	r.GET("/logout", h.Auth.Logout)
	r.GET("/signup", h.Auth.SignupPage)
	r.POST("/signup", h.Auth.Signup)
	r.GET("/forgot", h.Auth.ForgotPage)
	r.POST("/forgot", h.Auth.Forgot)
	r.GET("/reset/:token", h.Auth.ResetPage)
	r.POST("/reset/:token", h.Auth.Reset)

	// OAuth / OpenID flows, one authenticate+callback pair per provider
	r.GET("/auth/:provider", h.OAuth.Authorize)
	r.GET("/auth/:provider/callback", h.OAuth.Callback)

	// Account management
	accountGroup := r.Group("/api/account")
	accountGroup.Use(middleware.IsAuthenticated())
	{
		accountGroup.GET("", h.Account.Page)
		accountGroup.POST("/profile", h.Account.UpdateProfile)
		accountGroup.POST("/password", h.Account.UpdatePassword)
		accountGroup.POST("/delete", h.Account.Delete)
		accountGroup.GET("/unlink/:provider", h.Account.Unlink)
	}

	// Third-party API demonstrations
	api := r.Group("/api")
	{
		api.GET("", h.API.Index)
		api.GET("/github",
			middleware.IsAuthenticated(), middleware.IsAuthorized("github", h.Tokens), h.API.GitHub)
		api.GET("/foursquare",
			middleware.IsAuthenticated(), middleware.IsAuthorized("foursquare", h.Tokens), h.API.Foursquare)
		api.GET("/tumblr",
			middleware.IsAuthenticated(), middleware.IsAuthorized("tumblr", h.Tokens), h.API.Tumblr)
		api.GET("/pinterest",
			middleware.IsAuthenticated(), middleware.IsAuthorized("pinterest", h.Tokens), h.API.Pinterest)
		api.GET("/steam",
			middleware.IsAuthenticated(), middleware.IsAuthorized("steam", h.Tokens), h.API.Steam)
		api.GET("/upload", middleware.IsAuthenticated(), h.API.UploadPage)
		api.POST("/upload", middleware.IsAuthenticated(), h.API.Upload)
	}
}

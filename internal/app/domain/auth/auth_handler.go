package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wrath-m/boilerplate-express/internal/app/models"
	"github.com/wrath-m/boilerplate-express/internal/app/session"
	"github.com/wrath-m/boilerplate-express/internal/app/view"
)

type LoginForm struct {
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required"`
}

type SignupForm struct {
	Email           string `form:"email" binding:"required,email"`
	Password        string `form:"password" binding:"required,min=8"`
	ConfirmPassword string `form:"confirmPassword" binding:"required,eqfield=Password"`
}

type ForgotForm struct {
	Email string `form:"email" binding:"required,email"`
}

type ResetForm struct {
	Password        string `form:"password" binding:"required,min=8"`
	ConfirmPassword string `form:"confirmPassword" binding:"required,eqfield=Password"`
}

type Handlers struct {
	service Service
	baseURL string
	logger  *zap.Logger
}

func NewHandlers(service Service, baseURL string, logger *zap.Logger) *Handlers {
	return &Handlers{
		service: service,
		baseURL: baseURL,
		logger:  logger,
	}
}

func (h *Handlers) LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", view.Data(c, "Login", nil))
}

// Login authenticates the form credentials, stores the principal in the
// session and redirects to the remembered path.
func (h *Handlers) Login(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		session.AddFlash(c, models.FlashError, "Please enter a valid email address and password.")
		c.Redirect(http.StatusFound, "/login")
		return
	}

	user, err := h.service.Login(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		h.logger.Warn("Login failed", zap.String("email", form.Email))
		session.AddFlash(c, models.FlashError, "Invalid email or password.")
		c.Redirect(http.StatusFound, "/login")
		return
	}

	if err := session.SetPrincipal(c, user.ID); err != nil {
		h.logger.Error("Failed to persist session", zap.Error(err))
		c.String(http.StatusInternalServerError, "session error")
		return
	}

	session.AddFlash(c, models.FlashSuccess, "Success! You are logged in.")
	c.Redirect(http.StatusFound, session.PopReturnTo(c))
}

// Logout destroys the session and returns to the site root.
func (h *Handlers) Logout(c *gin.Context) {
	if err := session.Destroy(c); err != nil {
		h.logger.Warn("Failed to destroy session", zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *Handlers) SignupPage(c *gin.Context) {
	c.HTML(http.StatusOK, "signup.html", view.Data(c, "Create Account", nil))
}

// Signup registers a local account and logs the new user in.
func (h *Handlers) Signup(c *gin.Context) {
	var form SignupForm
	if err := c.ShouldBind(&form); err != nil {
		session.AddFlash(c, models.FlashError, "Password must be at least 8 characters long and both passwords must match.")
		c.Redirect(http.StatusFound, "/signup")
		return
	}

	user, err := h.service.Register(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			session.AddFlash(c, models.FlashError, "Account with that email address already exists.")
		} else {
			h.logger.Error("Signup failed", zap.Error(err))
			session.AddFlash(c, models.FlashError, "Could not create your account. Please try again.")
		}
		c.Redirect(http.StatusFound, "/signup")
		return
	}

	if err := session.SetPrincipal(c, user.ID); err != nil {
		h.logger.Error("Failed to persist session", zap.Error(err))
		c.String(http.StatusInternalServerError, "session error")
		return
	}
	c.Redirect(http.StatusFound, session.PopReturnTo(c))
}

func (h *Handlers) ForgotPage(c *gin.Context) {
	c.HTML(http.StatusOK, "forgot.html", view.Data(c, "Forgot Password", nil))
}

// Forgot issues a password reset token. Without an outbound mailer the reset
// link is logged for the operator to relay.
func (h *Handlers) Forgot(c *gin.Context) {
	var form ForgotForm
	if err := c.ShouldBind(&form); err != nil {
		session.AddFlash(c, models.FlashError, "Please enter a valid email address.")
		c.Redirect(http.StatusFound, "/forgot")
		return
	}

	token, err := h.service.RequestPasswordReset(c.Request.Context(), form.Email)
	if err != nil {
		session.AddFlash(c, models.FlashError, "No account with that email address exists.")
		c.Redirect(http.StatusFound, "/forgot")
		return
	}

	h.logger.Info("Password reset link issued",
		zap.String("email", form.Email),
		zap.String("url", h.baseURL+"/reset/"+token),
	)
	session.AddFlash(c, models.FlashInfo, "An e-mail has been sent to "+form.Email+" with further instructions.")
	c.Redirect(http.StatusFound, "/forgot")
}

func (h *Handlers) ResetPage(c *gin.Context) {
	token := c.Param("token")
	if _, err := h.service.VerifyResetToken(token); err != nil {
		session.AddFlash(c, models.FlashError, "Password reset token is invalid or has expired.")
		c.Redirect(http.StatusFound, "/forgot")
		return
	}
	c.HTML(http.StatusOK, "reset.html", view.Data(c, "Password Reset", gin.H{"token": token}))
}

// Reset consumes the token, updates the password and logs the user in.
func (h *Handlers) Reset(c *gin.Context) {
	token := c.Param("token")

	var form ResetForm
	if err := c.ShouldBind(&form); err != nil {
		session.AddFlash(c, models.FlashError, "Password must be at least 8 characters long and both passwords must match.")
		c.Redirect(http.StatusFound, "/reset/"+token)
		return
	}

	user, err := h.service.ResetPassword(c.Request.Context(), token, form.Password)
	if err != nil {
		session.AddFlash(c, models.FlashError, "Password reset token is invalid or has expired.")
		c.Redirect(http.StatusFound, "/forgot")
		return
	}

	if err := session.SetPrincipal(c, user.ID); err != nil {
		h.logger.Error("Failed to persist session", zap.Error(err))
		c.String(http.StatusInternalServerError, "session error")
		return
	}
	session.AddFlash(c, models.FlashSuccess, "Success! Your password has been changed.")
	c.Redirect(http.StatusFound, "/")
}

// Package account implements the account management pages. Every route here
// sits behind the authentication gate.
package account

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wrath-m/boilerplate-express/internal/app/domain/auth"
	"github.com/wrath-m/boilerplate-express/internal/app/middleware"
	"github.com/wrath-m/boilerplate-express/internal/app/models"
	"github.com/wrath-m/boilerplate-express/internal/app/session"
	"github.com/wrath-m/boilerplate-express/internal/app/view"
)

type ProfileForm struct {
	Email    string `form:"email" binding:"required,email"`
	Name     string `form:"name"`
	Gender   string `form:"gender"`
	Location string `form:"location"`
	Website  string `form:"website" binding:"omitempty,url"`
}

type PasswordForm struct {
	Password        string `form:"password" binding:"required,min=8"`
	ConfirmPassword string `form:"confirmPassword" binding:"required,eqfield=Password"`
}

type Handlers struct {
	repo    auth.Repo
	service auth.Service
	logger  *zap.Logger
}

func NewHandlers(repo auth.Repo, service auth.Service, logger *zap.Logger) *Handlers {
	return &Handlers{
		repo:    repo,
		service: service,
		logger:  logger,
	}
}

func (h *Handlers) Page(c *gin.Context) {
	c.HTML(http.StatusOK, "account.html", view.Data(c, "Account Management", nil))
}

// UpdateProfile stores the submitted profile fields.
func (h *Handlers) UpdateProfile(c *gin.Context) {
	user := middleware.GetUserFromContext(c)

	var form ProfileForm
	if err := c.ShouldBind(&form); err != nil {
		session.AddFlash(c, models.FlashError, "Please provide a valid email address and website URL.")
		c.Redirect(http.StatusFound, "/api/account")
		return
	}

	profile := *user
	profile.Email = form.Email
	profile.Name = form.Name
	profile.Gender = form.Gender
	profile.Location = form.Location
	profile.Website = form.Website

	if err := h.repo.UpdateProfile(c.Request.Context(), user.ID, profile); err != nil {
		if errors.Is(err, models.ErrConflict) {
			session.AddFlash(c, models.FlashError, "The email address you have entered is already associated with an account.")
		} else {
			h.logger.Error("Profile update failed", zap.Error(err), zap.String("userID", user.ID))
			session.AddFlash(c, models.FlashError, "Could not update your profile.")
		}
		c.Redirect(http.StatusFound, "/api/account")
		return
	}

	session.AddFlash(c, models.FlashSuccess, "Profile information has been updated.")
	c.Redirect(http.StatusFound, "/api/account")
}

// UpdatePassword stores a new password for the principal.
func (h *Handlers) UpdatePassword(c *gin.Context) {
	user := middleware.GetUserFromContext(c)

	var form PasswordForm
	if err := c.ShouldBind(&form); err != nil {
		session.AddFlash(c, models.FlashError, "Password must be at least 8 characters long and both passwords must match.")
		c.Redirect(http.StatusFound, "/api/account")
		return
	}

	if err := h.service.UpdatePassword(c.Request.Context(), user.ID, form.Password); err != nil {
		h.logger.Error("Password update failed", zap.Error(err), zap.String("userID", user.ID))
		session.AddFlash(c, models.FlashError, "Could not update your password.")
		c.Redirect(http.StatusFound, "/api/account")
		return
	}

	session.AddFlash(c, models.FlashSuccess, "Password has been changed.")
	c.Redirect(http.StatusFound, "/api/account")
}

// Delete removes the account and ends the session.
func (h *Handlers) Delete(c *gin.Context) {
	user := middleware.GetUserFromContext(c)

	if err := h.repo.DeleteUser(c.Request.Context(), user.ID); err != nil {
		h.logger.Error("Account deletion failed", zap.Error(err), zap.String("userID", user.ID))
		session.AddFlash(c, models.FlashError, "Could not delete your account.")
		c.Redirect(http.StatusFound, "/api/account")
		return
	}

	if err := session.Destroy(c); err != nil {
		h.logger.Warn("Failed to destroy session", zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/")
}

// Unlink removes a provider identity and its stored token.
func (h *Handlers) Unlink(c *gin.Context) {
	user := middleware.GetUserFromContext(c)
	provider := c.Param("provider")

	if err := h.repo.DeleteUserProvider(c.Request.Context(), user.ID, provider); err != nil {
		h.logger.Error("Provider unlink failed", zap.Error(err),
			zap.String("userID", user.ID), zap.String("provider", provider))
		session.AddFlash(c, models.FlashError, "Could not unlink your "+provider+" account.")
		c.Redirect(http.StatusFound, "/api/account")
		return
	}
	if err := h.repo.DeleteProviderToken(c.Request.Context(), user.ID, provider); err != nil {
		h.logger.Warn("Provider token cleanup failed", zap.Error(err),
			zap.String("userID", user.ID), zap.String("provider", provider))
	}

	session.AddFlash(c, models.FlashInfo, provider+" account has been unlinked.")
	c.Redirect(http.StatusFound, "/api/account")
}

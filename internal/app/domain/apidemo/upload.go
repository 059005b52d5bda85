package apidemo

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wrath-m/boilerplate-express/internal/app/models"
	"github.com/wrath-m/boilerplate-express/internal/app/observability/metrics"
	"github.com/wrath-m/boilerplate-express/internal/app/session"
	"github.com/wrath-m/boilerplate-express/internal/app/view"
)

const uploadDir = "uploads"

// UploadPage renders the multipart upload form.
func (h *Handlers) UploadPage(c *gin.Context) {
	c.HTML(http.StatusOK, "upload.html", view.Data(c, "File Upload", nil))
}

// Upload accepts one multipart file. This endpoint is the CSRF exemption:
// the token cannot ride a multipart body where the validator looks for it.
func (h *Handlers) Upload(c *gin.Context) {
	file, err := c.FormFile("myFile")
	if err != nil {
		session.AddFlash(c, models.FlashError, "Please select a file to upload.")
		c.Redirect(http.StatusFound, "/api/upload")
		return
	}

	if err := os.MkdirAll(uploadDir, 0o750); err != nil {
		h.logger.Error("Failed to create upload directory", zap.Error(err))
		c.String(http.StatusInternalServerError, "upload failed")
		return
	}

	dst := filepath.Join(uploadDir, filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, dst); err != nil {
		h.logger.Error("Failed to store upload", zap.Error(err), zap.String("file", file.Filename))
		session.AddFlash(c, models.FlashError, "Could not store the uploaded file.")
		c.Redirect(http.StatusFound, "/api/upload")
		return
	}

	h.logger.Info("File uploaded",
		zap.String("file", file.Filename),
		zap.Int64("size", file.Size),
	)
	if m := metrics.Get(); m != nil {
		m.UploadsTotal.Add(c.Request.Context(), 1)
	}
	session.AddFlash(c, models.FlashSuccess, "File was uploaded successfully.")
	c.Redirect(http.StatusFound, "/api/upload")
}

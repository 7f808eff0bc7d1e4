package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"devlog/internal/constants"
	"devlog/internal/metrics"
	"devlog/internal/services"

	"github.com/gin-gonic/gin"
)

const imageCacheControl = "public, max-age=31536000, immutable"

type ImageHandler struct {
	images *services.ImageService
	logger *slog.Logger
}

func NewImageHandler(images *services.ImageService, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{images: images, logger: logger}
}

// imageSegments splits the *imagePath parameter. "/" yields no segments.
func imageSegments(param string) []string {
	param = strings.TrimPrefix(param, "/")
	if param == "" {
		return nil
	}
	return strings.Split(param, "/")
}

// Serve handles GET /api/images/*imagePath.
func (h *ImageHandler) Serve(c *gin.Context) {
	img, err := h.images.Serve(c.Request.Context(), imageSegments(c.Param("imagePath")))
	if err != nil {
		h.fail(c, err)
		return
	}
	metrics.RecordImage(metrics.ImageServed)
	c.Header("Cache-Control", imageCacheControl)
	c.Data(http.StatusOK, img.ContentType, img.Data)
}

func (h *ImageHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		metrics.RecordImage(metrics.ImageNotFound)
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
	case errors.Is(err, services.ErrForbidden):
		metrics.RecordImage(metrics.ImageForbidden)
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid image path"})
	default:
		metrics.RecordImage(metrics.ImageError)
		h.logger.Error("failed to serve image",
			"path", c.Request.URL.Path,
			"error", err,
			"request_id", c.GetString(constants.ContextKeyRequestID),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error while serving image"})
	}
}

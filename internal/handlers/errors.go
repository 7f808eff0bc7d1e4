package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"devlog/internal/constants"
	"devlog/internal/services"

	"github.com/gin-gonic/gin"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage never exposes the wrapped error text of backend failures.
func publicMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid request"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not found"
	default:
		return "internal server error"
	}
}

// respondError writes the JSON error body for err. Backend failures are logged in full.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			"path", c.Request.URL.Path,
			"error", err,
			"request_id", c.GetString(constants.ContextKeyRequestID),
		)
	}
	c.JSON(status, gin.H{"error": publicMessage(status)})
}

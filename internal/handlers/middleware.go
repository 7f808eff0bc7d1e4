package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"devlog/internal/constants"
	"devlog/internal/metrics"
	"devlog/internal/services"
	"devlog/internal/tasks"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestID reuses an incoming X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(constants.HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(constants.ContextKeyRequestID, id)
		c.Header(constants.HeaderRequestID, id)
		c.Next()
	}
}

// RequestLogger logs every request once it has been served.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", c.FullPath(),
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
			"request_id", c.GetString(constants.ContextKeyRequestID),
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			attrs = append(attrs, "error", errs)
		}
		logger.Log(c.Request.Context(), level, "request", attrs...)
	}
}

// Recovery turns a panic into a 500 and logs the value.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, err any) {
		logger.Error("handler panicked",
			"panic", err,
			"path", c.Request.URL.Path,
			"request_id", c.GetString(constants.ContextKeyRequestID),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}

func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// SidebarMiddleware puts the sidebar counts and the last database status into
// the context for page templates. A failing load is logged and the page is
// rendered without counts.
func SidebarMiddleware(sidebar *services.SidebarService, health *tasks.HealthMonitor, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.Next()
			return
		}
		if sidebar != nil {
			sb, err := sidebar.GetSidebar(c.Request.Context())
			if err != nil {
				logger.Error("failed to load sidebar", "error", err,
					"request_id", c.GetString(constants.ContextKeyRequestID))
			} else {
				c.Set(constants.ContextKeySidebar, sb)
			}
		}
		if health != nil {
			c.Set(constants.ContextKeyDBStatus, health.Status())
		}
		c.Next()
	}
}

// render is a helper function to render templates with common data.
func render(c *gin.Context, status int, templateName string, data gin.H) {
	if sb, ok := c.Get(constants.ContextKeySidebar); ok {
		data["Sidebar"] = sb
	}
	if st, ok := c.Get(constants.ContextKeyDBStatus); ok {
		data["DBStatus"] = st
	}
	data["Year"] = time.Now().Year()
	c.HTML(status, templateName, data)
}

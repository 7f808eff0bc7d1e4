package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"devlog/internal/models"
	"devlog/internal/services"
	"devlog/internal/tasks"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 5 * time.Second

type APIHandler struct {
	postService *services.PostService
	health      *tasks.HealthMonitor
	logger      *slog.Logger
}

func NewAPIHandler(postService *services.PostService, health *tasks.HealthMonitor, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		postService: postService,
		health:      health,
		logger:      logger,
	}
}

type postQuery struct {
	Slug string `form:"slug" binding:"required"`
}

type slugItem struct {
	Slug string `json:"slug"`
}

// pageParam parses ?page=, falling back to 1 for anything that is not a number.
func pageParam(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		return 1
	}
	return page
}

// ListPosts handles GET /api/posts.
func (h *APIHandler) ListPosts(c *gin.Context) {
	res, err := h.postService.GetPosts(c.Request.Context(), services.ListOptions{
		Page:     pageParam(c),
		Category: c.Query("category"),
		Tag:      c.Query("tag"),
		Sort:     c.Query("sort"),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetPost handles GET /api/post?slug=.
func (h *APIHandler) GetPost(c *gin.Context) {
	var q postQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "slug is required"})
		return
	}
	post, err := h.postService.GetPostBySlug(c.Request.Context(), q.Slug)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *APIHandler) Categories(c *gin.Context) {
	h.counts(c, h.postService.GetCategories)
}

func (h *APIHandler) Tags(c *gin.Context) {
	h.counts(c, h.postService.GetTags)
}

func (h *APIHandler) counts(c *gin.Context, load func(context.Context) ([]models.NameCount, error)) {
	counts, err := load(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (h *APIHandler) Slugs(c *gin.Context) {
	slugs, err := h.postService.GetAllSlugs(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	out := make([]slugItem, len(slugs))
	for i, s := range slugs {
		out[i] = slugItem{Slug: s}
	}
	c.JSON(http.StatusOK, out)
}

// TestDB pings the database now, independent of the scheduled checks.
func (h *APIHandler) TestDB(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	st := h.health.Check(ctx)
	if !st.Connected {
		h.logger.Error("database connection test failed", "error", st.Error)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success":   false,
			"message":   "Database connection failed",
			"timestamp": models.FormatTime(st.CheckedAt),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Database connection successful",
		"timestamp": models.FormatTime(st.CheckedAt),
	})
}

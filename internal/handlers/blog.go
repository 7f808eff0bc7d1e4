package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"devlog/internal/constants"
	"devlog/internal/services"
	"devlog/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Number of posts on the home page.
const homePostCount = 6

type BlogHandler struct {
	postService *services.PostService
	logger      *slog.Logger
}

func NewBlogHandler(postService *services.PostService, logger *slog.Logger) *BlogHandler {
	return &BlogHandler{postService: postService, logger: logger}
}

// sortPreference reads ?sort= and remembers it in the session. Without the
// parameter the remembered value is used.
func (h *BlogHandler) sortPreference(c *gin.Context) string {
	session := sessions.Default(c)
	if q, ok := c.GetQuery("sort"); ok {
		sort := services.NormalizeSort(q)
		session.Set(constants.SessionKeySort, sort)
		if err := session.Save(); err != nil {
			h.logger.Warn("failed to save session", "error", err)
		}
		return sort
	}
	if v, ok := session.Get(constants.SessionKeySort).(string); ok {
		return services.NormalizeSort(v)
	}
	return services.SortLatest
}

func (h *BlogHandler) Home(c *gin.Context) {
	res, err := h.postService.GetPosts(c.Request.Context(), services.ListOptions{Page: 1})
	if err != nil {
		h.renderError(c, err)
		return
	}
	techStack, err := h.postService.GetTags(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}

	posts := res.Posts
	if len(posts) > homePostCount {
		posts = posts[:homePostCount]
	}
	render(c, http.StatusOK, "home.html", gin.H{
		"Title":      "Home",
		"Posts":      posts,
		"TotalPosts": res.TotalPosts,
		"TechStack":  techStack,
	})
}

func (h *BlogHandler) List(c *gin.Context) {
	category := strings.TrimSpace(c.Query("category"))
	tag := strings.TrimSpace(c.Query("tag"))
	sort := h.sortPreference(c)

	res, err := h.postService.GetPosts(c.Request.Context(), services.ListOptions{
		Page:     pageParam(c),
		Category: category,
		Tag:      tag,
		Sort:     sort,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	pageURL := func(page int) string {
		q := url.Values{}
		if category != "" {
			q.Set("category", category)
		}
		if tag != "" {
			q.Set("tag", tag)
		}
		q.Set("page", strconv.Itoa(page))
		return "/blog?" + q.Encode()
	}

	title := "Blog"
	switch {
	case category != "" && tag != "":
		title = category + " · #" + tag
	case category != "":
		title = category
	case tag != "":
		title = "#" + tag
	}

	render(c, http.StatusOK, "blog.html", gin.H{
		"Title":      title,
		"Category":   category,
		"Tag":        tag,
		"Sort":       sort,
		"Page":       res,
		"Pagination": utils.GeneratePagination(res.CurrentPage, res.TotalPages, pageURL),
	})
}

func (h *BlogHandler) ShowPost(c *gin.Context) {
	post, err := h.postService.GetPostBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) || errors.Is(err, services.ErrInvalidInput) {
			h.NotFound(c)
			return
		}
		h.renderError(c, err)
		return
	}

	render(c, http.StatusOK, "post.html", gin.H{
		"Title": post.Title,
		"Post":  post,
	})
}

// NotFound answers API paths with JSON and everything else with the 404 page.
func (h *BlogHandler) NotFound(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	render(c, http.StatusNotFound, "404.html", gin.H{"Title": "Page not found"})
}

func (h *BlogHandler) renderError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("failed to render page",
			"path", c.Request.URL.Path,
			"error", err,
			"request_id", c.GetString(constants.ContextKeyRequestID),
		)
	}
	render(c, status, "error.html", gin.H{
		"Title":   "Error",
		"Status":  status,
		"Message": publicMessage(status),
	})
}

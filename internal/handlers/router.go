package handlers

import (
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"devlog/internal/assets"
	"devlog/internal/constants"
	"devlog/internal/services"
	"devlog/internal/tasks"

	"github.com/gin-contrib/multitemplate"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Static files of release builds are fingerprinted by ETag, a day is plenty.
const staticMaxAge = 24 * 60 * 60

// Dependencies is everything the router needs. Static serves files from disk;
// when StaticStore is set it takes precedence.
type Dependencies struct {
	Posts   *services.PostService
	Sidebar *services.SidebarService
	Images  *services.ImageService
	Health  *tasks.HealthMonitor
	Logger  *slog.Logger

	Templates   fs.FS
	Static      fs.FS
	StaticStore *assets.Store

	SessionSecret string
	SecureCookies bool
}

// NewRenderer parses every page together with the layout and the partials it uses.
func NewRenderer(fsys fs.FS) (multitemplate.Renderer, error) {
	r := multitemplate.NewRenderer()

	pages := []struct {
		name  string
		files []string
	}{
		{"home.html", []string{"base.html", "_sidebar.html", "_post_card.html", "home.html"}},
		{"blog.html", []string{"base.html", "_sidebar.html", "_post_card.html", "_pagination.html", "blog.html"}},
		{"post.html", []string{"base.html", "_sidebar.html", "post.html"}},
		{"404.html", []string{"base.html", "_sidebar.html", "404.html"}},
		{"error.html", []string{"base.html", "_sidebar.html", "error.html"}},
	}
	for _, p := range pages {
		tpl, err := template.ParseFS(fsys, p.files...)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", p.name, err)
		}
		r.Add(p.name, tpl)
	}
	return r, nil
}

func NewRouter(d Dependencies) (*gin.Engine, error) {
	renderer, err := NewRenderer(d.Templates)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.HTMLRender = renderer
	r.Use(RequestID(), RequestLogger(d.Logger), Recovery(d.Logger), Metrics())

	store := cookie.NewStore([]byte(d.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   d.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(constants.SessionName, store))

	switch {
	case d.StaticStore != nil:
		r.GET("/static/*filepath", d.StaticStore.Handler(staticMaxAge))
		r.HEAD("/static/*filepath", d.StaticStore.Handler(staticMaxAge))
	case d.Static != nil:
		r.StaticFS("/static", http.FS(d.Static))
	}

	blogHandler := NewBlogHandler(d.Posts, d.Logger)
	apiHandler := NewAPIHandler(d.Posts, d.Health, d.Logger)
	imageHandler := NewImageHandler(d.Images, d.Logger)
	sidebar := SidebarMiddleware(d.Sidebar, d.Health, d.Logger)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/posts", apiHandler.ListPosts)
		api.GET("/post", apiHandler.GetPost)
		api.GET("/postData", apiHandler.GetPost)
		api.GET("/categories", apiHandler.Categories)
		api.GET("/tags", apiHandler.Tags)
		api.GET("/slugs", apiHandler.Slugs)
		api.GET("/test-db", apiHandler.TestDB)
		api.GET("/images/*imagePath", imageHandler.Serve)
	}

	pages := r.Group("/", sidebar)
	{
		pages.GET("/", blogHandler.Home)
		pages.GET("/blog", blogHandler.List)
		pages.GET("/blog/:slug", blogHandler.ShowPost)
	}

	r.NoRoute(sidebar, blogHandler.NotFound)
	return r, nil
}

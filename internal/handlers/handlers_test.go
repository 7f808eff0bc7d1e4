package handlers

import (
	"encoding/json"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"devlog/internal/database"
	"devlog/internal/logging"
	"devlog/internal/repository"
	"devlog/internal/services"
	"devlog/internal/tasks"
	"devlog/internal/testutil"

	"github.com/gin-gonic/gin"
)

// projectDir finds a directory of the repository regardless of the working directory.
func projectDir(tb testing.TB, name string) fs.FS {
	tb.Helper()
	_, b, _, ok := runtime.Caller(0)
	if !ok {
		tb.Fatal("failed to get current file path")
	}
	// internal/handlers/handlers_test.go -> project root
	return os.DirFS(filepath.Join(filepath.Dir(b), "..", "..", name))
}

type testEnv struct {
	router    *gin.Engine
	fx        *testutil.Fixture
	gw        *database.Gateway
	imageRoot string
}

func newTestEnv(tb testing.TB, cfg services.PostServiceConfig) *testEnv {
	tb.Helper()
	gin.SetMode(gin.TestMode)

	gw := testutil.OpenGateway(tb)
	logger := logging.Discard()
	imageRoot := tb.TempDir()

	posts := services.NewPostService(repository.NewPostRepository(gw), cfg, logger)
	router, err := NewRouter(Dependencies{
		Posts:         posts,
		Sidebar:       services.NewSidebarService(posts, 0),
		Images:        services.NewImageService(repository.NewImageRepository(gw), imageRoot, logger),
		Health:        tasks.NewHealthMonitor(gw, "@every 1m", logger),
		Logger:        logger,
		Templates:     projectDir(tb, "templates"),
		Static:        projectDir(tb, "static"),
		SessionSecret: "test-secret-test-secret-test-secret",
	})
	if err != nil {
		tb.Fatalf("NewRouter: %v", err)
	}
	return &testEnv{router: router, fx: testutil.NewFixture(tb, gw), gw: gw, imageRoot: imageRoot}
}

func (e *testEnv) get(path string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func (e *testEnv) seedBlog() {
	e.fx.Post(testutil.PostSpec{Slug: "first", Title: "First post", Category: "Backend", Tags: []string{"go", "gin"},
		Content: "# Intro\n\nHello **world**.\n\n## Usage\n", Edited: time.Hour, Published: time.Hour})
	e.fx.Post(testutil.PostSpec{Slug: "second", Title: "Second post", Category: "Frontend", Tags: []string{"css"},
		Description: "All about grids", Edited: 2 * time.Hour, Published: 2 * time.Hour})
	e.fx.Post(testutil.PostSpec{Slug: "third", Title: "Third post", Category: "Backend", Tags: []string{"go"},
		Edited: 3 * time.Hour, Published: 3 * time.Hour})
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"devlog/internal/assets"
	"devlog/internal/config"
	"devlog/internal/database"
	"devlog/internal/handlers"
	"devlog/internal/logging"
	"devlog/internal/repository"
	"devlog/internal/services"
	"devlog/internal/tasks"

	"github.com/gin-gonic/gin"
)

// Populated by either assets_dev.go or assets_prod.go at startup.
var (
	templatesFS fs.FS
	staticFS    fs.FS
	releaseMode bool
)

const shutdownTimeout = 10 * time.Second

func main() {
	addr := flag.String("addr", "", "listen address, overrides ADDR")
	envFile := flag.String("env", ".env", "optional env file")
	unsafe := flag.Bool("unsafe", false, "allow insecure cookies")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(2)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	logger := logging.New(cfg.LogLevel, releaseMode)
	slog.SetDefault(logger)

	if err := run(cfg, logger, !*unsafe); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, secureCookies bool) error {
	if releaseMode {
		gin.SetMode(gin.ReleaseMode)
		logger.Info("running in release mode, using embedded assets")
	} else {
		logger.Info("running in debug mode, using live assets from filesystem")
	}
	if cfg.UsesDevelopmentSecret() {
		logger.Warn("SESSION_SECRET is not set, using the development key")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gw, err := database.Open(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := gw.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	postService := services.NewPostService(repository.NewPostRepository(gw), services.PostServiceConfig{
		PageSize:        cfg.PostsPerPage,
		StatusFilter:    cfg.PostStatusFilter,
		TagLookupPolicy: cfg.TagLookupPolicy,
	}, logger)
	sidebarService := services.NewSidebarService(postService, cfg.SidebarCacheTTL)
	imageService := services.NewImageService(repository.NewImageRepository(gw), cfg.ImageStoragePath, logger)

	health := tasks.NewHealthMonitor(gw, cfg.HealthCheckCron, logger)
	if err := health.Start(context.Background()); err != nil {
		return err
	}
	defer health.Stop()

	deps := handlers.Dependencies{
		Posts:         postService,
		Sidebar:       sidebarService,
		Images:        imageService,
		Health:        health,
		Logger:        logger,
		Templates:     templatesFS,
		Static:        staticFS,
		SessionSecret: cfg.SessionSecret,
		SecureCookies: secureCookies,
	}
	if releaseMode {
		store, err := assets.Load(staticFS, true)
		if err != nil {
			return err
		}
		logger.Info("static assets minified", "files", store.Len())
		deps.StaticStore = store
	}

	router, err := handlers.NewRouter(deps)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/covers"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/database/shelves"
	"github.com/mrlokans/bookshelf/internal/database/snapshots"
	"github.com/mrlokans/bookshelf/internal/database/userbooks"
	"github.com/mrlokans/bookshelf/internal/database/users"
	"github.com/mrlokans/bookshelf/internal/events"
	http_controllers "github.com/mrlokans/bookshelf/internal/http"
	"github.com/mrlokans/bookshelf/internal/library"
	"github.com/mrlokans/bookshelf/internal/scheduler"
	"github.com/mrlokans/bookshelf/internal/tasks"
	"github.com/mrlokans/bookshelf/internal/view"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// App is a fully wired server that has not started listening yet.
type App struct {
	Router  *gin.Engine
	DB      *database.Database
	Library *library.Service

	taskClient *tasks.Client
	cleanup    *scheduler.SnapshotCleanupScheduler
	cancel     context.CancelFunc
}

// Build opens storage and wires every component. Background workers are
// not started until Start.
func Build(cfg *config.Config, version string) (*App, error) {
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if _, err := db.EnsureLocalProfile(); err != nil {
		db.Close()
		return nil, err
	}

	app := &App{DB: db}

	catalogClient := catalog.NewClient(cfg.Catalog)
	snapshotRepo := snapshots.NewRepository(db.DB)

	// Cover cache is optional; without it covers redirect to the catalog.
	var coverFetcher http_controllers.CoverFetcher
	if cfg.Catalog.CoversDir != "" {
		coverCache, err := covers.NewCache(cfg.Catalog.CoversDir)
		if err != nil {
			log.Printf("WARNING: Failed to initialize cover cache: %v", err)
		} else {
			log.Printf("Cover cache initialized at %s", coverCache.CacheDir())
			coverFetcher = coverCache
		}
	}

	libraryOpts := library.Options{
		MaxOwners: cfg.Cache.MaxOwners,
		Snapshots: snapshotRepo,
	}

	if cfg.Tasks.Enabled {
		app.taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.ConfigFrom(cfg.Tasks))
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize task queue: %w", err)
		}
		app.taskClient.Register(
			tasks.NewSnapshotBookQueue(catalogClient, snapshotRepo),
			tasks.NewCleanupSnapshotsQueue(snapshotRepo),
		)
		libraryOpts.Scheduler = app.taskClient

		if cfg.Snapshots.CleanupEnabled {
			app.cleanup = scheduler.NewSnapshotCleanupScheduler(app.taskClient, cfg.Snapshots.CleanupSchedule)
		}
	} else {
		log.Printf("Task queue disabled: shelf pages will show placeholders for books without snapshots")
	}

	app.Library, err = library.NewService(
		shelves.NewRepository(db.DB),
		userbooks.NewRepository(db.DB),
		events.NewBus(),
		libraryOpts,
	)
	if err != nil {
		app.Close()
		return nil, err
	}

	tracker, err := view.NewSearchTracker(cfg.Cache.MaxSearchSessions)
	if err != nil {
		app.Close()
		return nil, err
	}

	routerCfg := http_controllers.RouterConfig{
		Database:      db,
		Library:       app.Library,
		Catalog:       catalogClient,
		Covers:        coverFetcher,
		Profiles:      users.NewRepository(db.DB),
		SearchTracker: tracker,
		TemplatesPath: cfg.UI.TemplatesPath,
		StaticPath:    cfg.UI.StaticPath,
		Version:       version,
		AuthConfig:    cfg.Auth,
		SecureCookies: cfg.Auth.SecureCookies,
	}

	// Sessions back last-query-wins search tracking in both auth modes.
	sqlDB, err := db.DB.DB()
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to get SQL DB for sessions: %w", err)
	}
	routerCfg.SessionManager, err = auth.NewSessionManager(sqlDB, cfg.Auth)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize session manager: %w", err)
	}

	if cfg.Auth.Mode == config.AuthModeLocal {
		log.Printf("Authentication mode: local")

		authService := auth.NewService(db.DB, cfg.Auth)
		routerCfg.AuthService = authService
		routerCfg.AuthMiddleware = auth.NewMiddleware(authService, routerCfg.SessionManager, cfg.Auth)

		routerCfg.CSRFSecret, err = csrfSecret(cfg.Auth.SessionSecret)
		if err != nil {
			app.Close()
			return nil, err
		}

		if hasUsers, _ := authService.HasUsers(); !hasUsers {
			log.Printf("No users found. Visit /setup to create an administrator account.")
		}
	} else {
		log.Printf("Authentication mode: none (no authentication required)")
	}

	app.Router = http_controllers.NewRouter(routerCfg)
	return app, nil
}

// csrfSecret decodes a hex secret, uses a non-hex one as raw bytes, and
// generates one when none is configured.
func csrfSecret(configured string) ([]byte, error) {
	if configured != "" {
		if secret, err := hex.DecodeString(configured); err == nil {
			return secret, nil
		}
		return []byte(configured), nil
	}

	secret, err := auth.GenerateSessionSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSRF secret: %w", err)
	}
	log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist)")
	return hex.DecodeString(secret)
}

// Start launches the task workers and the cleanup schedule.
func (a *App) Start() {
	if a.taskClient == nil {
		return
	}
	var ctx context.Context
	ctx, a.cancel = context.WithCancel(context.Background())
	go a.taskClient.Start(ctx)

	if a.cleanup != nil {
		if err := a.cleanup.Start(ctx); err != nil {
			log.Printf("Snapshot cleanup scheduler not started: %v", err)
		}
	}
}

// Shutdown stops background work, waiting for running tasks until ctx ends.
func (a *App) Shutdown(ctx context.Context) {
	if a.cleanup != nil {
		a.cleanup.Stop()
	}
	if a.taskClient != nil && a.cancel != nil {
		a.taskClient.Stop(ctx)
		a.cancel()
	}
}

func (a *App) Close() {
	if a.taskClient != nil {
		if err := a.taskClient.Close(); err != nil {
			log.Printf("Error closing task client: %v", err)
		}
	}
	if err := a.DB.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop the queue first so no task writes after the server is gone.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Bookshelf v%s", version)

	app, err := Build(cfg, version)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	app.Start()
	Serve(app.Router, cfg, app.Shutdown)
}

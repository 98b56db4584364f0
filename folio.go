// Package folio is the content service behind a personal portfolio site.
// It stores the owner's profile, work history, skills, projects and blog
// posts, serves them through a read-only JSON API, accepts rate-limited
// contact messages, and exposes a session-protected admin API for editing.
package folio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	glog "github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"

	"github.com/eringen/folio/blob"
	"github.com/eringen/folio/ratelimit"
)

// App is the central folio application. It wires together the store,
// cache, blob storage, limiters, handlers and middleware.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Store  *Store
	Cache  *ContentCache
	Blobs  blob.Store

	contactLimiter *ratelimit.Limiter
	loginLimiter   *ratelimit.Limiter
	memCounter     *ratelimit.MemoryCounter
	redis          *redis.Client
	customRoutes   []func(*App)
	ownsStore      bool
	ready          bool
}

// New creates a new folio App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Setup opens the store and the limiter backends and registers middleware
// and routes. Start calls it; tests call it directly and drive a.Echo.
func (a *App) Setup() error {
	if a.ready {
		return nil
	}
	if a.Config.AdminPassword == "" {
		return fmt.Errorf("folio: AdminPassword is required")
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("folio: SessionSecret is required")
	}

	if a.Config.Debug {
		a.Echo.Debug = true
		a.Echo.Logger.SetLevel(glog.DEBUG)
	} else {
		a.Echo.Logger.SetLevel(glog.INFO)
	}

	if a.Store == nil {
		store, err := NewStore(a.Config.DatabasePath)
		if err != nil {
			return fmt.Errorf("folio: init store: %w", err)
		}
		a.Store = store
		a.ownsStore = true
	}

	a.Cache = NewContentCache(a.Store, a.Config.ContentCacheTTL)

	if a.Blobs == nil {
		blobs, err := blob.NewFSStore(a.Config.MediaDir, a.Config.URL)
		if err != nil {
			return fmt.Errorf("folio: init media: %w", err)
		}
		a.Blobs = blobs
	}

	a.memCounter = ratelimit.NewMemoryCounter()
	var contactCounter ratelimit.Counter = a.memCounter
	if a.Config.RedisURL != "" {
		opts, err := redis.ParseURL(a.Config.RedisURL)
		if err != nil {
			return fmt.Errorf("folio: parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			rdb.Close()
			return fmt.Errorf("folio: redis ping: %w", err)
		}
		a.redis = rdb
		contactCounter = ratelimit.NewRedisCounter(rdb, ratelimit.WithPrefix("folio:ratelimit"))
	}
	a.contactLimiter = ratelimit.New(contactCounter, a.Config.ContactMaxAttempts, a.Config.ContactWindow)
	a.loginLimiter = ratelimit.New(a.memCounter, a.Config.LoginMaxAttempts, a.Config.LoginWindow)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}

	a.ready = true
	return nil
}

// Start sets the app up and serves until ctx is cancelled, then shuts the
// server down gracefully.
func (a *App) Start(ctx context.Context) error {
	if err := a.Setup(); err != nil {
		return err
	}
	a.memCounter.StartJanitor(ctx, time.Minute)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Echo.Shutdown(shutdownCtx); err != nil {
			a.Echo.Logger.Errorf("shutdown: %v", err)
		}
	}()

	a.Echo.Logger.Infof("folio listening on %s (debug=%v, redis=%v)", a.Config.Addr, a.Config.Debug, a.redis != nil)
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Public JSON API
	api := e.Group("/api", a.readThrottle())
	api.GET("/health", a.handleHealth)
	api.GET("/about", a.handleAbout)
	api.GET("/experience", a.handleExperience)
	api.GET("/skills", a.handleSkills)
	api.GET("/projects", a.handleProjects)
	api.GET("/posts", a.handlePosts)
	api.GET("/posts/:slug", a.handlePost)
	api.POST("/contact", a.handleContact)

	// Feeds and media
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/media/:key", a.handleMedia)

	// Admin API
	admin := e.Group("/admin/api")
	admin.GET("/session", a.handleAdminSession)
	admin.POST("/login", a.handleAdminLogin)
	admin.POST("/logout", handleAdminLogout)

	authed := admin.Group("", requireAdmin)
	authed.GET("/about", a.handleAdminGetAbout)
	authed.POST("/about", a.handleAdminCreateAbout)
	authed.PUT("/about", a.handleAdminUpdateAbout)

	a.mountAdminResources(authed)

	authed.GET("/messages", a.handleAdminListMessages)
	authed.POST("/messages/:id/read", a.handleAdminMarkMessageRead)
	authed.DELETE("/messages/:id", a.handleAdminDeleteMessage)

	authed.POST("/:entity/:id/media/:field", a.handleMediaUpload)
	authed.DELETE("/:entity/:id/media/:field", a.handleMediaClear)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.Store != nil && a.ownsStore {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("folio: required environment variable %s is not set", key)
	}
	return v
}

package folio

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/eringen/folio/blob"
)

// SiteConfig holds all configuration for a folio site.
type SiteConfig struct {
	Name string // Site name used in the feed (default "Portfolio")
	URL  string // Public base URL (default "http://localhost:3000")

	Addr         string // Listen address (default ":3000")
	DatabasePath string // SQLite path (default "data/folio.db")
	MediaDir     string // Uploaded media directory (default "data/media")

	AdminPassword string // Required: admin login password
	SessionSecret string // Required: session encryption secret
	CookieSecure  bool   // Set true for HTTPS

	Debug          bool     // Expose persistence error details in responses
	AllowedOrigins []string // CORS origins allowed to call the API

	RedisURL           string        // Optional: share contact limits through Redis
	ContactMaxAttempts int           // Contact submissions per window (default 3)
	ContactWindow      time.Duration // Contact window (default 1h)
	LoginMaxAttempts   int           // Admin login attempts per window (default 5)
	LoginWindow        time.Duration // Admin login window (default 1m)

	ReadRPS   float64 // Per-IP read throttle on the public API (default 10, negative disables)
	ReadBurst int     // Burst for the read throttle (default 30)

	ContentCacheTTL time.Duration // Public list cache TTL (default 5min)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Portfolio"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimRight(c.URL, "/")
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/folio.db"
	}
	if c.MediaDir == "" {
		c.MediaDir = "data/media"
	}
	if c.ContactMaxAttempts == 0 {
		c.ContactMaxAttempts = 3
	}
	if c.ContactWindow == 0 {
		c.ContactWindow = time.Hour
	}
	if c.LoginMaxAttempts == 0 {
		c.LoginMaxAttempts = 5
	}
	if c.LoginWindow == 0 {
		c.LoginWindow = time.Minute
	}
	if c.ReadRPS == 0 {
		c.ReadRPS = 10
	}
	if c.ReadBurst == 0 {
		c.ReadBurst = 30
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{c.URL}
	}
	if c.ContentCacheTTL == 0 {
		c.ContentCacheTTL = 5 * time.Minute
	}
}

// ConfigFromEnv builds a SiteConfig from FOLIO_* environment variables.
// Unset values fall back to the defaults applied by New.
func ConfigFromEnv() SiteConfig {
	origins := FilterEmpty(strings.Split(os.Getenv("FOLIO_ALLOWED_ORIGINS"), ","))
	if front := os.Getenv("FRONTEND_URL"); front != "" {
		origins = append([]string{front}, origins...)
	}
	return SiteConfig{
		Name:               os.Getenv("FOLIO_NAME"),
		URL:                os.Getenv("FOLIO_URL"),
		Addr:               os.Getenv("FOLIO_ADDR"),
		DatabasePath:       os.Getenv("FOLIO_DATABASE_PATH"),
		MediaDir:           os.Getenv("FOLIO_MEDIA_DIR"),
		AdminPassword:      os.Getenv("FOLIO_ADMIN_PASSWORD"),
		SessionSecret:      os.Getenv("FOLIO_SESSION_SECRET"),
		CookieSecure:       envBool("FOLIO_COOKIE_SECURE", false),
		Debug:              envBool("APP_DEBUG", false),
		AllowedOrigins:     origins,
		RedisURL:           os.Getenv("FOLIO_REDIS_URL"),
		ContactMaxAttempts: envInt("FOLIO_CONTACT_MAX_ATTEMPTS", 0),
		ContactWindow:      envDuration("FOLIO_CONTACT_WINDOW", 0),
		ReadRPS:            envFloat("FOLIO_READ_RPS", 0),
		ReadBurst:          envInt("FOLIO_READ_BURST", 0),
		ContentCacheTTL:    envDuration("FOLIO_CACHE_TTL", 0),
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStore makes the App use an already opened Store instead of opening
// Config.DatabasePath.
func WithStore(s *Store) Option {
	return func(a *App) {
		a.Store = s
	}
}

// WithBlobStore replaces the filesystem media store rooted at Config.MediaDir.
func WithBlobStore(b blob.Store) Option {
	return func(a *App) {
		a.Blobs = b
	}
}

func envBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

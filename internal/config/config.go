package config

import (
	"time"

	"github.com/spf13/viper"
)

type AuthMode string

const (
	AuthModeNone  AuthMode = "none"  // Single user, no login (default)
	AuthModeLocal AuthMode = "local" // Local accounts with sessions
)

type (
	Config struct {
		HTTP
		Global
		Database
		UI
		Catalog
		Cache
		Tasks
		Snapshots
		Auth
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	UI struct {
		TemplatesPath string
		StaticPath    string
	}
	Catalog struct {
		BaseURL       string
		APIKey        string
		MaxResults    int
		Timeout       time.Duration
		RatePerSecond float64
		RateBurst     int
		CoversDir     string // Empty disables the cover cache
	}
	Cache struct {
		MaxOwners         int // Per-owner query caches kept in memory
		MaxSearchSessions int // Sessions tracked for last-query-wins
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Snapshots struct {
		CleanupEnabled  bool
		CleanupSchedule string // Cron format: "0 3 * * *" = daily at 03:00
	}
	Auth struct {
		Mode            AuthMode
		SessionSecret   string
		SessionLifetime time.Duration
		TokenExpiry     time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS

		MaxLoginAttempts int
		RateLimitWindow  time.Duration
		LockoutDuration  time.Duration
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8190)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("templates_path", "./templates")
	v.SetDefault("static_path", "./static")

	// Catalog defaults
	v.SetDefault("catalog_base_url", DefaultCatalogBaseURL)
	v.SetDefault("catalog_api_key", "")
	v.SetDefault("catalog_max_results", 20)
	v.SetDefault("catalog_timeout", "10s")
	v.SetDefault("catalog_rate_per_second", 5)
	v.SetDefault("catalog_rate_burst", 10)
	v.SetDefault("covers_dir", "./covers")

	// Synchronization cache defaults
	v.SetDefault("cache_max_owners", 256)
	v.SetDefault("search_max_sessions", 1024)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("snapshot_cleanup_enabled", true)
	v.SetDefault("snapshot_cleanup_schedule", "0 3 * * *")

	// Auth defaults
	v.SetDefault("auth_mode", "none")
	v.SetDefault("auth_session_secret", "") // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h")
	v.SetDefault("auth_token_expiry", "720h") // 30 days
	v.SetDefault("auth_bcrypt_cost", 12)
	v.SetDefault("auth_secure_cookies", true)
	v.SetDefault("auth_max_login_attempts", 5)
	v.SetDefault("auth_rate_limit_window", "15m")
	v.SetDefault("auth_lockout_duration", "30m")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		UI: UI{
			TemplatesPath: v.GetString("TEMPLATES_PATH"),
			StaticPath:    v.GetString("STATIC_PATH"),
		},
		Catalog: Catalog{
			BaseURL:       v.GetString("CATALOG_BASE_URL"),
			APIKey:        v.GetString("CATALOG_API_KEY"),
			MaxResults:    v.GetInt("CATALOG_MAX_RESULTS"),
			Timeout:       v.GetDuration("CATALOG_TIMEOUT"),
			RatePerSecond: v.GetFloat64("CATALOG_RATE_PER_SECOND"),
			RateBurst:     v.GetInt("CATALOG_RATE_BURST"),
			CoversDir:     v.GetString("COVERS_DIR"),
		},
		Cache: Cache{
			MaxOwners:         v.GetInt("CACHE_MAX_OWNERS"),
			MaxSearchSessions: v.GetInt("SEARCH_MAX_SESSIONS"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Snapshots: Snapshots{
			CleanupEnabled:  v.GetBool("SNAPSHOT_CLEANUP_ENABLED"),
			CleanupSchedule: v.GetString("SNAPSHOT_CLEANUP_SCHEDULE"),
		},
		Auth: Auth{
			Mode:             AuthMode(v.GetString("AUTH_MODE")),
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			TokenExpiry:      v.GetDuration("AUTH_TOKEN_EXPIRY"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
	}
}

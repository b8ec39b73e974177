package tasks

import (
	"time"

	"github.com/mrlokans/bookshelf/internal/config"
)

// Config holds configuration for the task queue.
type Config struct {
	// Workers is the number of concurrent task workers. Default: 2
	Workers int

	// ReleaseAfter is when stuck tasks are released back to queue. Default: 15m
	ReleaseAfter time.Duration

	// CleanupInterval is how often completed tasks are purged. Default: 1h
	CleanupInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Workers:         2,
		ReleaseAfter:    15 * time.Minute,
		CleanupInterval: time.Hour,
	}
}

// ConfigFrom applies application settings over the defaults.
func ConfigFrom(settings config.Tasks) Config {
	cfg := DefaultConfig()
	if settings.Workers > 0 {
		cfg.Workers = settings.Workers
	}
	if settings.ReleaseAfter > 0 {
		cfg.ReleaseAfter = settings.ReleaseAfter
	}
	if settings.CleanupInterval > 0 {
		cfg.CleanupInterval = settings.CleanupInterval
	}
	return cfg
}

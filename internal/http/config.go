package http

import (
	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/library"
	"github.com/mrlokans/bookshelf/internal/view"
)

// RouterConfig carries everything NewRouter wires together.
type RouterConfig struct {
	Database *database.Database
	Library  *library.Service
	Catalog  CatalogClient
	Covers   CoverFetcher
	Profiles ProfileStore

	// Optional; NewRouter creates defaults.
	SearchTracker *view.SearchTracker
	Pending       *view.PendingGuard

	TemplatesPath string
	StaticPath    string
	Version       string

	AuthConfig     config.Auth
	AuthService    *auth.Service
	AuthMiddleware *auth.Middleware
	SessionManager *auth.SessionManager
	CSRFSecret     []byte
	SecureCookies  bool
}

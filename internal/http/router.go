package http

import (
	"html/template"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/view"
)

// TemplateFuncs are available to every page and fragment template.
var TemplateFuncs = template.FuncMap{
	"statusLabel": view.StatusLabel,
	"csrfHeader": func(token string) template.HTMLAttr {
		if token == "" {
			return ""
		}
		return template.HTMLAttr(`hx-headers='{"` + auth.CSRFTokenHeader + `": "` + template.JSEscapeString(token) + `"}'`)
	},
}

// LoadTemplates parses every *.html directly under dir.
func LoadTemplates(dir string) (*template.Template, error) {
	return template.New("").Funcs(TemplateFuncs).ParseGlob(filepath.Join(dir, "*.html"))
}

// NewRouter builds the gin engine. Middleware order matters: CSRF replaces
// the request, so the session is loaded after it and auth after the session.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(accessLogger())
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware())
	}

	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, cfg.AuthService))
	}
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	} else {
		router.Use(func(c *gin.Context) {
			c.Set(auth.ContextKeyUserID, auth.DefaultUserID)
			c.Set(auth.ContextKeyAuthType, auth.AuthTypeNone)
			c.Next()
		})
	}
	router.Use(AuthContextMiddleware(cfg.AuthConfig.Mode))

	router.SetHTMLTemplate(template.Must(LoadTemplates(cfg.TemplatesPath)))
	if cfg.StaticPath != "" {
		router.Static("/static", cfg.StaticPath)
	}

	tracker := cfg.SearchTracker
	if tracker == nil {
		tracker, _ = view.NewSearchTracker(0)
	}
	pending := cfg.Pending
	if pending == nil {
		pending = view.NewPendingGuard()
	}

	var owners OwnerCounter
	if cfg.Library != nil {
		owners = cfg.Library
	}
	health := NewHealthController(cfg.Database, owners, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	if cfg.AuthService != nil && cfg.AuthService.IsAuthEnabled() {
		authController := auth.NewAuthController(cfg.AuthService, cfg.SessionManager, cfg.TemplatesPath, cfg.AuthConfig)
		if cfg.Library != nil {
			authController.OnLogout(cfg.Library.EndSession)
		}
		authController.RegisterRoutes(router)

		tokenController := auth.NewAPITokenController(cfg.AuthService)
		router.POST("/api/auth/token", tokenController.GenerateToken)
		router.DELETE("/api/auth/token", tokenController.RevokeToken)
	}

	catalogController := NewCatalogController(cfg.Catalog, cfg.Covers, tracker, cfg.SessionManager)
	uiController := NewUIController(cfg.Catalog, cfg.Library, pending)
	shelvesController := NewShelvesController(cfg.Library, pending)
	userBooksController := NewUserBooksController(cfg.Library, pending)

	// UI
	router.GET("/", uiController.IndexPage)
	router.GET("/ui/search", catalogController.Search)
	router.GET("/ui/books/:bookId", uiController.BookDetail)
	router.POST("/ui/books/:bookId/status/toggle", uiController.ToggleStatus)
	router.GET("/ui/books/:bookId/note", uiController.NoteSection)
	router.GET("/ui/books/:bookId/note/edit", uiController.NoteEditor)
	router.POST("/ui/books/:bookId/note", uiController.SaveNote)
	router.POST("/ui/books/:bookId/shelves", uiController.AddToShelf)

	router.GET("/shelves", shelvesController.ShelvesPage)
	router.POST("/shelves", shelvesController.CreateFromForm)
	router.GET("/shelves/:id", shelvesController.ShelfPage)
	router.POST("/shelves/:id/delete", shelvesController.DeleteFromForm)
	router.POST("/shelves/:id/books/:bookId/remove", shelvesController.RemoveFromForm)

	// Catalog API
	router.GET("/api/catalog/search", catalogController.Search)
	router.GET("/api/catalog/:bookId", catalogController.GetBook)
	router.GET("/api/catalog/:bookId/cover", catalogController.GetCover)

	// Shelves API
	router.GET("/api/shelves", shelvesController.List)
	router.POST("/api/shelves", shelvesController.Create)
	router.PATCH("/api/shelves/:id", shelvesController.Rename)
	router.DELETE("/api/shelves/:id", shelvesController.Delete)
	router.GET("/api/shelves/:id/books", shelvesController.ListBooks)
	router.POST("/api/shelves/:id/books", shelvesController.AddBook)
	router.DELETE("/api/shelves/:id/books/:bookId", shelvesController.RemoveBook)

	// Reading state API
	router.GET("/api/books", userBooksController.List)
	router.GET("/api/books/stats", userBooksController.Stats)
	router.GET("/api/books/:bookId/state", userBooksController.GetState)
	router.PUT("/api/books/:bookId/status", userBooksController.SetStatus)
	router.PUT("/api/books/:bookId/note", userBooksController.SetNote)
	router.PUT("/api/books/:bookId/rating", userBooksController.SetRating)
	router.PUT("/api/books/:bookId/dates", userBooksController.SetDates)

	if cfg.Profiles != nil {
		profileController := NewProfileController(cfg.Profiles, cfg.Library, cfg.AuthService)
		router.GET("/profile", profileController.ProfilePage)
		router.POST("/profile", profileController.UpdateProfile)
		router.GET("/api/profile", profileController.GetProfile)
		router.PATCH("/api/profile", profileController.UpdateProfile)
		if cfg.AuthService != nil && cfg.AuthService.IsAuthEnabled() {
			router.POST("/profile/password", profileController.ChangePassword)
			router.POST("/profile/token", profileController.GenerateToken)
			router.POST("/profile/token/revoke", profileController.RevokeToken)
		}
	}

	return router
}

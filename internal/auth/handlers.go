package auth

import (
	"errors"
	"html/template"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/entities"
)

// setupMutex serializes first-account creation so two concurrent posts
// cannot both see an empty database.
var setupMutex sync.Mutex

// sanitizeRedirectPath keeps post-login redirects on this host.
func sanitizeRedirectPath(path string) string {
	switch {
	case path == "",
		!strings.HasPrefix(path, "/"),
		strings.HasPrefix(path, "//"),
		strings.Contains(path, "://"),
		strings.Contains(path, "\\"):
		return "/"
	}
	return path
}

// AuthController serves login, logout and first-run setup.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	templates      *template.Template
	rateLimiter    *RateLimiter
	onLogout       func(profileID uint)
}

// NewAuthController parses templates/auth/*.html. Missing templates are not
// fatal; responses fall back to JSON.
func NewAuthController(service *Service, sessionManager *SessionManager, templatesPath string, cfg config.Auth) *AuthController {
	tmpl, err := template.ParseGlob(filepath.Join(templatesPath, "auth", "*.html"))
	if err != nil {
		log.Printf("[AUTH] Auth templates not loaded: %v", err)
		tmpl = nil
	}

	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		templates:      tmpl,
		rateLimiter: NewRateLimiter(RateLimitConfig{
			MaxAttempts:     cfg.MaxLoginAttempts,
			WindowDuration:  cfg.RateLimitWindow,
			LockoutDuration: cfg.LockoutDuration,
		}),
	}
}

// OnLogout registers a hook that runs after a profile's session is destroyed.
func (ac *AuthController) OnLogout(fn func(profileID uint)) {
	ac.onLogout = fn
}

func (ac *AuthController) RegisterRoutes(router gin.IRouter) {
	router.GET("/login", ac.LoginPage)
	router.POST("/login", ac.Login)
	router.POST("/logout", ac.Logout)
	router.GET("/logout", ac.Logout)
	router.GET("/setup", ac.SetupPage)
	router.POST("/setup", ac.Setup)
}

// GET /login
func (ac *AuthController) LoginPage(c *gin.Context) {
	if ac.sessionManager != nil && ac.sessionManager.IsAuthenticated(c.Request) {
		c.Redirect(http.StatusFound, "/")
		return
	}

	hasUsers, _ := ac.service.HasUsers()
	if !hasUsers {
		c.Redirect(http.StatusFound, "/setup")
		return
	}

	ac.render(c, http.StatusOK, "login.html", gin.H{
		"Title":     "Login",
		"Next":      sanitizeRedirectPath(c.Query("next")),
		"CSRFToken": GetCSRFToken(c),
		"Error":     c.Query("error"),
	})
}

// POST /login
func (ac *AuthController) Login(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	next := sanitizeRedirectPath(c.PostForm("next"))
	clientIP := c.ClientIP()

	data := gin.H{
		"Title":     "Login",
		"Next":      next,
		"Username":  username,
		"CSRFToken": GetCSRFToken(c),
	}

	if allowed, retryAfter := ac.rateLimiter.Allow(clientIP, username); !allowed {
		c.Header("Retry-After", retryAfter.Round(time.Second).String())
		data["Error"] = "Too many login attempts. Please try again later."
		ac.render(c, http.StatusTooManyRequests, "login.html", data)
		return
	}

	profile, err := ac.service.Authenticate(username, password)
	if err != nil {
		ac.rateLimiter.RecordFailure(clientIP, username)
		data["Error"] = "Invalid username or password"
		if errors.Is(err, ErrAccountLocked) {
			data["Error"] = "Account is locked. Please try again later."
		}
		ac.render(c, http.StatusUnauthorized, "login.html", data)
		return
	}
	ac.rateLimiter.RecordSuccess(clientIP, username)

	if ac.sessionManager != nil {
		if err := ac.sessionManager.CreateSession(c.Request, profile); err != nil {
			log.Printf("[AUTH] Failed to create session for %s: %v", profile.Username, err)
			data["Error"] = "Failed to create session"
			ac.render(c, http.StatusInternalServerError, "login.html", data)
			return
		}
	}

	log.Printf("[AUTH] %s logged in", profile.Username)
	c.Redirect(http.StatusFound, next)
}

// POST /logout
func (ac *AuthController) Logout(c *gin.Context) {
	var profileID uint
	if ac.sessionManager != nil {
		profileID = ac.sessionManager.GetUserID(c.Request)
		_ = ac.sessionManager.DestroySession(c.Request)
	}
	if profileID != 0 && ac.onLogout != nil {
		ac.onLogout(profileID)
	}
	c.Redirect(http.StatusFound, "/login")
}

// GET /setup
func (ac *AuthController) SetupPage(c *gin.Context) {
	data := gin.H{
		"Title":     "Initial Setup",
		"CSRFToken": GetCSRFToken(c),
		"Error":     c.Query("error"),
	}

	hasUsers, err := ac.service.HasUsers()
	if err != nil {
		data["Error"] = "Database error. Please try again."
		ac.render(c, http.StatusInternalServerError, "setup.html", data)
		return
	}
	if hasUsers {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	ac.render(c, http.StatusOK, "setup.html", data)
}

// POST /setup creates the first admin account and signs it in.
func (ac *AuthController) Setup(c *gin.Context) {
	setupMutex.Lock()
	defer setupMutex.Unlock()

	username := c.PostForm("username")
	email := c.PostForm("email")
	data := gin.H{
		"Title":     "Initial Setup",
		"Username":  username,
		"Email":     email,
		"CSRFToken": GetCSRFToken(c),
	}

	hasUsers, err := ac.service.HasUsers()
	if err != nil {
		data["Error"] = "Database error. Please try again."
		ac.render(c, http.StatusInternalServerError, "setup.html", data)
		return
	}
	if hasUsers {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	password := c.PostForm("password")
	if password != c.PostForm("confirm_password") {
		data["Error"] = "Passwords do not match"
		ac.render(c, http.StatusBadRequest, "setup.html", data)
		return
	}

	profile, err := ac.service.CreateProfile(username, email, password, entities.UserRoleAdmin)
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			c.Redirect(http.StatusFound, "/login")
			return
		}
		data["Error"] = setupErrorMessage(err)
		ac.render(c, http.StatusBadRequest, "setup.html", data)
		return
	}

	if ac.sessionManager != nil {
		_ = ac.sessionManager.CreateSession(c.Request, profile)
	}
	log.Printf("[AUTH] Created admin account %s", profile.Username)
	c.Redirect(http.StatusFound, "/")
}

func setupErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrPasswordTooShort):
		return "Password must be at least 12 characters"
	case errors.Is(err, ErrPasswordTooLong):
		return "Password exceeds maximum length of 72 characters"
	case errors.Is(err, ErrUsernameRequired):
		return "Username is required"
	case errors.Is(err, ErrUsernameInvalid):
		return "Username must be 3-64 characters, alphanumeric with underscore/hyphen only"
	case errors.Is(err, ErrEmailRequired):
		return "Email is required"
	case errors.Is(err, ErrEmailInvalid):
		return "Invalid email format"
	}
	return "Failed to create account"
}

func (ac *AuthController) render(c *gin.Context, status int, name string, data gin.H) {
	if ac.templates == nil {
		c.JSON(status, data)
		return
	}

	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := ac.templates.ExecuteTemplate(c.Writer, name, data); err != nil {
		log.Printf("[AUTH] Template %s failed: %v", name, err)
	}
}

// APITokenController lets a signed-in profile mint and revoke its bearer token.
type APITokenController struct {
	service *Service
}

func NewAPITokenController(service *Service) *APITokenController {
	return &APITokenController{service: service}
}

// POST /api/auth/token
func (tc *APITokenController) GenerateToken(c *gin.Context) {
	userID := GetUserID(c)
	if userID == anonymousUserID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	token, err := tc.service.GenerateToken(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"message": "Store this token securely - it will not be shown again",
	})
}

// DELETE /api/auth/token
func (tc *APITokenController) RevokeToken(c *gin.Context) {
	userID := GetUserID(c)
	if userID == anonymousUserID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	if err := tc.service.RevokeToken(userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "token revoked"})
}

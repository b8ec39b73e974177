package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/entities"
)

const (
	ContextKeyUserID   = "auth_user_id"
	ContextKeyUsername = "auth_username"
	ContextKeyRole     = "auth_role"
	ContextKeyAuthType = "auth_type"
)

type AuthType string

const (
	AuthTypeNone    AuthType = "none"
	AuthTypeSession AuthType = "session"
	AuthTypeBearer  AuthType = "bearer"
)

// DefaultUserID is the local profile every request acts as when auth is
// disabled.
const DefaultUserID = uint(1)

// anonymousUserID marks a request on a public path in local auth mode.
const anonymousUserID = uint(0)

type Middleware struct {
	service        *Service
	sessionManager *SessionManager
	config         config.Auth
	publicPaths    map[string]bool
}

func NewMiddleware(service *Service, sessionManager *SessionManager, cfg config.Auth) *Middleware {
	return &Middleware{
		service:        service,
		sessionManager: sessionManager,
		config:         cfg,
		publicPaths: map[string]bool{
			"/health":      true,
			"/ping":        true,
			"/login":       true,
			"/setup":       true,
			"/favicon.ico": true,
		},
	}
}

func (m *Middleware) Handler() gin.HandlerFunc {
	if m.config.Mode != config.AuthModeLocal {
		return m.noAuthHandler()
	}
	return m.authHandler()
}

func (m *Middleware) noAuthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKeyUserID, DefaultUserID)
		c.Set(ContextKeyRole, entities.UserRoleAdmin)
		c.Set(ContextKeyAuthType, AuthTypeNone)
		c.Next()
	}
}

func (m *Middleware) authHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.isPublicPath(c.Request.URL.Path) {
			c.Set(ContextKeyUserID, anonymousUserID)
			c.Set(ContextKeyAuthType, AuthTypeNone)
			c.Next()
			return
		}

		if profile := m.tryBearerAuth(c); profile != nil {
			m.setUserContext(c, profile, AuthTypeBearer)
			c.Next()
			return
		}

		if profile := m.trySessionAuth(c); profile != nil {
			m.setUserContext(c, profile, AuthTypeSession)
			c.Next()
			return
		}

		m.reject(c)
	}
}

func (m *Middleware) reject(c *gin.Context) {
	if m.isAPIRequest(c) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "authentication required",
		})
		return
	}
	if c.GetHeader("HX-Request") == "true" {
		c.Header("HX-Redirect", "/login")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
	c.Abort()
}

func (m *Middleware) tryBearerAuth(c *gin.Context) *entities.Profile {
	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return nil
	}

	profile, err := m.service.ValidateToken(strings.TrimSpace(token))
	if err != nil {
		return nil
	}
	return profile
}

func (m *Middleware) trySessionAuth(c *gin.Context) *entities.Profile {
	if m.sessionManager == nil {
		return nil
	}

	userID := m.sessionManager.GetUserID(c.Request)
	if userID == 0 {
		return nil
	}

	profile, err := m.service.GetProfile(userID)
	if err != nil {
		return nil
	}
	return profile
}

func (m *Middleware) setUserContext(c *gin.Context, profile *entities.Profile, authType AuthType) {
	c.Set(ContextKeyUserID, profile.ID)
	c.Set(ContextKeyUsername, profile.Username)
	c.Set(ContextKeyRole, profile.Role)
	c.Set(ContextKeyAuthType, authType)
}

func (m *Middleware) isPublicPath(path string) bool {
	return m.publicPaths[path] || strings.HasPrefix(path, "/static/")
}

// isAPIRequest separates JSON clients from browsers so the former get a 401
// instead of a redirect.
func (m *Middleware) isAPIRequest(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		return true
	}
	return c.GetHeader("Authorization") != ""
}

// RequireAuth guards routes that are public in the default list but still
// need a signed-in profile.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.config.Mode == config.AuthModeLocal && GetUserID(c) == anonymousUserID {
			m.reject(c)
			return
		}
		c.Next()
	}
}

func (m *Middleware) RequireRole(roles ...entities.UserRole) gin.HandlerFunc {
	allowed := make(map[entities.UserRole]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		if m.config.Mode != config.AuthModeLocal {
			c.Next()
			return
		}
		if !allowed[GetUserRole(c)] {
			if m.isAPIRequest(c) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error": "insufficient permissions",
				})
			} else {
				c.AbortWithStatus(http.StatusForbidden)
			}
			return
		}
		c.Next()
	}
}

// GetUserID returns the acting profile. It is DefaultUserID when the
// middleware did not run, which only happens in tests and auth-less setups.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return DefaultUserID
}

func GetUsername(c *gin.Context) string {
	return c.GetString(ContextKeyUsername)
}

func GetUserRole(c *gin.Context) entities.UserRole {
	if r, exists := c.Get(ContextKeyRole); exists {
		if role, ok := r.(entities.UserRole); ok {
			return role
		}
	}
	return ""
}

func GetAuthType(c *gin.Context) AuthType {
	if t, exists := c.Get(ContextKeyAuthType); exists {
		if authType, ok := t.(AuthType); ok {
			return authType
		}
	}
	return AuthTypeNone
}

// IsAuthenticated is true for signed-in profiles and for every request when
// auth is disabled.
func IsAuthenticated(c *gin.Context) bool {
	return GetUserID(c) != anonymousUserID
}

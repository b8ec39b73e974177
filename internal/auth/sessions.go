package auth

import (
	"context"
	"database/sql"
	"encoding/gob"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/entities"
)

const (
	SessionKeyUserID   = "user_id"
	SessionKeyUsername = "username"
	SessionKeyRole     = "role"
	SessionKeyLoginAt  = "login_at"
	SessionKeySearchID = "search_id"
)

func init() {
	gob.Register(entities.UserRole(""))
	gob.Register(time.Time{})
}

// SessionManager wraps scs.SessionManager with the keys this app stores.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager stores sessions in the main SQLite database.
func NewSessionManager(sqlDB *sql.DB, cfg config.Auth) (*SessionManager, error) {
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, err
	}

	lifetime := cfg.SessionLifetime
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}

	sm := scs.New()
	sm.Store = sqlite3store.New(sqlDB)
	sm.Lifetime = lifetime
	sm.IdleTimeout = lifetime / 2

	sm.Cookie.Name = "session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}, nil
}

// CreateSession binds a profile to the session after password verification.
func (sm *SessionManager) CreateSession(r *http.Request, profile *entities.Profile) error {
	// New token on login so a pre-login cookie cannot be fixated.
	if err := sm.RenewToken(r.Context()); err != nil {
		return err
	}

	ctx := r.Context()
	sm.Put(ctx, SessionKeyUserID, int(profile.ID))
	sm.Put(ctx, SessionKeyUsername, profile.Username)
	sm.Put(ctx, SessionKeyRole, profile.Role)
	sm.Put(ctx, SessionKeyLoginAt, time.Now())
	return nil
}

func (sm *SessionManager) DestroySession(r *http.Request) error {
	return sm.Destroy(r.Context())
}

// GetUserID returns 0 when the session is anonymous.
func (sm *SessionManager) GetUserID(r *http.Request) uint {
	return uint(sm.GetInt(r.Context(), SessionKeyUserID))
}

func (sm *SessionManager) GetUsername(r *http.Request) string {
	return sm.GetString(r.Context(), SessionKeyUsername)
}

func (sm *SessionManager) GetUserRole(r *http.Request) entities.UserRole {
	role, ok := sm.Get(r.Context(), SessionKeyRole).(entities.UserRole)
	if !ok {
		return ""
	}
	return role
}

func (sm *SessionManager) IsAuthenticated(r *http.Request) bool {
	return sm.GetUserID(r) != 0
}

// SearchSessionID returns the identifier used to order search results for
// this browser session. It returns "" until the client sends back a session
// that already carries one; with allocate set, a fresh id is stored so the
// next request has it.
func (sm *SessionManager) SearchSessionID(ctx context.Context, allocate bool) string {
	if id := sm.GetString(ctx, SessionKeySearchID); id != "" {
		return id
	}
	if allocate {
		sm.Put(ctx, SessionKeySearchID, uuid.NewString())
	}
	return ""
}

type SessionData struct {
	UserID   uint
	Username string
	Role     entities.UserRole
	LoginAt  time.Time
}

// GetSessionData returns nil for anonymous sessions.
func (sm *SessionManager) GetSessionData(r *http.Request) *SessionData {
	userID := sm.GetUserID(r)
	if userID == 0 {
		return nil
	}

	loginAt, _ := sm.Get(r.Context(), SessionKeyLoginAt).(time.Time)
	return &SessionData{
		UserID:   userID,
		Username: sm.GetUsername(r),
		Role:     sm.GetUserRole(r),
		LoginAt:  loginAt,
	}
}

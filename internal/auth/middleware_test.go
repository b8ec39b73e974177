package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/entities"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type authFixture struct {
	router    *gin.Engine
	service   *Service
	sessions  *SessionManager
	loggedOut []uint
}

func newAuthFixture(t *testing.T, mode config.AuthMode) *authFixture {
	t.Helper()
	db := setupTestDB(t)
	cfg := testAuthConfig(mode)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sessions, err := NewSessionManager(sqlDB, cfg)
	require.NoError(t, err)

	f := &authFixture{service: NewService(db, cfg), sessions: sessions}
	mw := NewMiddleware(f.service, sessions, cfg)

	controller := NewAuthController(f.service, sessions, t.TempDir(), cfg)
	controller.OnLogout(func(id uint) { f.loggedOut = append(f.loggedOut, id) })

	router := gin.New()
	router.Use(sessions.SessionLoadSave())
	router.Use(mw.Handler())
	controller.RegisterRoutes(router)
	router.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "auth_type": GetAuthType(c)})
	})
	router.GET("/api/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c)})
	})
	router.GET("/admin", mw.RequireRole(entities.UserRoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	f.router = router
	return f
}

func (f *authFixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestMiddleware_NoAuthModeActsAsLocalProfile(t *testing.T) {
	f := newAuthFixture(t, config.AuthModeNone)

	w := f.do(httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":1,"auth_type":"none"}`, w.Body.String())

	w = f.do(httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddleware_LocalModeRejectsAnonymous(t *testing.T) {
	f := newAuthFixture(t, config.AuthModeLocal)

	w := f.do(httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?next=%2Fwhoami", w.Header().Get("Location"))

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/whoami", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("HX-Request", "true")
	w = f.do(req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "/login", w.Header().Get("HX-Redirect"))
}

func TestMiddleware_BearerToken(t *testing.T) {
	f := newAuthFixture(t, config.AuthModeLocal)
	profile, err := f.service.CreateProfile("reader", "reader@example.com", testPassword, entities.UserRoleReader)
	require.NoError(t, err)
	token, err := f.service.GenerateToken(profile.ID)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := f.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":2`)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = f.do(req)
	assert.Equal(t, http.StatusForbidden, w.Code, "readers are not admins")
}

func TestAuthController_SetupLoginLogout(t *testing.T) {
	f := newAuthFixture(t, config.AuthModeLocal)

	w := f.do(httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/setup", w.Header().Get("Location"))

	w = f.do(postForm("/setup", url.Values{
		"username":         {"admin"},
		"email":            {"admin@example.com"},
		"password":         {testPassword},
		"confirm_password": {testPassword},
	}))
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = f.do(httptest.NewRequest(http.MethodGet, "/setup", nil))
	assert.Equal(t, "/login", w.Header().Get("Location"), "setup is closed once an account exists")

	w = f.do(postForm("/login", url.Values{"username": {"admin"}, "password": {"wrong-password-123"}}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(postForm("/login", url.Values{
		"username": {"admin"},
		"password": {testPassword},
		"next":     {"//evil.example.com"},
	}))
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	cookie := sessionCookie(t, w)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(cookie)
	w = f.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":2,"auth_type":"session"}`, w.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(cookie)
	w = f.do(req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, []uint{2}, f.loggedOut)

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(cookie)
	w = f.do(req)
	assert.Equal(t, http.StatusFound, w.Code, "destroyed session no longer authenticates")
}

func TestSanitizeRedirectPath(t *testing.T) {
	cases := map[string]string{
		"":                  "/",
		"/shelves/3":        "/shelves/3",
		"//evil.com":        "/",
		"https://evil.com":  "/",
		"/\\evil.com":       "/",
		"relative":          "/",
		"/search?q=go+lang": "/search?q=go+lang",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeRedirectPath(in), in)
	}
}

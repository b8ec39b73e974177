package entrypoint

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(t *testing.T, mode config.AuthMode) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Database: config.Database{Path: filepath.Join(dir, "bookshelf.db")},
		UI:       config.UI{TemplatesPath: "../../templates", StaticPath: "../../static"},
		Catalog:  config.Catalog{BaseURL: "http://127.0.0.1:1", CoversDir: filepath.Join(dir, "covers")},
		Auth: config.Auth{
			Mode:            mode,
			SessionLifetime: time.Hour,
			BcryptCost:      4,
		},
	}
}

func get(app *App, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestBuild_NoAuth(t *testing.T) {
	app, err := Build(testConfig(t, config.AuthModeNone), "test")
	require.NoError(t, err)
	t.Cleanup(app.Close)

	w := get(app, "/health")
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(app, "/")
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(app, "/api/shelves")
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(app, "/login")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBuild_LocalAuth(t *testing.T) {
	app, err := Build(testConfig(t, config.AuthModeLocal), "test")
	require.NoError(t, err)
	t.Cleanup(app.Close)

	w := get(app, "/")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "/login")

	w = get(app, "/login")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/setup", w.Header().Get("Location"))

	w = get(app, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBuild_WithTaskQueue(t *testing.T) {
	cfg := testConfig(t, config.AuthModeNone)
	cfg.Tasks = config.Tasks{Enabled: true, Workers: 1, ReleaseAfter: time.Minute, CleanupInterval: time.Hour}
	cfg.Snapshots = config.Snapshots{CleanupEnabled: true, CleanupSchedule: "0 3 * * *"}

	app, err := Build(cfg, "test")
	require.NoError(t, err)
	t.Cleanup(app.Close)

	app.Start()
	assert.True(t, app.cleanup.IsRunning())
	assert.NotNil(t, app.cleanup.NextRunTime())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	app.Shutdown(ctx)
	assert.False(t, app.cleanup.IsRunning())
}

func TestCSRFSecret(t *testing.T) {
	secret, err := csrfSecret("00ff")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xff}, secret)

	secret, err = csrfSecret("not-hex")
	require.NoError(t, err)
	assert.Equal(t, []byte("not-hex"), secret)

	secret, err = csrfSecret("")
	require.NoError(t, err)
	assert.Len(t, secret, 32)
}

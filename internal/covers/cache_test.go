package covers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func imageServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		switch r.URL.Path {
		case "/missing.jpg":
			w.WriteHeader(http.StatusNotFound)
		case "/page.html":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html></html>"))
		default:
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write([]byte("fake image data"))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewCache(t *testing.T) {
	cacheDir := filepath.Join(t.TempDir(), "covers")

	cache, err := NewCache(cacheDir)
	require.NoError(t, err)
	assert.Equal(t, cacheDir, cache.CacheDir())

	_, err = os.Stat(cacheDir)
	assert.NoError(t, err)
}

func TestGetCover_EmptyURL(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)

	_, err = cache.GetCover(context.Background(), "X1", "")
	assert.ErrorIs(t, err, ErrNoCover)
}

func TestGetCover_FetchAndCache(t *testing.T) {
	var hits int32
	server := imageServer(t, &hits)
	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	path1, err := cache.GetCover(ctx, "X1", server.URL+"/cover.jpg")
	require.NoError(t, err)
	data, err := os.ReadFile(path1)
	require.NoError(t, err)
	assert.Equal(t, "fake image data", string(data))

	path2, err := cache.GetCover(ctx, "X1", server.URL+"/cover.jpg")
	require.NoError(t, err)
	assert.Equal(t, path1, path2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestGetCover_Errors(t *testing.T) {
	server := imageServer(t, nil)
	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = cache.GetCover(ctx, "X1", server.URL+"/missing.jpg")
	assert.ErrorIs(t, err, ErrNoCover)

	_, err = cache.GetCover(ctx, "X1", server.URL+"/page.html")
	assert.ErrorIs(t, err, ErrNotImage)

	entries, err := os.ReadDir(cache.CacheDir())
	require.NoError(t, err)
	assert.Empty(t, entries, "failed downloads leave no files behind")
}

func TestInvalidateCover(t *testing.T) {
	server := imageServer(t, nil)
	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	path, err := cache.GetCover(ctx, "X1", server.URL+"/cover.jpg")
	require.NoError(t, err)
	other, err := cache.GetCover(ctx, "X2", server.URL+"/cover.jpg")
	require.NoError(t, err)

	require.NoError(t, cache.InvalidateCover("X1"))

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(other)
	assert.NoError(t, err, "other books keep their covers")
}

func TestCoverFilename(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)

	name1 := cache.coverFilename("X1", "https://example.com/cover.jpg")
	name2 := cache.coverFilename("X1", "https://example.com/cover.jpg")
	name3 := cache.coverFilename("X1", "https://example.com/other.jpg")
	assert.Equal(t, name1, name2)
	assert.NotEqual(t, name1, name3)

	unsafe := cache.coverFilename("../etc/*", "https://example.com/cover.jpg")
	assert.False(t, strings.ContainsAny(unsafe, "/*"))
	assert.True(t, strings.HasPrefix(unsafe, "cover____etc__"))
}

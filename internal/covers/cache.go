// Package covers keeps catalog cover images on local disk so the UI does not
// hotlink the catalog for every render.
package covers

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// MaxCoverBytes caps a downloaded image.
const MaxCoverBytes = 5 << 20

var (
	ErrNoCover   = errors.New("cover unavailable")
	ErrNotImage  = errors.New("cover response is not an image")
	ErrTooLarge  = errors.New("cover image too large")
	unsafeIDChar = regexp.MustCompile(`[^A-Za-z0-9_-]`)
)

// Cache stores covers as files named after the catalog id and URL hash.
type Cache struct {
	cacheDir   string
	httpClient *http.Client
	downloads  singleflight.Group
}

// NewCache creates the cache directory if needed.
func NewCache(cacheDir string) (*Cache, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	return &Cache{
		cacheDir: cacheDir,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// GetCover returns the path of the cached cover for a catalog book,
// downloading it first if needed. ErrNoCover is returned for an empty URL.
func (c *Cache) GetCover(ctx context.Context, bookID, coverURL string) (string, error) {
	if coverURL == "" {
		return "", ErrNoCover
	}

	cachePath := filepath.Join(c.cacheDir, c.coverFilename(bookID, coverURL))
	if _, err := os.Stat(cachePath); err == nil {
		return cachePath, nil
	}

	_, err, _ := c.downloads.Do(cachePath, func() (any, error) {
		return nil, c.fetchAndCache(ctx, coverURL, cachePath)
	})
	if err != nil {
		return "", err
	}
	return cachePath, nil
}

// InvalidateCover removes every cached cover of a book.
func (c *Cache) InvalidateCover(bookID string) error {
	pattern := filepath.Join(c.cacheDir, fmt.Sprintf("cover_%s_*", safeID(bookID)))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}

	for _, match := range matches {
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// CacheDir returns the cache directory path.
func (c *Cache) CacheDir() string {
	return c.cacheDir
}

func (c *Cache) coverFilename(bookID, coverURL string) string {
	hash := sha256.Sum256([]byte(coverURL))
	return fmt.Sprintf("cover_%s_%x.img", safeID(bookID), hash[:8])
}

// safeID keeps catalog ids usable as file name parts and glob patterns.
func safeID(bookID string) string {
	id := unsafeIDChar.ReplaceAllString(bookID, "_")
	if id == "" {
		return "_"
	}
	return id
}

func (c *Cache) fetchAndCache(ctx context.Context, url, cachePath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Bookshelf/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrNoCover, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return fmt.Errorf("%w: %s", ErrNotImage, ct)
	}

	// Temp file in the same directory so the rename is atomic.
	tmpFile, err := os.CreateTemp(c.cacheDir, "cover_tmp_")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	n, err := io.Copy(tmpFile, io.LimitReader(resp.Body, MaxCoverBytes+1))
	if err != nil {
		return err
	}
	if n > MaxCoverBytes {
		return ErrTooLarge
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, cachePath)
}

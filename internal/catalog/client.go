// Package catalog is a client for the Google Books volumes API.
//
// Search and GetByID return entities.CatalogEntry values with optional
// fields left empty when the catalog does not provide them. Descriptions are
// reduced to plain text and cover links are upgraded to https.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/entities"
)

var (
	ErrEmptyQuery   = errors.New("search query is empty")
	ErrNotFound     = errors.New("book not found in catalog")
	ErrSearchFailed = errors.New("catalog search failed")
	ErrLookupFailed = errors.New("catalog lookup failed")
)

const userAgent = "Bookshelf/1.0 (https://github.com/mrlokans/bookshelf)"

// Client talks to the catalog. Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	maxResults int
	limiter    *rate.Limiter
	searches   singleflight.Group
}

// NewClient builds a client from the catalog settings, falling back to the
// public Google Books endpoint and conservative limits.
func NewClient(cfg config.Catalog) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = config.DefaultCatalogBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 || maxResults > 40 {
		maxResults = 20
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		maxResults: maxResults,
		limiter:    rate.NewLimiter(limit, burst),
	}
}

// Search runs a free-text query. Concurrent calls with the same query share
// one request; nothing is cached once it completes.
func (c *Client) Search(ctx context.Context, query string) ([]entities.CatalogEntry, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	// The shared request must outlive any single caller's cancellation.
	shared := context.WithoutCancel(ctx)
	ch := c.searches.DoChan(query, func() (any, error) {
		return c.search(shared, query)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		entries := res.Val.([]entities.CatalogEntry)
		out := make([]entities.CatalogEntry, len(entries))
		copy(out, entries)
		return out, nil
	}
}

func (c *Client) search(ctx context.Context, query string) ([]entities.CatalogEntry, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(c.maxResults))
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	var result volumesResponse
	status, err := c.getJSON(ctx, c.baseURL+"/volumes?"+params.Encode(), &result)
	if err != nil {
		log.Printf("[CATALOG] search %q failed: %v", query, err)
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}
	if status != http.StatusOK {
		log.Printf("[CATALOG] search %q returned status %d", query, status)
		return nil, fmt.Errorf("%w: unexpected status %d", ErrSearchFailed, status)
	}

	entries := make([]entities.CatalogEntry, 0, len(result.Items))
	for i := range result.Items {
		if result.Items[i].ID == "" {
			continue
		}
		entries = append(entries, result.Items[i].toEntry())
	}
	return entries, nil
}

// GetByID fetches one volume.
func (c *Client) GetByID(ctx context.Context, id string) (*entities.CatalogEntry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}

	endpoint := c.baseURL + "/volumes/" + url.PathEscape(id)
	if c.apiKey != "" {
		endpoint += "?key=" + url.QueryEscape(c.apiKey)
	}

	var item volume
	status, err := c.getJSON(ctx, endpoint, &item)
	if err != nil {
		log.Printf("[CATALOG] lookup %s failed: %v", id, err)
		return nil, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	switch {
	case status == http.StatusNotFound:
		return nil, ErrNotFound
	case status == http.StatusServiceUnavailable && strings.Contains(item.errorMessage(), "not found"):
		// The volumes endpoint reports some unknown ids this way.
		return nil, ErrNotFound
	case status != http.StatusOK:
		log.Printf("[CATALOG] lookup %s returned status %d", id, status)
		return nil, fmt.Errorf("%w: unexpected status %d", ErrLookupFailed, status)
	}
	if item.ID == "" {
		return nil, ErrNotFound
	}

	entry := item.toEntry()
	return &entry, nil
}

// getJSON performs a rate-limited GET and decodes the body into out. Non-2xx
// bodies are decoded too so callers can inspect API error payloads.
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && resp.StatusCode == http.StatusOK {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

package http

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/view"
)

// SearchResponse is the JSON form of a search. Superseded is set when a newer
// search from the same session started while this one was in flight.
type SearchResponse struct {
	Query      string              `json:"query"`
	Results    []view.SearchResult `json:"results"`
	Superseded bool                `json:"superseded,omitempty"`
}

// CatalogController serves catalog search, lookup and covers.
type CatalogController struct {
	catalog  CatalogClient
	covers   CoverFetcher
	tracker  *view.SearchTracker
	sessions *auth.SessionManager
}

func NewCatalogController(client CatalogClient, covers CoverFetcher, tracker *view.SearchTracker, sessions *auth.SessionManager) *CatalogController {
	return &CatalogController{
		catalog:  client,
		covers:   covers,
		tracker:  tracker,
		sessions: sessions,
	}
}

// searchSession identifies the browser for last-query-wins tracking. Clients
// without an established session are tracked by IP. Only HTMX requests get a
// session allocated, so API clients do not fill the session table.
func (cc *CatalogController) searchSession(c *gin.Context) string {
	if cc.sessions != nil {
		if id := cc.sessions.SearchSessionID(c.Request.Context(), isHTMXRequest(c)); id != "" {
			return "session:" + id
		}
	}
	return "ip:" + c.ClientIP()
}

// Search runs a catalog search.
// GET /api/catalog/search?q=
// GET /ui/search?q=
func (cc *CatalogController) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		if isHTMXRequest(c) {
			c.HTML(http.StatusOK, "results", gin.H{"Query": ""})
			return
		}
		respondBadRequest(c, catalog.ErrEmptyQuery.Error())
		return
	}

	var ticket view.Ticket
	if cc.tracker != nil {
		ticket = cc.tracker.Begin(cc.searchSession(c), query)
	}

	entries, err := cc.catalog.Search(c.Request.Context(), query)

	if cc.tracker != nil && !cc.tracker.Current(ticket) {
		if isHTMXRequest(c) {
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(http.StatusOK, SearchResponse{Query: query, Results: []view.SearchResult{}, Superseded: true})
		return
	}

	if err != nil {
		log.Printf("[CATALOG] Search %q failed: %v", query, err)
		if isHTMXRequest(c) {
			c.HTML(http.StatusOK, "results", gin.H{"Query": query, "Error": genericFailure})
			return
		}
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: genericFailure})
		return
	}

	results := view.NewSearchResults(entries)
	if isHTMXRequest(c) {
		c.HTML(http.StatusOK, "results", gin.H{
			"Query":     query,
			"Results":   results,
			"NoResults": view.NoResults,
		})
		return
	}
	c.JSON(http.StatusOK, SearchResponse{Query: query, Results: results})
}

// GetBook returns one catalog entry.
// GET /api/catalog/:bookId
func (cc *CatalogController) GetBook(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}

	entry, err := cc.catalog.GetByID(c.Request.Context(), bookID)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		respondNotFound(c, "book")
	case err != nil:
		log.Printf("[CATALOG] Lookup %q failed: %v", bookID, err)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: genericFailure})
	default:
		c.JSON(http.StatusOK, entry)
	}
}

// GetCover serves a book cover from the local cache, fetching it on first
// request. When caching fails the client is redirected to the original.
// GET /api/catalog/:bookId/cover
func (cc *CatalogController) GetCover(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}

	entry, err := cc.catalog.GetByID(c.Request.Context(), bookID)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "cover unavailable"})
		return
	case err != nil:
		log.Printf("[CATALOG] Cover lookup %q failed: %v", bookID, err)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: genericFailure})
		return
	case entry.CoverURL == "":
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "cover unavailable"})
		return
	}

	if cc.covers == nil {
		c.Redirect(http.StatusTemporaryRedirect, entry.CoverURL)
		return
	}

	path, err := cc.covers.GetCover(c.Request.Context(), bookID, entry.CoverURL)
	if err != nil {
		log.Printf("[COVERS] Caching cover for %s failed: %v", bookID, err)
		c.Redirect(http.StatusTemporaryRedirect, entry.CoverURL)
		return
	}
	c.File(path)
}

package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/view"
)

const dateLayout = "2006-01-02"

// UserBooksController exposes the owner's per-book reading state.
type UserBooksController struct {
	library ReadingService
	pending *view.PendingGuard
}

func NewUserBooksController(library ReadingService, pending *view.PendingGuard) *UserBooksController {
	if pending == nil {
		pending = view.NewPendingGuard()
	}
	return &UserBooksController{library: library, pending: pending}
}

// StateResponse carries a book's reading state. State is null until the owner
// first changes something about the book.
type StateResponse struct {
	BookID string             `json:"book_id"`
	State  *entities.UserBook `json:"state"`
}

type statusRequest struct {
	Status string `json:"status" form:"status"`
}

type noteRequest struct {
	Note string `json:"note" form:"note"`
}

type ratingRequest struct {
	Rating *int `json:"rating"`
}

type datesRequest struct {
	StartedAt  *string `json:"started_at"`
	FinishedAt *string `json:"finished_at"`
}

// GET /api/books/:bookId/state
func (uc *UserBooksController) GetState(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}

	state, err := loadState(c.Request.Context(), uc.library, GetUserID(c), bookID)
	if err != nil {
		respondStoreError(c, err, "book", "get book state")
		return
	}
	c.JSON(http.StatusOK, StateResponse{BookID: bookID, State: state})
}

// PUT /api/books/:bookId/status
func (uc *UserBooksController) SetStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	status, err := entities.ParseReadStatus(req.Status)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	uc.mutate(c, view.ControlStatus, func(ownerID uint, bookID string) (*entities.UserBook, error) {
		return uc.library.SetReadStatus(c.Request.Context(), ownerID, bookID, status)
	})
}

// PUT /api/books/:bookId/note
func (uc *UserBooksController) SetNote(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	uc.mutate(c, view.ControlNote, func(ownerID uint, bookID string) (*entities.UserBook, error) {
		return uc.library.SetNote(c.Request.Context(), ownerID, bookID, req.Note)
	})
}

// SetRating sets a 1..5 rating; a null rating clears it.
// PUT /api/books/:bookId/rating
func (uc *UserBooksController) SetRating(c *gin.Context) {
	var req ratingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	uc.mutate(c, view.ControlRating, func(ownerID uint, bookID string) (*entities.UserBook, error) {
		return uc.library.SetRating(c.Request.Context(), ownerID, bookID, req.Rating)
	})
}

// SetDates takes YYYY-MM-DD dates; null clears a date.
// PUT /api/books/:bookId/dates
func (uc *UserBooksController) SetDates(c *gin.Context) {
	var req datesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	started, err := parseDate(req.StartedAt)
	if err != nil {
		respondBadRequest(c, "started_at must be YYYY-MM-DD")
		return
	}
	finished, err := parseDate(req.FinishedAt)
	if err != nil {
		respondBadRequest(c, "finished_at must be YYYY-MM-DD")
		return
	}

	uc.mutate(c, view.ControlDates, func(ownerID uint, bookID string) (*entities.UserBook, error) {
		return uc.library.SetReadingDates(c.Request.Context(), ownerID, bookID, started, finished)
	})
}

// List returns the owner's books, optionally filtered by status.
// GET /api/books?status=
func (uc *UserBooksController) List(c *gin.Context) {
	var status entities.ReadStatus
	if raw := c.Query("status"); raw != "" {
		parsed, err := entities.ParseReadStatus(raw)
		if err != nil {
			respondBadRequest(c, err.Error())
			return
		}
		status = parsed
	}

	books, err := uc.library.ListUserBooks(c.Request.Context(), GetUserID(c), status)
	if err != nil {
		respondInternalError(c, err, "list user books")
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": books, "total": len(books)})
}

// GET /api/books/stats
func (uc *UserBooksController) Stats(c *gin.Context) {
	stats, err := uc.library.ReadingStats(c.Request.Context(), GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "reading stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// mutate runs write under the pending guard for (owner, control, book) and
// answers with the state read back through the cache.
func (uc *UserBooksController) mutate(c *gin.Context, control string, write func(ownerID uint, bookID string) (*entities.UserBook, error)) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}
	ownerID := GetUserID(c)

	release, ok := uc.pending.Acquire(view.PendingKey(ownerID, control, bookID))
	if !ok {
		respondConflict(c, control+" change already in progress")
		return
	}
	defer release()

	if _, err := write(ownerID, bookID); err != nil {
		respondStoreError(c, err, "book", "update "+control)
		return
	}

	state, err := uc.library.GetUserBookState(c.Request.Context(), ownerID, bookID)
	if err != nil {
		respondInternalError(c, err, "reload "+control)
		return
	}
	c.JSON(http.StatusOK, StateResponse{BookID: bookID, State: state})
}

func parseDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(*raw))
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// loadState reads a book's state, treating "no state yet" as nil.
func loadState(ctx context.Context, library ReadingService, ownerID uint, bookID string) (*entities.UserBook, error) {
	state, err := library.GetUserBookState(ctx, ownerID, bookID)
	if errors.Is(err, entities.ErrNoState) {
		return nil, nil
	}
	return state, err
}

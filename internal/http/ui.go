package http

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/view"
)

// UIController serves the search page and the book detail overlay. Every
// mutation re-reads through the library so fragments show synchronized
// state, not what the form submitted.
type UIController struct {
	catalog CatalogClient
	library LibraryService
	pending *view.PendingGuard
}

func NewUIController(client CatalogClient, library LibraryService, pending *view.PendingGuard) *UIController {
	if pending == nil {
		pending = view.NewPendingGuard()
	}
	return &UIController{
		catalog: client,
		library: library,
		pending: pending,
	}
}

// GET /
func (controller *UIController) IndexPage(c *gin.Context) {
	c.HTML(http.StatusOK, "index", pageData(c, "Search", gin.H{
		"Query": c.Query("q"),
	}))
}

// BookDetail renders the overlay for one catalog book.
// GET /ui/books/:bookId
func (controller *UIController) BookDetail(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	ownerID := GetUserID(c)

	entry, err := controller.catalog.GetByID(ctx, bookID)
	if errors.Is(err, catalog.ErrNotFound) {
		if isHTMXRequest(c) {
			c.HTML(http.StatusOK, "not-found", gin.H{"Message": view.BookNotFound})
			return
		}
		respondNotFound(c, "book")
		return
	}
	if err != nil {
		log.Printf("[CATALOG] Lookup %q failed: %v", bookID, err)
		controller.fail(c, http.StatusBadGateway)
		return
	}

	state, err := loadState(ctx, controller.library, ownerID, bookID)
	if err != nil {
		log.Printf("[SYNC] Loading state of %s for %d failed: %v", bookID, ownerID, err)
		controller.fail(c, http.StatusInternalServerError)
		return
	}
	shelves, containing, err := controller.shelfState(ctx, ownerID, bookID)
	if err != nil {
		log.Printf("[SYNC] Loading shelves for %d failed: %v", ownerID, err)
		controller.fail(c, http.StatusInternalServerError)
		return
	}

	detail := view.NewDetail(entry, state, shelves, containing)
	if !isHTMXRequest(c) {
		c.JSON(http.StatusOK, detail)
		return
	}
	c.HTML(http.StatusOK, "detail", gin.H{
		"Book":         detail,
		"NoImage":      view.NoImage,
		"StatusButton": statusFragment(bookID, state),
		"NoteSection":  noteFragment(bookID, state),
		"ShelfMenu":    shelfMenuFragment(bookID, view.NewShelfOptions(shelves, containing)),
	})
}

// ToggleStatus flips between read and unread.
// POST /ui/books/:bookId/status/toggle
func (controller *UIController) ToggleStatus(c *gin.Context) {
	bookID, ownerID, release, ok := controller.acquire(c, view.ControlStatus)
	if !ok {
		return
	}
	defer release()
	ctx := c.Request.Context()

	if _, err := controller.library.ToggleReadStatus(ctx, ownerID, bookID); err != nil {
		controller.mutationFailed(c, err, "toggle status")
		return
	}

	state, err := loadState(ctx, controller.library, ownerID, bookID)
	if err != nil {
		controller.mutationFailed(c, err, "reload status")
		return
	}
	respondHTMXOrJSON(c, http.StatusOK, "status-button", statusFragment(bookID, state))
}

// NoteSection renders the read-only note, used by the editor's cancel.
// GET /ui/books/:bookId/note
func (controller *UIController) NoteSection(c *gin.Context) {
	controller.renderNote(c, "note-section")
}

// NoteEditor swaps the note display for a textarea.
// GET /ui/books/:bookId/note/edit
func (controller *UIController) NoteEditor(c *gin.Context) {
	controller.renderNote(c, "note-editor")
}

// SaveNote stores the note; an empty note clears it.
// POST /ui/books/:bookId/note
func (controller *UIController) SaveNote(c *gin.Context) {
	bookID, ownerID, release, ok := controller.acquire(c, view.ControlNote)
	if !ok {
		return
	}
	defer release()
	ctx := c.Request.Context()

	if _, err := controller.library.SetNote(ctx, ownerID, bookID, c.PostForm("note")); err != nil {
		controller.mutationFailed(c, err, "save note")
		return
	}

	state, err := loadState(ctx, controller.library, ownerID, bookID)
	if err != nil {
		controller.mutationFailed(c, err, "reload note")
		return
	}
	respondHTMXOrJSON(c, http.StatusOK, "note-section", noteFragment(bookID, state))
}

// AddToShelf puts the book on the chosen shelf and pops a toast.
// POST /ui/books/:bookId/shelves
func (controller *UIController) AddToShelf(c *gin.Context) {
	bookID, ownerID, release, ok := controller.acquire(c, view.ControlShelf)
	if !ok {
		return
	}
	defer release()
	ctx := c.Request.Context()

	shelfID, ok := parseFormID(c, "shelf_id")
	if !ok {
		return
	}

	if _, err := controller.library.AddMember(ctx, ownerID, shelfID, bookID); err != nil {
		if errors.Is(err, entities.ErrNotFound) {
			if isHTMXRequest(c) {
				c.HTML(http.StatusOK, "not-found", gin.H{"Message": "Shelf not found"})
				return
			}
			respondNotFound(c, "shelf")
			return
		}
		controller.mutationFailed(c, err, "add to shelf")
		return
	}

	shelves, containing, err := controller.shelfState(ctx, ownerID, bookID)
	if err != nil {
		controller.mutationFailed(c, err, "reload shelves")
		return
	}
	c.Header("HX-Trigger", view.ToastTrigger(view.ShelfAddedToast))
	respondHTMXOrJSON(c, http.StatusOK, "shelf-menu", shelfMenuFragment(bookID, view.NewShelfOptions(shelves, containing)))
}

func (controller *UIController) renderNote(c *gin.Context, template string) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}

	state, err := loadState(c.Request.Context(), controller.library, GetUserID(c), bookID)
	if err != nil {
		log.Printf("[SYNC] Loading note of %s failed: %v", bookID, err)
		controller.fail(c, http.StatusInternalServerError)
		return
	}
	respondHTMXOrJSON(c, http.StatusOK, template, noteFragment(bookID, state))
}

// acquire claims the pending guard for one control. A second submission
// while the first is in flight gets 409 and never reaches the store.
func (controller *UIController) acquire(c *gin.Context, control string) (string, uint, func(), bool) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return "", 0, nil, false
	}
	ownerID := GetUserID(c)

	release, ok := controller.pending.Acquire(view.PendingKey(ownerID, control, bookID))
	if !ok {
		respondConflict(c, control+" change already in progress")
		return "", 0, nil, false
	}
	return bookID, ownerID, release, true
}

func (controller *UIController) shelfState(ctx context.Context, ownerID uint, bookID string) ([]entities.Shelf, []uint, error) {
	shelves, err := controller.library.ListShelves(ctx, ownerID)
	if err != nil {
		return nil, nil, err
	}
	containing, err := controller.library.ShelvesContaining(ctx, ownerID, bookID)
	if err != nil {
		return nil, nil, err
	}
	return shelves, containing, nil
}

func (controller *UIController) mutationFailed(c *gin.Context, err error, action string) {
	if entities.IsValidation(err) {
		if isHTMXRequest(c) {
			renderFragmentError(c, http.StatusBadRequest, err.Error())
			return
		}
		respondBadRequest(c, err.Error())
		return
	}
	log.Printf("Internal error (%s): %v", action, err)
	controller.fail(c, http.StatusInternalServerError)
}

func (controller *UIController) fail(c *gin.Context, status int) {
	if isHTMXRequest(c) {
		renderFragmentError(c, status, genericFailure)
		return
	}
	c.JSON(status, ErrorResponse{Error: genericFailure})
}

func statusFragment(bookID string, state *entities.UserBook) gin.H {
	status := entities.DefaultReadStatus
	if state != nil {
		status = state.ReadStatus
	}
	return gin.H{
		"BookID": bookID,
		"Status": status,
		"Label":  view.ToggleLabel(status),
	}
}

func noteFragment(bookID string, state *entities.UserBook) gin.H {
	note := state.NoteText()
	return gin.H{
		"BookID":  bookID,
		"Note":    note,
		"HasNote": note != "",
		"NoNotes": view.NoNotes,
	}
}

func shelfMenuFragment(bookID string, options []view.ShelfOption) gin.H {
	return gin.H{
		"BookID":    bookID,
		"Shelves":   options,
		"NoShelves": view.NoShelves,
	}
}

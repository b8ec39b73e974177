package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/view"
)

// ShelvesController manages the owner's shelves and their members.
type ShelvesController struct {
	library ShelfService
	pending *view.PendingGuard
}

func NewShelvesController(library ShelfService, pending *view.PendingGuard) *ShelvesController {
	if pending == nil {
		pending = view.NewPendingGuard()
	}
	return &ShelvesController{library: library, pending: pending}
}

type shelfRequest struct {
	Name string `json:"name" form:"name"`
}

type memberRequest struct {
	BookID string `json:"book_id" form:"book_id"`
}

// ShelfDetail is a shelf with its rendered members.
type ShelfDetail struct {
	Shelf *entities.Shelf      `json:"shelf"`
	Books []view.ShelfBookView `json:"books"`
}

// GET /api/shelves
func (sc *ShelvesController) List(c *gin.Context) {
	shelves, err := sc.library.ListShelves(c.Request.Context(), GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "list shelves")
		return
	}
	c.JSON(http.StatusOK, gin.H{"shelves": shelves})
}

// POST /api/shelves
func (sc *ShelvesController) Create(c *gin.Context) {
	var req shelfRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	shelf, err := sc.library.CreateShelf(c.Request.Context(), GetUserID(c), req.Name)
	if err != nil {
		respondStoreError(c, err, "shelf", "create shelf")
		return
	}
	respondCreated(c, shelf)
}

// PATCH /api/shelves/:id
func (sc *ShelvesController) Rename(c *gin.Context) {
	shelfID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req shelfRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	shelf, err := sc.library.RenameShelf(c.Request.Context(), GetUserID(c), shelfID, req.Name)
	if err != nil {
		respondStoreError(c, err, "shelf", "rename shelf")
		return
	}
	c.JSON(http.StatusOK, shelf)
}

// DELETE /api/shelves/:id
func (sc *ShelvesController) Delete(c *gin.Context) {
	shelfID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := sc.library.DeleteShelf(c.Request.Context(), GetUserID(c), shelfID); err != nil {
		respondStoreError(c, err, "shelf", "delete shelf")
		return
	}
	respondSuccess(c, "shelf deleted")
}

// ListBooks returns the shelf's members with their stored catalog metadata.
// GET /api/shelves/:id/books
func (sc *ShelvesController) ListBooks(c *gin.Context) {
	shelfID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	detail, err := sc.shelfDetail(c, shelfID)
	if err != nil {
		respondStoreError(c, err, "shelf", "list shelf books")
		return
	}
	c.JSON(http.StatusOK, detail)
}

// AddBook adds a book to a shelf. Adding a book that is already on the shelf
// succeeds and returns the existing membership.
// POST /api/shelves/:id/books
func (sc *ShelvesController) AddBook(c *gin.Context) {
	shelfID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req memberRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	bookID := strings.TrimSpace(req.BookID)

	release, ok := sc.pending.Acquire(view.PendingKey(GetUserID(c), view.ControlShelf, bookID))
	if !ok {
		respondConflict(c, "shelf change already in progress")
		return
	}
	defer release()

	membership, err := sc.library.AddMember(c.Request.Context(), GetUserID(c), shelfID, bookID)
	if err != nil {
		respondStoreError(c, err, "shelf", "add shelf member")
		return
	}
	c.JSON(http.StatusOK, membership)
}

// RemoveBook is idempotent: removing a book that is not on the shelf succeeds.
// DELETE /api/shelves/:id/books/:bookId
func (sc *ShelvesController) RemoveBook(c *gin.Context) {
	shelfID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}

	if err := sc.library.RemoveMember(c.Request.Context(), GetUserID(c), shelfID, bookID); err != nil {
		respondStoreError(c, err, "shelf", "remove shelf member")
		return
	}
	respondSuccess(c, "book removed from shelf")
}

// GET /shelves
func (sc *ShelvesController) ShelvesPage(c *gin.Context) {
	shelves, err := sc.library.ListShelves(c.Request.Context(), GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "shelves page")
		return
	}
	c.HTML(http.StatusOK, "shelves", pageData(c, "Shelves", gin.H{"Shelves": shelves}))
}

// CreateFromForm creates a shelf and re-renders the list. Validation errors
// are shown inline above the list.
// POST /shelves
func (sc *ShelvesController) CreateFromForm(c *gin.Context) {
	ctx := c.Request.Context()
	ownerID := GetUserID(c)

	data := gin.H{}
	if _, err := sc.library.CreateShelf(ctx, ownerID, c.PostForm("name")); err != nil {
		if !entities.IsValidation(err) {
			respondInternalError(c, err, "create shelf form")
			return
		}
		data["Error"] = err.Error()
		data["Name"] = c.PostForm("name")
	}

	shelves, err := sc.library.ListShelves(ctx, ownerID)
	if err != nil {
		respondInternalError(c, err, "create shelf form")
		return
	}
	data["Shelves"] = shelves
	if !isHTMXRequest(c) {
		if data["Error"] == nil {
			c.Redirect(http.StatusSeeOther, "/shelves")
			return
		}
		c.HTML(http.StatusBadRequest, "shelves", pageData(c, "Shelves", data))
		return
	}
	c.HTML(http.StatusOK, "shelf-list", data)
}

// DeleteFromForm deletes a shelf and re-renders the list.
// POST /shelves/:id/delete
func (sc *ShelvesController) DeleteFromForm(c *gin.Context) {
	shelfID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	ownerID := GetUserID(c)

	if err := sc.library.DeleteShelf(ctx, ownerID, shelfID); err != nil {
		respondStoreError(c, err, "shelf", "delete shelf form")
		return
	}
	if !isHTMXRequest(c) {
		c.Redirect(http.StatusSeeOther, "/shelves")
		return
	}

	shelves, err := sc.library.ListShelves(ctx, ownerID)
	if err != nil {
		respondInternalError(c, err, "delete shelf form")
		return
	}
	c.HTML(http.StatusOK, "shelf-list", gin.H{"Shelves": shelves})
}

// GET /shelves/:id
func (sc *ShelvesController) ShelfPage(c *gin.Context) {
	shelfID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	detail, err := sc.shelfDetail(c, shelfID)
	if err != nil {
		if !isNotFound(err) {
			respondInternalError(c, err, "shelf page")
			return
		}
		c.HTML(http.StatusNotFound, "error-page", pageData(c, "Not found", gin.H{"Message": "Shelf not found"}))
		return
	}
	c.HTML(http.StatusOK, "shelf", pageData(c, detail.Shelf.Name, gin.H{
		"Shelf": detail.Shelf,
		"Books": detail.Books,
	}))
}

// RemoveFromForm removes a book from a shelf and re-renders the shelf's books.
// POST /shelves/:id/books/:bookId/remove
func (sc *ShelvesController) RemoveFromForm(c *gin.Context) {
	shelfID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}

	if err := sc.library.RemoveMember(c.Request.Context(), GetUserID(c), shelfID, bookID); err != nil {
		respondStoreError(c, err, "shelf", "remove shelf member form")
		return
	}

	detail, err := sc.shelfDetail(c, shelfID)
	if err != nil {
		respondStoreError(c, err, "shelf", "remove shelf member form")
		return
	}
	respondHTMXOrJSON(c, http.StatusOK, "shelf-books", detail)
}

func (sc *ShelvesController) shelfDetail(c *gin.Context, shelfID uint) (*ShelfDetail, error) {
	ctx := c.Request.Context()
	ownerID := GetUserID(c)

	shelf, err := sc.library.GetShelf(ctx, ownerID, shelfID)
	if err != nil {
		return nil, err
	}
	books, err := sc.library.ShelfBooks(ctx, ownerID, shelfID)
	if err != nil {
		return nil, err
	}
	return &ShelfDetail{Shelf: shelf, Books: view.NewShelfBooks(books)}, nil
}

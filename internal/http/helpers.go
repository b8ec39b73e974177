package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/entities"
)

// GetUserID returns the profile the request acts as.
func GetUserID(c *gin.Context) uint {
	return auth.GetUserID(c)
}

// genericFailure is what users see for transport and store failures.
const genericFailure = "something went wrong, try again"

// ErrorResponse is the body of every JSON error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondInternalError logs err and hides it from the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: genericFailure})
}

func respondConflict(c *gin.Context, message string) {
	c.JSON(http.StatusConflict, ErrorResponse{Error: message, Code: "pending"})
}

func respondSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// respondStoreError maps library errors onto status codes: validation is a
// 400 with the message, missing rows a 404, anything else a logged 500.
func respondStoreError(c *gin.Context, err error, resource, context string) {
	switch {
	case entities.IsValidation(err):
		respondBadRequest(c, err.Error())
	case errors.Is(err, entities.ErrNotFound):
		respondNotFound(c, resource)
	default:
		respondInternalError(c, err, context)
	}
}

// parseIDParam reads an unsigned id from the path, answering 400 itself when
// it is malformed.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(paramName), 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// parseFormID is parseIDParam for form and query values.
func parseFormID(c *gin.Context, field string) (uint, bool) {
	raw := strings.TrimSpace(c.PostForm(field))
	if raw == "" {
		respondBadRequest(c, field+" is required")
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid "+field)
		return 0, false
	}
	return uint(id), true
}

// bookIDParam returns the catalog id from the path. Catalog ids are opaque
// strings, so only emptiness is checked.
func bookIDParam(c *gin.Context) (string, bool) {
	bookID := strings.TrimSpace(c.Param("bookId"))
	if bookID == "" {
		respondBadRequest(c, entities.ErrEmptyBookID.Error())
		return "", false
	}
	return bookID, true
}

func isHTMXRequest(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}

// respondHTMXOrJSON renders template for HTMX and data as JSON otherwise.
func respondHTMXOrJSON(c *gin.Context, status int, template string, data any) {
	if isHTMXRequest(c) {
		c.HTML(status, template, data)
		return
	}
	c.JSON(status, data)
}

// renderFragmentError shows an inline error state. HTMX does not swap 5xx
// responses, so the fragment is sent with 200 and the real status goes in a
// header.
func renderFragmentError(c *gin.Context, status int, message string) {
	c.Header("X-Error-Status", strconv.Itoa(status))
	c.HTML(http.StatusOK, "error", gin.H{"Message": message})
}

func isNotFound(err error) bool {
	return errors.Is(err, entities.ErrNotFound)
}

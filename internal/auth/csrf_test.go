package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	secret := []byte("0123456789abcdef0123456789abcdef")

	writes := 0
	router := gin.New()
	router.Use(CSRFMiddleware(secret, false, nil))
	router.GET("/form", func(c *gin.Context) {
		c.String(http.StatusOK, GetCSRFToken(c))
	})
	router.POST("/form", func(c *gin.Context) {
		writes++
		c.Status(http.StatusNoContent)
	})

	t.Run("missing token is rejected before the handler", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/form", nil)
		req.Header.Set("Accept", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Zero(t, writes)
	})

	t.Run("htmx failure asks for a refresh", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/form", nil)
		req.Header.Set("HX-Request", "true")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "true", w.Header().Get("HX-Refresh"))
		assert.Zero(t, writes)
	})

	t.Run("header token passes", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/form", nil))
		require.Equal(t, http.StatusOK, w.Code)
		token := w.Body.String()
		require.NotEmpty(t, token)

		req := httptest.NewRequest(http.MethodPost, "/form", nil)
		for _, cookie := range w.Result().Cookies() {
			req.AddCookie(cookie)
		}
		req.Header.Set(CSRFTokenHeader, token)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, 1, writes)
	})
}

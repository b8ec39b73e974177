package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
)

const (
	// CSRFTokenHeader carries the token on HTMX and fetch requests.
	CSRFTokenHeader = "X-CSRF-Token"

	csrfContextKey = "csrf_token"
)

// CSRFMiddleware protects form and HTMX posts. Requests carrying a valid
// bearer token are API clients and skip the check.
func CSRFMiddleware(secret []byte, secure bool, authService *Service) gin.HandlerFunc {
	protect := csrf.Protect(
		secret,
		csrf.Secure(secure),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.Path("/"),
		csrf.RequestHeader(CSRFTokenHeader),
		csrf.ErrorHandler(http.HandlerFunc(csrfErrorHandler)),
	)

	return func(c *gin.Context) {
		if hasValidBearer(c, authService) {
			c.Next()
			return
		}

		if !secure {
			// Without TLS the origin check must not assume https.
			c.Request = csrf.PlaintextHTTPRequest(c.Request)
		}

		passed := false
		handler := protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Set(csrfContextKey, csrf.Token(r))
			c.Request = r
			c.Next()
		}))
		handler.ServeHTTP(c.Writer, c.Request)

		// The error handler already answered; later handlers must not run.
		if !passed {
			c.Abort()
		}
	}
}

func csrfErrorHandler(w http.ResponseWriter, r *http.Request) {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"CSRF token invalid or missing"}`))
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		// HTMX swaps nothing on 4xx; ask it to reload so a fresh token is issued.
		w.Header().Set("HX-Refresh", "true")
		w.WriteHeader(http.StatusForbidden)
		return
	}

	if referer := r.Referer(); referer != "" {
		separator := "?"
		if strings.Contains(referer, "?") {
			separator = "&"
		}
		http.Redirect(w, r, referer+separator+"error=Session+expired.+Please+try+again.", http.StatusSeeOther)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Session Expired</title></head>
<body style="font-family: system-ui; max-width: 400px; margin: 100px auto; text-align: center;">
<h1>Session Expired</h1>
<p>Your session has expired or the form submission was invalid.</p>
<p><a href="/">Back to your shelves</a></p>
</body>
</html>`))
}

func hasValidBearer(c *gin.Context, authService *Service) bool {
	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || authService == nil {
		return false
	}
	_, err := authService.ValidateToken(strings.TrimSpace(token))
	return err == nil
}

// GetCSRFToken returns the masked token for the current request, or "" when
// CSRF protection is not installed.
func GetCSRFToken(c *gin.Context) string {
	return c.GetString(csrfContextKey)
}

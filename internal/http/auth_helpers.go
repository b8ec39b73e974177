package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/config"
)

// AuthTemplateData is exposed to templates as .Auth.
type AuthTemplateData struct {
	Enabled   bool
	LoggedIn  bool
	Username  string
	CSRFToken string
}

const authTemplateDataKey = "auth_template_data"

// AuthContextMiddleware computes AuthTemplateData once per request.
func AuthContextMiddleware(authMode config.AuthMode) gin.HandlerFunc {
	authEnabled := authMode == config.AuthModeLocal

	return func(c *gin.Context) {
		data := AuthTemplateData{
			Enabled:   authEnabled,
			CSRFToken: auth.GetCSRFToken(c),
		}
		if authEnabled && auth.IsAuthenticated(c) {
			data.LoggedIn = true
			data.Username = auth.GetUsername(c)
		}

		c.Set(authTemplateDataKey, data)
		c.Next()
	}
}

func GetAuthTemplateData(c *gin.Context) AuthTemplateData {
	if data, exists := c.Get(authTemplateDataKey); exists {
		if authData, ok := data.(AuthTemplateData); ok {
			return authData
		}
	}
	return AuthTemplateData{}
}

// pageData adds the layout's shared fields to a full-page render.
func pageData(c *gin.Context, title string, data gin.H) gin.H {
	if data == nil {
		data = gin.H{}
	}
	data["Title"] = title
	data["Auth"] = GetAuthTemplateData(c)
	return data
}

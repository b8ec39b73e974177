package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/database/users"
	"github.com/mrlokans/bookshelf/internal/entities"
)

// ProfileController shows and edits the acting profile.
type ProfileController struct {
	profiles    ProfileStore
	library     ReadingService
	authService *auth.Service
}

// NewProfileController accepts a nil authService; password changes are then
// unavailable.
func NewProfileController(profiles ProfileStore, library ReadingService, authService *auth.Service) *ProfileController {
	return &ProfileController{
		profiles:    profiles,
		library:     library,
		authService: authService,
	}
}

type profileRequest struct {
	DisplayName string `json:"display_name" form:"display_name"`
	AvatarURL   string `json:"avatar_url" form:"avatar_url"`
}

// ProfileResponse is the profile with reading totals.
type ProfileResponse struct {
	Profile *entities.Profile             `json:"profile"`
	Stats   map[entities.ReadStatus]int64 `json:"stats"`
}

// GET /profile
func (pc *ProfileController) ProfilePage(c *gin.Context) {
	resp, ok := pc.load(c)
	if !ok {
		return
	}
	c.HTML(http.StatusOK, "profile", pageData(c, "Profile", gin.H{
		"Profile":       resp.Profile,
		"Stats":         resp.Stats,
		"HasToken":      resp.Profile.TokenHash != "",
		"CanChangePass": pc.authService != nil && pc.authService.IsAuthEnabled(),
		"Flash":         c.Query("flash"),
	}))
}

// GET /api/profile
func (pc *ProfileController) GetProfile(c *gin.Context) {
	resp, ok := pc.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (pc *ProfileController) load(c *gin.Context) (*ProfileResponse, bool) {
	ctx := c.Request.Context()
	ownerID := GetUserID(c)

	profile, err := pc.profiles.GetProfile(ctx, ownerID)
	if err != nil {
		respondStoreError(c, err, "profile", "load profile")
		return nil, false
	}
	stats, err := pc.library.ReadingStats(ctx, ownerID)
	if err != nil {
		respondInternalError(c, err, "profile stats")
		return nil, false
	}
	return &ProfileResponse{Profile: profile, Stats: stats}, true
}

// UpdateProfile changes display name and avatar.
// POST /profile
// PATCH /api/profile
func (pc *ProfileController) UpdateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	profile, err := pc.profiles.UpdateProfile(c.Request.Context(), GetUserID(c), req.DisplayName, req.AvatarURL)
	switch {
	case errors.Is(err, users.ErrDisplayNameTooLong):
		respondBadRequest(c, err.Error())
		return
	case err != nil:
		respondStoreError(c, err, "profile", "update profile")
		return
	}

	if c.Request.Method == http.MethodPost && !isHTMXRequest(c) {
		c.Redirect(http.StatusSeeOther, "/profile?flash=Profile+saved")
		return
	}
	c.JSON(http.StatusOK, profile)
}

// ChangePassword is only routed in local auth mode.
// POST /profile/password
func (pc *ProfileController) ChangePassword(c *gin.Context) {
	if pc.authService == nil {
		respondNotFound(c, "page")
		return
	}

	newPassword := c.PostForm("new_password")
	if newPassword != c.PostForm("confirm_password") {
		c.HTML(http.StatusBadRequest, "password-result", gin.H{"Error": "New passwords do not match"})
		return
	}

	err := pc.authService.ChangePassword(GetUserID(c), c.PostForm("current_password"), newPassword)
	if err != nil {
		message := "Failed to change password"
		switch {
		case errors.Is(err, auth.ErrInvalidPassword):
			message = "Current password is incorrect"
		case errors.Is(err, auth.ErrPasswordTooShort):
			message = "Password must be at least 12 characters"
		case errors.Is(err, auth.ErrPasswordTooLong):
			message = "Password exceeds maximum length of 72 characters"
		}
		c.HTML(http.StatusBadRequest, "password-result", gin.H{"Error": message})
		return
	}
	c.HTML(http.StatusOK, "password-result", gin.H{"Success": true})
}

// GenerateToken mints a new API token and shows it once.
// POST /profile/token
func (pc *ProfileController) GenerateToken(c *gin.Context) {
	if pc.authService == nil {
		respondNotFound(c, "page")
		return
	}

	token, err := pc.authService.GenerateToken(GetUserID(c))
	if err != nil {
		c.HTML(http.StatusInternalServerError, "token-result", gin.H{"Error": "Failed to generate token"})
		return
	}
	c.HTML(http.StatusOK, "token-result", gin.H{"Token": token})
}

// POST /profile/token/revoke
func (pc *ProfileController) RevokeToken(c *gin.Context) {
	if pc.authService == nil {
		respondNotFound(c, "page")
		return
	}

	if err := pc.authService.RevokeToken(GetUserID(c)); err != nil {
		c.HTML(http.StatusInternalServerError, "token-result", gin.H{"Error": "Failed to revoke token"})
		return
	}
	c.HTML(http.StatusOK, "token-result", gin.H{"Revoked": true})
}

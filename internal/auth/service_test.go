package auth

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/entities"
)

const testPassword = "correct-horse-battery"

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewQuietDatabase(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.EnsureLocalProfile()
	require.NoError(t, err)
	return db.DB
}

func testAuthConfig(mode config.AuthMode) config.Auth {
	return config.Auth{
		Mode:            mode,
		SessionLifetime: time.Hour,
		BcryptCost:      4,
		LockoutDuration: time.Minute,
	}
}

func TestService_CreateProfile(t *testing.T) {
	svc := NewService(setupTestDB(t), testAuthConfig(config.AuthModeLocal))

	tests := []struct {
		name     string
		username string
		email    string
		password string
		role     entities.UserRole
		wantErr  error
	}{
		{"valid admin", "admin", "admin@example.com", testPassword, entities.UserRoleAdmin, nil},
		{"missing username", "", "a@example.com", testPassword, entities.UserRoleReader, ErrUsernameRequired},
		{"missing email", "reader", "", testPassword, entities.UserRoleReader, ErrEmailRequired},
		{"missing password", "reader", "r@example.com", "", entities.UserRoleReader, ErrPasswordRequired},
		{"short password", "reader", "r@example.com", "short", entities.UserRoleReader, ErrPasswordTooShort},
		{"bad username", "a b", "r@example.com", testPassword, entities.UserRoleReader, ErrUsernameInvalid},
		{"bad email", "reader", "not-an-email", testPassword, entities.UserRoleReader, ErrEmailInvalid},
		{"bad role", "reader", "r@example.com", testPassword, entities.UserRole("owner"), ErrInvalidRole},
		{"duplicate username", "admin", "other@example.com", testPassword, entities.UserRoleReader, ErrUserExists},
		{"duplicate email", "other", "admin@example.com", testPassword, entities.UserRoleReader, ErrUserExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile, err := svc.CreateProfile(tt.username, tt.email, tt.password, tt.role)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, profile.ID)
			assert.Equal(t, tt.username, profile.DisplayName)
			assert.NotEqual(t, tt.password, profile.PasswordHash)
		})
	}
}

func TestService_Authenticate(t *testing.T) {
	svc := NewService(setupTestDB(t), testAuthConfig(config.AuthModeLocal))
	created, err := svc.CreateProfile("reader", "reader@example.com", testPassword, entities.UserRoleReader)
	require.NoError(t, err)

	t.Run("by username", func(t *testing.T) {
		profile, err := svc.Authenticate("reader", testPassword)
		require.NoError(t, err)
		assert.Equal(t, created.ID, profile.ID)
		assert.NotNil(t, profile.LastLoginAt)
	})

	t.Run("by email", func(t *testing.T) {
		_, err := svc.Authenticate("reader@example.com", testPassword)
		assert.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Authenticate("reader", "wrong-password-123")
		assert.ErrorIs(t, err, ErrInvalidPassword)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Authenticate("nobody", testPassword)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestService_AuthenticateLocksAfterRepeatedFailures(t *testing.T) {
	svc := NewService(setupTestDB(t), testAuthConfig(config.AuthModeLocal))
	_, err := svc.CreateProfile("reader", "reader@example.com", testPassword, entities.UserRoleReader)
	require.NoError(t, err)

	for i := 0; i < failedLoginLimit; i++ {
		_, err := svc.Authenticate("reader", "wrong-password-123")
		require.ErrorIs(t, err, ErrInvalidPassword)
	}

	_, err = svc.Authenticate("reader", testPassword)
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestService_LocalProfileCannotLogIn(t *testing.T) {
	svc := NewService(setupTestDB(t), testAuthConfig(config.AuthModeLocal))

	_, err := svc.Authenticate("local", "")
	assert.ErrorIs(t, err, ErrUserNotFound)

	hasUsers, err := svc.HasUsers()
	require.NoError(t, err)
	assert.False(t, hasUsers)
}

func TestService_Tokens(t *testing.T) {
	svc := NewService(setupTestDB(t), testAuthConfig(config.AuthModeLocal))
	profile, err := svc.CreateProfile("reader", "reader@example.com", testPassword, entities.UserRoleReader)
	require.NoError(t, err)

	token, err := svc.GenerateToken(profile.ID)
	require.NoError(t, err)
	assert.Len(t, token, 64)

	resolved, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, profile.ID, resolved.ID)

	_, err = svc.ValidateToken("bogus")
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, svc.RevokeToken(profile.ID))
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.GenerateToken(999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_TokenExpiry(t *testing.T) {
	db := setupTestDB(t)
	cfg := testAuthConfig(config.AuthModeLocal)
	cfg.TokenExpiry = time.Hour
	svc := NewService(db, cfg)

	profile, err := svc.CreateProfile("reader", "reader@example.com", testPassword, entities.UserRoleReader)
	require.NoError(t, err)
	token, err := svc.GenerateToken(profile.ID)
	require.NoError(t, err)

	require.NoError(t, db.Model(&entities.Profile{}).Where("id = ?", profile.ID).
		Update("token_created_at", time.Now().Add(-2*time.Hour)).Error)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestService_ChangePassword(t *testing.T) {
	svc := NewService(setupTestDB(t), testAuthConfig(config.AuthModeLocal))
	profile, err := svc.CreateProfile("reader", "reader@example.com", testPassword, entities.UserRoleReader)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ChangePassword(profile.ID, "wrong-password-123", "another-long-pass"), ErrInvalidPassword)
	require.NoError(t, svc.ChangePassword(profile.ID, testPassword, "another-long-pass"))

	_, err = svc.Authenticate("reader", "another-long-pass")
	assert.NoError(t, err)
}

func TestService_IsAuthEnabled(t *testing.T) {
	db := setupTestDB(t)
	assert.True(t, NewService(db, testAuthConfig(config.AuthModeLocal)).IsAuthEnabled())
	assert.False(t, NewService(db, testAuthConfig(config.AuthModeNone)).IsAuthEnabled())
}

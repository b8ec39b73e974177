package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword(testPassword, 4)
	require.NoError(t, err)

	assert.NoError(t, CheckPassword(testPassword, hash))
	assert.ErrorIs(t, CheckPassword("something-else-entirely", hash), ErrInvalidPassword)

	_, err = HashPassword("short", 4)
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	_, err = HashPassword(strings.Repeat("x", 73), 4)
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestGenerateAPIToken(t *testing.T) {
	plain, hash, err := GenerateAPIToken()
	require.NoError(t, err)
	assert.Equal(t, HashToken(plain), hash)
	assert.NotEqual(t, plain, hash)

	other, _, err := GenerateAPIToken()
	require.NoError(t, err)
	assert.NotEqual(t, plain, other)
}

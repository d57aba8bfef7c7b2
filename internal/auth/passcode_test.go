package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"labsite/internal/types"
)

func TestPasscodeVerifier_Plain(t *testing.T) {
	v := NewPasscodeVerifier("open-sesame", "")

	assert.NoError(t, v.Verify("open-sesame"))

	err := v.Verify("wrong")
	require.Error(t, err)
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeAuthInvalidPasscode, appErr.Code)
}

func TestPasscodeVerifier_BcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("open-sesame"), bcrypt.MinCost)
	require.NoError(t, err)

	v := NewPasscodeVerifier("", types.SecretString(hash))

	assert.NoError(t, v.Verify("open-sesame"))
	assert.Error(t, v.Verify("wrong"))
}

func TestPasscodeVerifier_HashTakesPrecedence(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hashed-value"), bcrypt.MinCost)
	require.NoError(t, err)

	v := NewPasscodeVerifier("plain-value", types.SecretString(hash))

	assert.NoError(t, v.Verify("hashed-value"))
	assert.Error(t, v.Verify("plain-value"))
}

func TestPasscodeVerifier_Unconfigured(t *testing.T) {
	v := NewPasscodeVerifier("", "")

	assert.False(t, v.Configured())

	err := v.Verify("anything")
	require.Error(t, err)
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalConfig, appErr.Code)
}

package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/winnipeg-connect/backend/internal/models"
)

func testTokenManager() *TokenManager {
	return NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 30*24*time.Hour)
}

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := testTokenManager()
	user := &models.User{ID: uuid.New(), Role: models.RoleProvider}

	pair, accessExp, refreshExp, err := tm.GeneratePair(user)
	assert.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.True(t, refreshExp.After(accessExp))

	userID, role, err := tm.ParseAccess(pair.AccessToken)
	assert.NoError(t, err)
	assert.Equal(t, user.ID, userID)
	assert.Equal(t, models.RoleProvider, role)

	claims, err := tm.ParseRefresh(pair.RefreshToken)
	assert.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenManager_RefreshTokensAreUnique(t *testing.T) {
	tm := testTokenManager()
	user := &models.User{ID: uuid.New(), Role: models.RoleSeeker}

	first, _, _, err := tm.GeneratePair(user)
	assert.NoError(t, err)
	second, _, _, err := tm.GeneratePair(user)
	assert.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
}

func TestTokenManager_RejectsCrossSecretUse(t *testing.T) {
	tm := testTokenManager()
	user := &models.User{ID: uuid.New(), Role: models.RoleSeeker}

	pair, _, _, err := tm.GeneratePair(user)
	assert.NoError(t, err)

	// Access and refresh tokens are signed with different secrets.
	_, err = tm.ParseRefresh(pair.AccessToken)
	assert.Error(t, err)

	other := NewTokenManager("wrong", "wrong", time.Minute, time.Hour)
	_, _, err = other.ParseAccess(pair.AccessToken)
	assert.Error(t, err)
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	tm := NewTokenManager("access-secret", "refresh-secret", -time.Minute, -time.Minute)
	user := &models.User{ID: uuid.New(), Role: models.RoleSeeker}

	pair, _, _, err := tm.GeneratePair(user)
	assert.NoError(t, err)

	verifier := testTokenManager()
	_, _, err = verifier.ParseAccess(pair.AccessToken)
	assert.Error(t, err)

	_, err = verifier.ParseRefresh(pair.RefreshToken)
	assert.Error(t, err)
}

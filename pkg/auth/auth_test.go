package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestTokenManager_IssueAndParse(t *testing.T) {
	m, err := NewTokenManager("secret", time.Minute, time.Hour)
	require.NoError(t, err)

	p := Principal{UserID: "u1", OrganizationID: "o1", Role: "ADMIN"}
	pair, err := m.Issue(p)
	require.NoError(t, err)
	assert.NotEqual(t, pair.Access, pair.Refresh)
	assert.True(t, pair.RefreshExpiresAt.After(pair.AccessExpiresAt))

	got, err := m.Parse(pair.Access, AccessToken)
	require.NoError(t, err)
	assert.Equal(t, p, *got)

	_, err = m.Parse(pair.Access, RefreshToken)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	got, err = m.Parse(pair.Refresh, RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
}

func TestTokenManager_Rejects(t *testing.T) {
	m, err := NewTokenManager("secret", time.Minute, time.Hour)
	require.NoError(t, err)

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Parse("not-a-token", AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other secret", func(t *testing.T) {
		other, _ := NewTokenManager("other", time.Minute, time.Hour)
		pair, err := other.Issue(Principal{UserID: "u1"})
		require.NoError(t, err)
		_, err = m.Parse(pair.Access, AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		past, _ := NewTokenManager("secret", time.Minute, time.Hour)
		past.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }
		pair, err := past.Issue(Principal{UserID: "u1"})
		require.NoError(t, err)
		_, err = m.Parse(pair.Access, AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("empty secret", func(t *testing.T) {
		_, err := NewTokenManager("", time.Minute, time.Hour)
		assert.Error(t, err)
	})
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("s3cretpass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cretpass", hash)

	ok, err := h.Compare(hash, "s3cretpass")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Compare(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.Compare("not-a-hash", "x")
	assert.Error(t, err)

	assert.Equal(t, bcrypt.DefaultCost, NewPasswordHasher(0).cost)
}

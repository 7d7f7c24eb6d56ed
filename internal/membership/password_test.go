// internal/membership/password_test.go
package membership

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	encoded, err := HashPassword("s3cret!pass")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "argon2id$"))

	ok, err := VerifyPassword("s3cret!pass", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPasswordSaltsDiffer(t *testing.T) {
	a, err := HashPassword("same password")
	require.NoError(t, err)
	b, err := HashPassword("same password")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	_, err := VerifyPassword("anything", "not-a-hash")
	assert.Error(t, err)

	_, err = VerifyPassword("anything", "bcrypt$abc$def")
	assert.Error(t, err)
}

func TestTokenIssueVerify(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")

	token, err := issuer.Issue("RMS20261234", true)
	require.NoError(t, err)

	studentID, isAdmin, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "RMS20261234", studentID)
	assert.True(t, isAdmin)

	// a token signed with a different secret must not verify
	other := NewTokenIssuer("other-secret")
	_, _, err = other.Verify(token)
	assert.Error(t, err)
}

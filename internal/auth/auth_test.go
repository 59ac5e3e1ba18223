package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	a := New("test-secret")

	token, err := a.IssueToken("u1", UserTypeRegular, time.Hour)
	require.NoError(t, err)

	sess, err := a.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", sess.UserID)
	assert.Equal(t, UserTypeRegular, sess.Type)
}

func TestGuestType(t *testing.T) {
	a := New("test-secret")

	token, err := a.IssueToken("guest-42", UserTypeGuest, time.Hour)
	require.NoError(t, err)

	sess, err := a.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, UserTypeGuest, sess.Type)
}

func TestVerifyWrongSecret(t *testing.T) {
	token, err := New("secret-a").IssueToken("u1", UserTypeRegular, time.Hour)
	require.NoError(t, err)

	_, err = New("secret-b").Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyExpired(t *testing.T) {
	a := New("test-secret")

	token, err := a.IssueToken("u1", UserTypeRegular, -time.Minute)
	require.NoError(t, err)

	_, err = a.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyGarbage(t *testing.T) {
	_, err := New("test-secret").Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

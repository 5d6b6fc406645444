package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/abhisek/examquest/internal/config"
)

func TestLocal_UserID(t *testing.T) {
	p, err := Local("secret", "user-42")
	require.NoError(t, err)

	id, err := p.UserID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "user-42", id)

	tok, err := p.Token(context.Background())
	require.NoError(t, err)
	sub, err := Verify("secret", tok)
	require.NoError(t, err)
	assert.Equal(t, "user-42", sub)
}

func TestVerify_WrongSecret(t *testing.T) {
	tok, err := Mint("secret", "u1", time.Minute)
	require.NoError(t, err)

	_, err = Verify("other", tok)
	var authErr *AuthError
	assert.True(t, errors.As(err, &authErr))
}

func TestSignedOut(t *testing.T) {
	p := FromConfig(context.Background(), config.AuthConfig{})

	_, err := p.UserID(context.Background())
	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.ErrorIs(t, err, ErrSignedOut)
}

func TestSubjectOf_Garbage(t *testing.T) {
	_, err := SubjectOf("not-a-jwt")
	var authErr *AuthError
	assert.True(t, errors.As(err, &authErr))
}

func TestSubjectOf_NoSubject(t *testing.T) {
	tok, err := Mint("secret", "", time.Minute)
	require.NoError(t, err)
	_, err = SubjectOf(tok)
	assert.Error(t, err)
}

func TestToken_Expired(t *testing.T) {
	p := FromTokenSource(oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: "x",
		Expiry:      time.Now().Add(-time.Hour),
	}))
	_, err := p.Token(context.Background())
	var authErr *AuthError
	assert.True(t, errors.As(err, &authErr))
}

// Package identity supplies the signed-in user's bearer token and user id.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/abhisek/examquest/internal/config"
)

// ErrSignedOut is returned when no credentials are configured.
var ErrSignedOut = errors.New("not signed in")

// AuthError reports a missing or unusable user identity. It is fatal to the
// current action and routes the user to sign-in.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication required: %v", e.Err)
	}
	return "authentication required"
}

func (e *AuthError) Unwrap() error { return e.Err }

// Provider hands out a short-lived bearer token on demand.
type Provider interface {
	// Token returns a bearer token for the backend.
	Token(ctx context.Context) (string, error)

	// UserID returns the signed-in user's id.
	UserID(ctx context.Context) (string, error)
}

// TokenSourceProvider adapts an oauth2.TokenSource. The user id is read
// from the access token's "sub" claim; the backend verifies the signature.
type TokenSourceProvider struct {
	src oauth2.TokenSource
}

// FromTokenSource wraps src. A nil src yields a provider that is signed out.
func FromTokenSource(src oauth2.TokenSource) *TokenSourceProvider {
	return &TokenSourceProvider{src: src}
}

// FromConfig builds a provider from auth configuration. A refresh token with
// a token URL gives an auto-refreshing source; otherwise a static access
// token is used.
func FromConfig(ctx context.Context, cfg config.AuthConfig) *TokenSourceProvider {
	switch {
	case cfg.RefreshToken != "" && cfg.TokenURL != "":
		oc := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: cfg.TokenURL},
		}
		return FromTokenSource(oc.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken}))
	case cfg.Token != "":
		return FromTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}))
	default:
		return FromTokenSource(nil)
	}
}

func (p *TokenSourceProvider) Token(ctx context.Context) (string, error) {
	if p.src == nil {
		return "", &AuthError{Err: ErrSignedOut}
	}
	tok, err := p.src.Token()
	if err != nil {
		return "", &AuthError{Err: fmt.Errorf("fetch token: %w", err)}
	}
	if !tok.Valid() {
		return "", &AuthError{Err: errors.New("token expired")}
	}
	return tok.AccessToken, nil
}

func (p *TokenSourceProvider) UserID(ctx context.Context) (string, error) {
	tok, err := p.Token(ctx)
	if err != nil {
		return "", err
	}
	return SubjectOf(tok)
}

// SubjectOf returns the "sub" claim of a JWT without verifying it.
func SubjectOf(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", &AuthError{Err: fmt.Errorf("parse token: %w", err)}
	}
	if claims.Subject == "" {
		return "", &AuthError{Err: errors.New("token has no subject")}
	}
	return claims.Subject, nil
}

// Mint signs an HS256 token for userID. It backs offline mode and the
// development server, which share the secret.
func Mint(secret, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    "examquest",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks an HS256 token minted with secret and returns its subject.
func Verify(secret, token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", &AuthError{Err: err}
	}
	if claims.Subject == "" {
		return "", &AuthError{Err: errors.New("token has no subject")}
	}
	return claims.Subject, nil
}

// Local returns a provider for a locally minted identity.
func Local(secret, userID string) (*TokenSourceProvider, error) {
	tok, err := Mint(secret, userID, 24*time.Hour)
	if err != nil {
		return nil, err
	}
	return FromTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok})), nil
}

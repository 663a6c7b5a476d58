package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fivetwenty-io/guacrest/pkg/guac"
)

// Static errors for err113 compliance.
var (
	ErrStaticTokenCannotRefresh = errors.New("static token cannot be refreshed")
	ErrNoToken                  = errors.New("no token available")
	ErrCredentialsRequired      = fmt.Errorf("username and password are required: %w", guac.ErrNoCredentials)
)

// TokenManager is the credential context the dispatcher reads on every call.
type TokenManager interface {
	// GetToken returns the token to send, acquiring one if needed.
	GetToken(ctx context.Context) (string, error)
	// RefreshToken discards the current token and acquires a new one.
	RefreshToken(ctx context.Context) error
	// SetToken replaces the current token.
	SetToken(token string, expiresAt time.Time)
}

// StaticTokenManager provides a pre-acquired token.
type StaticTokenManager struct {
	store *TokenStore
}

// NewStaticTokenManager creates a manager that always returns token.
func NewStaticTokenManager(token string) *StaticTokenManager {
	store := NewTokenStore()
	store.Set(&Token{AccessToken: token})

	return &StaticTokenManager{store: store}
}

// GetToken returns the static token.
func (m *StaticTokenManager) GetToken(ctx context.Context) (string, error) {
	token := m.store.Get()
	if !token.Valid() {
		return "", ErrNoToken
	}

	return token.AccessToken, nil
}

// RefreshToken always fails; a static token has no way to renew itself.
func (m *StaticTokenManager) RefreshToken(ctx context.Context) error {
	return ErrStaticTokenCannotRefresh
}

// SetToken replaces the static token.
func (m *StaticTokenManager) SetToken(token string, expiresAt time.Time) {
	m.store.Set(&Token{AccessToken: token, ExpiresAt: expiresAt})
}

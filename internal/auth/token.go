package auth

import (
	"sync"
	"time"
)

// Token is a Guacamole session token and the identity it was issued for.
type Token struct {
	AccessToken          string    `json:"authToken"`
	Username             string    `json:"username"`
	DataSource           string    `json:"dataSource"`
	AvailableDataSources []string  `json:"availableDataSources"`
	ExpiresAt            time.Time `json:"-"`
}

// Valid reports whether the token can be sent. Guacamole tokens carry no
// expiry, so a zero ExpiresAt is treated as valid until the server rejects it.
func (t *Token) Valid() bool {
	if t == nil || t.AccessToken == "" {
		return false
	}

	if t.ExpiresAt.IsZero() {
		return true
	}

	return time.Now().Before(t.ExpiresAt)
}

// TokenStore holds the current token. It is safe for concurrent use.
type TokenStore struct {
	mutex sync.RWMutex
	token *Token
}

// NewTokenStore creates an empty store.
func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// Get returns the stored token or nil.
func (s *TokenStore) Get() *Token {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.token
}

// Set replaces the stored token.
func (s *TokenStore) Set(token *Token) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.token = token
}

// Clear drops the stored token.
func (s *TokenStore) Clear() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.token = nil
}

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/fivetwenty-io/guacrest/internal/constants"
	"github.com/fivetwenty-io/guacrest/pkg/guac"
)

// SessionConfig configures a SessionTokenManager.
type SessionConfig struct {
	BaseURL    string
	Username   string
	Password   string
	HTTPClient *http.Client
}

// SessionTokenManager obtains a token from api/tokens with a username and
// password and reuses it until Invalidate, RefreshToken or Logout.
type SessionTokenManager struct {
	config     *SessionConfig
	httpClient *http.Client
	store      *TokenStore
	loginMutex sync.Mutex
}

// NewSessionTokenManager creates a session token manager.
func NewSessionTokenManager(config *SessionConfig) *SessionTokenManager {
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = cleanhttp.DefaultPooledClient()
		httpClient.Timeout = constants.ShortHTTPTimeout
	}

	return &SessionTokenManager{
		config:     config,
		httpClient: httpClient,
		store:      NewTokenStore(),
	}
}

// GetToken returns the current token, logging in when there is none.
func (m *SessionTokenManager) GetToken(ctx context.Context) (string, error) {
	token := m.store.Get()
	if token.Valid() {
		return token.AccessToken, nil
	}

	m.loginMutex.Lock()
	defer m.loginMutex.Unlock()

	// Another caller may have logged in while we waited.
	token = m.store.Get()
	if token.Valid() {
		return token.AccessToken, nil
	}

	token, err := m.login(ctx)
	if err != nil {
		return "", err
	}

	m.store.Set(token)

	return token.AccessToken, nil
}

// RefreshToken discards the current token and logs in again.
func (m *SessionTokenManager) RefreshToken(ctx context.Context) error {
	m.loginMutex.Lock()
	defer m.loginMutex.Unlock()

	m.store.Clear()

	token, err := m.login(ctx)
	if err != nil {
		return err
	}

	m.store.Set(token)

	return nil
}

// SetToken replaces the current token.
func (m *SessionTokenManager) SetToken(token string, expiresAt time.Time) {
	m.store.Set(&Token{AccessToken: token, ExpiresAt: expiresAt})
}

// Invalidate drops the current token so the next call logs in again.
func (m *SessionTokenManager) Invalidate() {
	m.store.Clear()
}

// Session returns the identity of the current token, or nil.
func (m *SessionTokenManager) Session() *Token {
	return m.store.Get()
}

// Logout revokes the current session on the server and drops the token.
func (m *SessionTokenManager) Logout(ctx context.Context) error {
	token := m.store.Get()
	if !token.Valid() {
		return nil
	}

	defer m.store.Clear()

	endpoint := strings.TrimSuffix(m.config.BaseURL, "/") + "/" + constants.APIPathSession

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating logout request: %w", err)
	}

	req.Header.Set(guac.TokenHeader, token.AccessToken)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return &guac.TransportError{Method: http.MethodDelete, Path: constants.APIPathSession, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("logging out: %w", guac.NewResponseError(resp.StatusCode, body))
	}

	return nil
}

func (m *SessionTokenManager) login(ctx context.Context) (*Token, error) {
	if m.config.Username == "" || m.config.Password == "" {
		return nil, ErrCredentialsRequired
	}

	form := url.Values{}
	form.Set("username", m.config.Username)
	form.Set("password", m.config.Password)

	endpoint := strings.TrimSuffix(m.config.BaseURL, "/") + "/" + constants.APIPathTokens

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating login request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, &guac.TransportError{Method: http.MethodPost, Path: constants.APIPathTokens, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &guac.TransportError{Method: http.MethodPost, Path: constants.APIPathTokens, Err: err}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("logging in: %w", guac.NewResponseError(resp.StatusCode, body))
	}

	var token Token

	err = json.Unmarshal(body, &token)
	if err != nil {
		return nil, fmt.Errorf("parsing token response: %w", err)
	}

	if token.AccessToken == "" {
		return nil, ErrNoToken
	}

	return &token, nil
}

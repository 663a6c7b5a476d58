// Package guacclient provides the main entry point for creating Guacamole API clients
package guacclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/fivetwenty-io/guacrest/internal/client"
	"github.com/fivetwenty-io/guacrest/pkg/guac"
)

// New creates a new Guacamole API client. config is not modified.
func New(ctx context.Context, config *guac.Config) (guac.Client, error) {
	if config == nil {
		return nil, guac.ErrConfigRequired
	}

	if config.BaseURL == "" {
		return nil, guac.ErrBaseURLRequired
	}

	normalized := *config
	normalized.BaseURL = NormalizeBaseURL(config.BaseURL)

	// Use the internal client implementation
	guacClient, err := client.New(ctx, &normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return guacClient, nil
}

// NormalizeBaseURL trims trailing slashes and defaults the scheme to https.
func NormalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}

	return baseURL
}

// NewWithToken creates a new client with a base URL and a pre-acquired token.
func NewWithToken(ctx context.Context, baseURL, token string) (guac.Client, error) {
	return New(ctx, &guac.Config{
		BaseURL: baseURL,
		Token:   token,
	})
}

// NewWithPassword creates a new client that logs in with username and password
// on first use.
func NewWithPassword(ctx context.Context, baseURL, username, password string) (guac.Client, error) {
	return New(ctx, &guac.Config{
		BaseURL:  baseURL,
		Username: username,
		Password: password,
	})
}

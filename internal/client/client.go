package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/fivetwenty-io/guacrest/internal/auth"
	"github.com/fivetwenty-io/guacrest/internal/constants"
	"github.com/fivetwenty-io/guacrest/internal/http"
	"github.com/fivetwenty-io/guacrest/pkg/guac"
)

// Static errors for err113 compliance.
var (
	ErrBaseURLRequired = errors.New("base URL is required")
)

// Client implements guac.Client.
type Client struct {
	httpClient   *http.Client
	tokenManager auth.TokenManager
	baseURL      string
	logger       guac.Logger

	caches   []guac.Cache
	natsConn *nats.Conn

	// Resource clients
	users       *UsersClient
	userGroups  *UserGroupsClient
	connections *ConnectionsClient
}

// createTokenManager creates the token manager matching the configured
// credentials. A nil manager sends unauthenticated requests.
func createTokenManager(config *guac.Config) auth.TokenManager {
	if config.Token != "" {
		return auth.NewStaticTokenManager(config.Token)
	}

	if config.Username != "" && config.Password != "" {
		sessionConfig := &auth.SessionConfig{
			BaseURL:  config.BaseURL,
			Username: config.Username,
			Password: config.Password,
		}

		return auth.NewSessionTokenManager(sessionConfig)
	}

	return nil
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *guac.Config) []http.Option {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.HTTPTimeout))
	}

	if config.RetryMax > 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.DefaultRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		httpOpts = append(httpOpts, http.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	if len(config.Headers) > 0 {
		httpOpts = append(httpOpts, http.WithRequestInterceptor(guac.HeaderInterceptor(config.Headers)))
	}

	for _, interceptor := range config.RequestInterceptors {
		httpOpts = append(httpOpts, http.WithRequestInterceptor(interceptor))
	}

	if config.Metrics != nil {
		httpOpts = append(httpOpts, http.WithResponseInterceptor(guac.MetricsResponseInterceptor(config.Metrics)))
	}

	for _, interceptor := range config.ResponseInterceptors {
		httpOpts = append(httpOpts, http.WithResponseInterceptor(interceptor))
	}

	return httpOpts
}

// New creates a new Guacamole API client.
func New(ctx context.Context, config *guac.Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, ErrBaseURLRequired
	}

	return NewWithTokenManager(ctx, config, createTokenManager(config))
}

// NewWithTokenManager creates a new Guacamole API client with a custom token
// manager.
func NewWithTokenManager(_ context.Context, config *guac.Config, tokenManager auth.TokenManager) (*Client, error) {
	if config.BaseURL == "" {
		return nil, ErrBaseURLRequired
	}

	httpClient := http.NewClient(config.BaseURL, tokenManager, createHTTPClientOptions(config)...)

	client := &Client{
		httpClient:   httpClient,
		tokenManager: tokenManager,
		baseURL:      config.BaseURL,
		logger:       config.Logger,
	}

	err := client.initializeResourceClients(config.Cache)
	if err != nil {
		_ = client.Close()

		return nil, err
	}

	return client, nil
}

// initializeResourceClients gives every resource client its own cache.
func (c *Client) initializeResourceClients(cacheConfig *guac.CacheConfig) error {
	cacheConfig, err := c.shareNATSConnection(cacheConfig)
	if err != nil {
		return err
	}

	newCache := func(namespace string) (guac.Cache, error) {
		cache, err := guac.NewCacheFromConfig(cacheConfig, namespace)
		if err != nil {
			return nil, fmt.Errorf("creating %s cache: %w", namespace, err)
		}

		c.caches = append(c.caches, cache)

		return cache, nil
	}

	usersCache, err := newCache(constants.ResourceUsers)
	if err != nil {
		return err
	}

	groupsCache, err := newCache(constants.ResourceUserGroups)
	if err != nil {
		return err
	}

	connectionsCache, err := newCache(constants.ResourceConnections)
	if err != nil {
		return err
	}

	c.users = NewUsersClient(c.httpClient, usersCache, c.logger)
	c.userGroups = NewUserGroupsClient(c.httpClient, groupsCache, c.logger)
	c.connections = NewConnectionsClient(c.httpClient, connectionsCache, c.logger)

	if c.logger != nil {
		c.logger.Debug("resource clients initialized", map[string]interface{}{
			"base_url":   c.baseURL,
			"cache_type": cacheType(cacheConfig),
		})
	}

	return nil
}

// shareNATSConnection opens one NATS connection for all resource caches
// instead of one per bucket.
func (c *Client) shareNATSConnection(config *guac.CacheConfig) (*guac.CacheConfig, error) {
	if config == nil || !usesNATS(config.Type) || config.NATS == nil || config.NATS.Conn != nil {
		return config, nil
	}

	if config.NATS.URL == "" {
		return nil, guac.ErrNATSConnectionNeeded
	}

	conn, err := nats.Connect(config.NATS.URL, nats.Name("guacrest-cache"))
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	c.natsConn = conn

	natsConfig := *config.NATS
	natsConfig.Conn = conn

	shared := *config
	shared.NATS = &natsConfig

	return &shared, nil
}

func usesNATS(cacheType guac.CacheType) bool {
	return cacheType == guac.CacheTypeNATS || cacheType == guac.CacheTypeLayered
}

func cacheType(config *guac.CacheConfig) guac.CacheType {
	if config == nil || config.Type == "" {
		return guac.CacheTypeMemory
	}

	return config.Type
}

// TokenManager returns the token manager for this client.
func (c *Client) TokenManager() auth.TokenManager {
	return c.tokenManager
}

// Session returns the identity of the current session token, or nil when the
// client was not configured with a username and password.
func (c *Client) Session() *auth.Token {
	session, ok := c.tokenManager.(*auth.SessionTokenManager)
	if !ok {
		return nil
	}

	return session.Session()
}

// Users implements guac.Client.Users.
func (c *Client) Users() guac.UsersClient {
	return c.users
}

// UserGroups implements guac.Client.UserGroups.
func (c *Client) UserGroups() guac.UserGroupsClient {
	return c.userGroups
}

// Connections implements guac.Client.Connections.
func (c *Client) Connections() guac.ConnectionsClient {
	return c.connections
}

// Stats implements guac.Client.Stats.
func (c *Client) Stats() map[string]guac.CacheStats {
	return map[string]guac.CacheStats{
		constants.ResourceUsers:       c.users.Stats(),
		constants.ResourceUserGroups:  c.userGroups.Stats(),
		constants.ResourceConnections: c.connections.Stats(),
	}
}

// Logout implements guac.Client.Logout.
func (c *Client) Logout(ctx context.Context) error {
	session, ok := c.tokenManager.(*auth.SessionTokenManager)
	if !ok {
		return nil
	}

	err := session.Logout(ctx)
	if err != nil {
		return fmt.Errorf("logging out: %w", err)
	}

	return nil
}

// Close implements guac.Client.Close.
func (c *Client) Close() error {
	for _, cache := range c.caches {
		if closer, ok := cache.(interface{ Close() }); ok {
			closer.Close()
		}
	}

	c.caches = nil

	if c.natsConn != nil {
		c.natsConn.Close()
		c.natsConn = nil
	}

	return nil
}

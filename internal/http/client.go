// Package http is the request dispatcher shared by every resource client. It
// injects the session token, sends exactly one request unless retries were
// configured, and translates every failure into the guac error taxonomy.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/guacrest/internal/auth"
	"github.com/fivetwenty-io/guacrest/internal/constants"
	"github.com/fivetwenty-io/guacrest/pkg/guac"
)

// Logger is the logging interface used by the dispatcher.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Request describes one call. Path is relative to the base URL and must
// already be escaped.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    interface{}
	Headers map[string]string
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Client dispatches requests against one Guacamole base URL.
type Client struct {
	baseURL      string
	tokenManager auth.TokenManager
	httpClient   *retryablehttp.Client
	logger       Logger
	debug        bool
	userAgent    string
	chain        *guac.InterceptorChain
	extraReq     []guac.RequestInterceptor
	extraResp    []guac.ResponseInterceptor
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request and response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithRetryConfig enables transport retries on connection errors, 429 and 5xx.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = retryMax
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

// WithTimeout sets the overall timeout of one exchange.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient.Timeout = timeout
	}
}

// WithTransport replaces the underlying round tripper.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient.Transport = transport
	}
}

// WithRequestInterceptor appends a request interceptor after the built-in ones.
func WithRequestInterceptor(interceptor guac.RequestInterceptor) Option {
	return func(c *Client) {
		c.extraReq = append(c.extraReq, interceptor)
	}
}

// WithResponseInterceptor appends a response interceptor after the built-in ones.
func WithResponseInterceptor(interceptor guac.ResponseInterceptor) Option {
	return func(c *Client) {
		c.extraResp = append(c.extraResp, interceptor)
	}
}

// NewClient creates a dispatcher. A nil tokenManager sends unauthenticated
// requests.
func NewClient(baseURL string, tokenManager auth.TokenManager, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = cleanhttp.DefaultPooledClient()
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout
	retryClient.RetryMax = constants.DefaultRetryMax
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.Logger = nil
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		tokenManager: tokenManager,
		httpClient:   retryClient,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.logger != nil && retryClient.RetryMax > 0 {
		retryClient.Logger = retryablehttp.LeveledLogger(leveledLogger{inner: client.logger})
	}

	client.chain = client.buildChain()

	return client
}

func (c *Client) buildChain() *guac.InterceptorChain {
	chain := guac.NewInterceptorChain()

	if c.tokenManager != nil {
		chain.AddRequestInterceptor(guac.AuthenticationInterceptor(c.tokenManager.GetToken))
	}

	if c.debug && c.logger != nil {
		chain.AddRequestInterceptor(guac.LoggingInterceptor(c.logger))
		chain.AddResponseInterceptor(guac.LoggingResponseInterceptor(c.logger))
	}

	for _, interceptor := range c.extraReq {
		chain.AddRequestInterceptor(interceptor)
	}

	for _, interceptor := range c.extraResp {
		chain.AddResponseInterceptor(interceptor)
	}

	return chain
}

// BaseURL returns the base URL requests are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends req. On a non-2xx status the response is returned together with
// an *guac.HTTPError or *guac.AuthExpiredError. On a transport failure the
// response is nil and the error is a *guac.TransportError.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	intercepted, err := c.prepare(req)
	if err != nil {
		return nil, err
	}

	err = c.chain.ExecuteRequestInterceptors(ctx, intercepted)
	if err != nil {
		return nil, err
	}

	var body interface{}
	if len(intercepted.Body) > 0 {
		body = intercepted.Body
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, intercepted.Method, c.resolve(intercepted), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header = intercepted.Headers

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if httpResp != nil && httpResp.Body != nil {
			_ = httpResp.Body.Close()
		}

		return nil, &guac.TransportError{Method: req.Method, Path: req.Path, Err: err}
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &guac.TransportError{Method: req.Method, Path: req.Path, Err: err}
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
	}

	interceptedResp := &guac.Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		interceptedResp.Error = guac.NewResponseError(resp.StatusCode, respBody)
	}

	err = c.chain.ExecuteResponseInterceptors(ctx, intercepted, interceptedResp)
	if err != nil {
		return resp, err
	}

	if interceptedResp.Error != nil {
		return resp, interceptedResp.Error
	}

	return resp, nil
}

func (c *Client) prepare(req *Request) (*guac.Request, error) {
	headers := make(http.Header)
	headers.Set("Accept", "application/json")

	if c.userAgent != "" {
		headers.Set("User-Agent", c.userAgent)
	}

	var body []byte

	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}

		body = encoded

		headers.Set("Content-Type", "application/json")
	}

	for key, value := range req.Headers {
		headers.Set(key, value)
	}

	return &guac.Request{
		Method:  req.Method,
		Path:    req.Path,
		Query:   req.Query,
		Headers: headers,
		Body:    body,
	}, nil
}

func (c *Client) resolve(req *guac.Request) string {
	var builder strings.Builder

	builder.WriteString(c.baseURL)
	builder.WriteString("/")
	builder.WriteString(strings.TrimPrefix(req.Path, "/"))

	if len(req.Query) > 0 {
		builder.WriteString("?")
		builder.WriteString(req.Query.Encode())
	}

	return builder.String()
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

// Patch performs a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}

// leveledLogger adapts Logger to retryablehttp.LeveledLogger.
type leveledLogger struct {
	inner Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	// Intermediate failures are retried, so they are warnings.
	l.inner.Warn(msg, toFields(keysAndValues))
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.inner.Warn(msg, toFields(keysAndValues))
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.inner.Info(msg, toFields(keysAndValues))
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.inner.Debug(msg, toFields(keysAndValues))
}

func toFields(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}

		// retryablehttp passes the request under "request"; keep it short.
		if req, isReq := keysAndValues[i+1].(*http.Request); isReq {
			fields[key] = req.Method + " " + req.URL.Path

			continue
		}

		fields[key] = keysAndValues[i+1]
	}

	return fields
}

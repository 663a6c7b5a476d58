// Package resource implements the request/cache/invalidation protocol shared
// by every Guacamole directory resource (users, user groups, connections).
//
// Reads consult the cache and populate it on a miss. Writes never read the
// cache and clear it wholesale, for every data source, once the server has
// accepted the write. A failed write leaves the cache untouched.
package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/fivetwenty-io/guacrest/internal/constants"
	internalhttp "github.com/fivetwenty-io/guacrest/internal/http"
	"github.com/fivetwenty-io/guacrest/pkg/guac"
)

// Dispatcher sends one request. *internalhttp.Client implements it.
type Dispatcher interface {
	Do(ctx context.Context, req *internalhttp.Request) (*internalhttp.Response, error)
}

// KeyFunc extracts the stable key that addresses a resource in URLs.
type KeyFunc[T any] func(T) string

// Client is the generic CRUD and patch surface for one resource type.
type Client[T any] struct {
	dispatcher   Dispatcher
	cache        guac.Cache
	resourceType string
	key          KeyFunc[T]
	logger       guac.Logger

	requireKeyOnCreate bool

	hits          atomic.Int64
	misses        atomic.Int64
	sets          atomic.Int64
	invalidations atomic.Int64
}

// Option configures a Client.
type Option func(*options)

type options struct {
	logger             guac.Logger
	requireKeyOnCreate bool
}

// WithLogger sets the logger used for cache degradation warnings.
func WithLogger(logger guac.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithServerAssignedKeys lets Create send resources without a key, for
// resource types whose identifiers are generated by the server.
func WithServerAssignedKeys() Option {
	return func(o *options) {
		o.requireKeyOnCreate = false
	}
}

// New creates a resource client. resourceType is the path segment naming the
// collection ("users"). A nil cache disables caching.
func New[T any](dispatcher Dispatcher, cache guac.Cache, resourceType string, key KeyFunc[T], opts ...Option) *Client[T] {
	config := &options{requireKeyOnCreate: true}
	for _, opt := range opts {
		opt(config)
	}

	if cache == nil {
		cache = guac.NewNoOpCache()
	}

	logger := config.logger
	if logger == nil {
		logger = nopLogger{}
	}

	return &Client[T]{
		dispatcher:         dispatcher,
		cache:              cache,
		resourceType:       resourceType,
		key:                key,
		logger:             logger,
		requireKeyOnCreate: config.requireKeyOnCreate,
	}
}

// ResourceType returns the collection path segment.
func (c *Client[T]) ResourceType() string {
	return c.resourceType
}

// Stats returns a snapshot of the cache counters.
func (c *Client[T]) Stats() guac.CacheStats {
	return guac.CacheStats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Sets:          c.sets.Load(),
		Invalidations: c.invalidations.Load(),
	}
}

// List returns every resource of the data source, keyed by resource key.
// When permissions are given, only resources the current user holds at least
// one of them on are returned.
func (c *Client[T]) List(ctx context.Context, dataSource string, permissions ...guac.PermissionType) (map[string]T, error) {
	err := validateSegment("data source", dataSource)
	if err != nil {
		return nil, err
	}

	var query url.Values

	if len(permissions) > 0 {
		query = url.Values{}
		for _, permission := range permissions {
			query.Add(constants.PermissionParam, string(permission))
		}
	}

	collection, err := fetch[T, map[string]T](ctx, c, listCacheKey(dataSource, query), c.collectionPath(dataSource), query)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", c.resourceType, err)
	}

	return collection, nil
}

// Get returns one resource.
func (c *Client[T]) Get(ctx context.Context, dataSource, key string) (*T, error) {
	err := validateSegment("data source", dataSource)
	if err != nil {
		return nil, err
	}

	err = validateSegment("key", key)
	if err != nil {
		return nil, err
	}

	item, err := fetch[T, T](ctx, c, itemCacheKey(dataSource, key), c.itemPath(dataSource, key), nil)
	if err != nil {
		return nil, fmt.Errorf("getting %s %q: %w", c.resourceType, key, err)
	}

	return &item, nil
}

// Create adds resource to the data source and returns the server's copy when
// the response carries one.
func (c *Client[T]) Create(ctx context.Context, dataSource string, resource T) (*T, error) {
	err := validateSegment("data source", dataSource)
	if err != nil {
		return nil, err
	}

	if c.requireKeyOnCreate {
		err = validateSegment("key", c.key(resource))
		if err != nil {
			return nil, err
		}
	}

	resp, err := c.mutate(ctx, &internalhttp.Request{
		Method: http.MethodPost,
		Path:   c.collectionPath(dataSource),
		Body:   resource,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", c.resourceType, err)
	}

	if len(resp.Body) == 0 {
		return &resource, nil
	}

	var created T

	err = json.Unmarshal(resp.Body, &created)
	if err != nil {
		return nil, fmt.Errorf("parsing created %s: %w", c.resourceType, err)
	}

	return &created, nil
}

// Update replaces the resource addressed by its key.
func (c *Client[T]) Update(ctx context.Context, dataSource string, resource T) error {
	err := validateSegment("data source", dataSource)
	if err != nil {
		return err
	}

	key := c.key(resource)

	err = validateSegment("key", key)
	if err != nil {
		return err
	}

	_, err = c.mutate(ctx, &internalhttp.Request{
		Method: http.MethodPut,
		Path:   c.itemPath(dataSource, key),
		Body:   resource,
	})
	if err != nil {
		return fmt.Errorf("updating %s %q: %w", c.resourceType, key, err)
	}

	return nil
}

// Delete removes the resource identified by key.
func (c *Client[T]) Delete(ctx context.Context, dataSource, key string) error {
	err := validateSegment("data source", dataSource)
	if err != nil {
		return err
	}

	err = validateSegment("key", key)
	if err != nil {
		return err
	}

	_, err = c.mutate(ctx, &internalhttp.Request{
		Method: http.MethodDelete,
		Path:   c.itemPath(dataSource, key),
	})
	if err != nil {
		return fmt.Errorf("deleting %s %q: %w", c.resourceType, key, err)
	}

	return nil
}

// ChangeCredential replaces the secret of the resource identified by key.
// The secrets are sent once and never cached or logged.
func (c *Client[T]) ChangeCredential(ctx context.Context, dataSource, key, oldSecret, newSecret string) error {
	err := validateSegment("data source", dataSource)
	if err != nil {
		return err
	}

	err = validateSegment("key", key)
	if err != nil {
		return err
	}

	if oldSecret == "" {
		return guac.NewValidationError("old password", "must not be empty")
	}

	if newSecret == "" {
		return guac.NewValidationError("new password", "must not be empty")
	}

	_, err = c.mutate(ctx, &internalhttp.Request{
		Method: http.MethodPut,
		Path:   c.itemPath(dataSource, key) + "/" + constants.PasswordSegment,
		Body: guac.PasswordUpdate{
			OldPassword: oldSecret,
			NewPassword: newSecret,
		},
	})
	if err != nil {
		return fmt.Errorf("changing password of %s %q: %w", c.resourceType, key, err)
	}

	return nil
}

// Patch applies patches, in order, as one atomic batch. Either the server
// applies every patch or none; the cache is cleared only in the first case.
func (c *Client[T]) Patch(ctx context.Context, dataSource string, patches []guac.Patch[T]) (*guac.PatchResult, error) {
	err := validateSegment("data source", dataSource)
	if err != nil {
		return nil, err
	}

	err = validatePatches(patches)
	if err != nil {
		return nil, err
	}

	resp, err := c.mutate(ctx, &internalhttp.Request{
		Method: http.MethodPatch,
		Path:   c.collectionPath(dataSource),
		Body:   patches,
	})
	if err != nil {
		return nil, fmt.Errorf("patching %s: %w", c.resourceType, err)
	}

	result := &guac.PatchResult{}

	if len(resp.Body) > 0 {
		err = json.Unmarshal(resp.Body, result)
		if err != nil {
			return nil, fmt.Errorf("parsing %s patch response: %w", c.resourceType, err)
		}
	}

	return result, nil
}

// Invalidate clears every cached entry of this resource type.
func (c *Client[T]) Invalidate(ctx context.Context) {
	c.invalidations.Add(1)

	err := c.cache.Clear(ctx)
	if err != nil {
		c.logger.Error("cache invalidation failed", map[string]interface{}{
			"resource_type": c.resourceType,
			"error":         err.Error(),
		})
	}
}

func (c *Client[T]) mutate(ctx context.Context, req *internalhttp.Request) (*internalhttp.Response, error) {
	resp, err := c.dispatcher.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	c.Invalidate(ctx)

	return resp, nil
}

// fetch serves key from the cache or performs a GET and caches the body.
func fetch[T, V any](ctx context.Context, c *Client[T], key, path string, query url.Values) (V, error) {
	var value V

	entry, err := c.cache.Get(ctx, key)
	if err == nil {
		decodeErr := json.Unmarshal(entry.Data, &value)
		if decodeErr == nil {
			c.hits.Add(1)

			return value, nil
		}

		value = *new(V)

		c.logger.Warn("discarding undecodable cache entry", map[string]interface{}{
			"resource_type": c.resourceType,
			"error":         decodeErr.Error(),
		})
	}

	c.misses.Add(1)

	resp, err := c.dispatcher.Do(ctx, &internalhttp.Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  query,
	})
	if err != nil {
		return value, err
	}

	err = json.Unmarshal(resp.Body, &value)
	if err != nil {
		return value, fmt.Errorf("parsing response: %w", err)
	}

	c.store(ctx, key, resp.Body)

	return value, nil
}

// store caches data. Failures degrade to no caching.
func (c *Client[T]) store(ctx context.Context, key string, data []byte) {
	err := c.cache.Set(ctx, key, guac.NewCacheEntry(data, nil))
	if err != nil {
		c.logger.Warn("cache population failed", map[string]interface{}{
			"resource_type": c.resourceType,
			"error":         err.Error(),
		})

		return
	}

	c.sets.Add(1)
}

func (c *Client[T]) collectionPath(dataSource string) string {
	return constants.APIPathData + "/" + url.PathEscape(dataSource) + "/" + c.resourceType
}

func (c *Client[T]) itemPath(dataSource, key string) string {
	return c.collectionPath(dataSource) + "/" + url.PathEscape(key)
}

// listCacheKey never contains an unescaped "/", item keys always do.
func listCacheKey(dataSource string, query url.Values) string {
	key := url.PathEscape(dataSource)
	if len(query) > 0 {
		key += "?" + query.Encode()
	}

	return key
}

func itemCacheKey(dataSource, key string) string {
	return url.PathEscape(dataSource) + "/" + url.PathEscape(key)
}

func validateSegment(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return guac.NewValidationError(field, "must not be empty")
	}

	return nil
}

func validatePatches[T any](patches []guac.Patch[T]) error {
	if len(patches) == 0 {
		return guac.NewValidationError("patch set", "must contain at least one patch")
	}

	for i, patch := range patches {
		field := fmt.Sprintf("patch %d", i)

		if !patch.Op.Valid() {
			return guac.NewValidationError(field, fmt.Sprintf("unsupported op %q", patch.Op))
		}

		if !strings.HasPrefix(patch.Path, "/") {
			return guac.NewValidationError(field, "path must start with \"/\"")
		}

		if patch.Op != guac.PatchOpRemove && patch.Value == nil {
			return guac.NewValidationError(field, string(patch.Op)+" requires a value")
		}

		if patch.Op != guac.PatchOpAdd && patch.Path == "/" {
			return guac.NewValidationError(field, string(patch.Op)+" requires a target identifier")
		}
	}

	return nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, map[string]interface{}) {}
func (nopLogger) Info(string, map[string]interface{})  {}
func (nopLogger) Warn(string, map[string]interface{})  {}
func (nopLogger) Error(string, map[string]interface{}) {}

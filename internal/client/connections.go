package client

import (
	"context"

	"github.com/fivetwenty-io/guacrest/internal/constants"
	"github.com/fivetwenty-io/guacrest/internal/resource"
	"github.com/fivetwenty-io/guacrest/pkg/guac"
)

// ConnectionsClient implements guac.ConnectionsClient.
type ConnectionsClient struct {
	resources *resource.Client[guac.Connection]
}

// NewConnectionsClient creates a new connections client.
func NewConnectionsClient(dispatcher resource.Dispatcher, cache guac.Cache, logger guac.Logger) *ConnectionsClient {
	return &ConnectionsClient{
		resources: resource.New(dispatcher, cache, constants.ResourceConnections, guac.ConnectionKey,
			resource.WithLogger(logger), resource.WithServerAssignedKeys()),
	}
}

// List implements guac.ConnectionsClient.List.
func (c *ConnectionsClient) List(ctx context.Context, dataSource string, permissions ...guac.PermissionType) (map[string]guac.Connection, error) {
	return c.resources.List(ctx, dataSource, permissions...)
}

// Get implements guac.ConnectionsClient.Get.
func (c *ConnectionsClient) Get(ctx context.Context, dataSource, identifier string) (*guac.Connection, error) {
	return c.resources.Get(ctx, dataSource, identifier)
}

// Create implements guac.ConnectionsClient.Create. The returned connection
// carries the identifier assigned by the server.
func (c *ConnectionsClient) Create(ctx context.Context, dataSource string, connection guac.Connection) (*guac.Connection, error) {
	return c.resources.Create(ctx, dataSource, connection)
}

// Update implements guac.ConnectionsClient.Update.
func (c *ConnectionsClient) Update(ctx context.Context, dataSource string, connection guac.Connection) error {
	return c.resources.Update(ctx, dataSource, connection)
}

// Delete implements guac.ConnectionsClient.Delete.
func (c *ConnectionsClient) Delete(ctx context.Context, dataSource, identifier string) error {
	return c.resources.Delete(ctx, dataSource, identifier)
}

// Patch implements guac.ConnectionsClient.Patch.
func (c *ConnectionsClient) Patch(ctx context.Context, dataSource string, patches []guac.Patch[guac.Connection]) (*guac.PatchResult, error) {
	return c.resources.Patch(ctx, dataSource, patches)
}

// Stats returns the cache counters for connections.
func (c *ConnectionsClient) Stats() guac.CacheStats {
	return c.resources.Stats()
}

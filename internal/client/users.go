package client

import (
	"context"

	"github.com/fivetwenty-io/guacrest/internal/constants"
	"github.com/fivetwenty-io/guacrest/internal/resource"
	"github.com/fivetwenty-io/guacrest/pkg/guac"
)

// UsersClient implements guac.UsersClient.
type UsersClient struct {
	resources *resource.Client[guac.User]
}

// NewUsersClient creates a new users client.
func NewUsersClient(dispatcher resource.Dispatcher, cache guac.Cache, logger guac.Logger) *UsersClient {
	return &UsersClient{
		resources: resource.New(dispatcher, cache, constants.ResourceUsers, guac.UserKey, resource.WithLogger(logger)),
	}
}

// List implements guac.UsersClient.List.
func (c *UsersClient) List(ctx context.Context, dataSource string, permissions ...guac.PermissionType) (map[string]guac.User, error) {
	return c.resources.List(ctx, dataSource, permissions...)
}

// Get implements guac.UsersClient.Get.
func (c *UsersClient) Get(ctx context.Context, dataSource, username string) (*guac.User, error) {
	return c.resources.Get(ctx, dataSource, username)
}

// Create implements guac.UsersClient.Create.
func (c *UsersClient) Create(ctx context.Context, dataSource string, user guac.User) (*guac.User, error) {
	return c.resources.Create(ctx, dataSource, user)
}

// Update implements guac.UsersClient.Update.
func (c *UsersClient) Update(ctx context.Context, dataSource string, user guac.User) error {
	return c.resources.Update(ctx, dataSource, user)
}

// Delete implements guac.UsersClient.Delete.
func (c *UsersClient) Delete(ctx context.Context, dataSource, username string) error {
	return c.resources.Delete(ctx, dataSource, username)
}

// UpdatePassword implements guac.UsersClient.UpdatePassword.
func (c *UsersClient) UpdatePassword(ctx context.Context, dataSource, username, oldPassword, newPassword string) error {
	return c.resources.ChangeCredential(ctx, dataSource, username, oldPassword, newPassword)
}

// Patch implements guac.UsersClient.Patch.
func (c *UsersClient) Patch(ctx context.Context, dataSource string, patches []guac.Patch[guac.User]) (*guac.PatchResult, error) {
	return c.resources.Patch(ctx, dataSource, patches)
}

// Stats returns the cache counters for users.
func (c *UsersClient) Stats() guac.CacheStats {
	return c.resources.Stats()
}

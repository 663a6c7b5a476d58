package client

import (
	"context"

	"github.com/fivetwenty-io/guacrest/internal/constants"
	"github.com/fivetwenty-io/guacrest/internal/resource"
	"github.com/fivetwenty-io/guacrest/pkg/guac"
)

// UserGroupsClient implements guac.UserGroupsClient.
type UserGroupsClient struct {
	resources *resource.Client[guac.UserGroup]
}

// NewUserGroupsClient creates a new user groups client.
func NewUserGroupsClient(dispatcher resource.Dispatcher, cache guac.Cache, logger guac.Logger) *UserGroupsClient {
	return &UserGroupsClient{
		resources: resource.New(dispatcher, cache, constants.ResourceUserGroups, guac.UserGroupKey, resource.WithLogger(logger)),
	}
}

// List implements guac.UserGroupsClient.List.
func (c *UserGroupsClient) List(ctx context.Context, dataSource string, permissions ...guac.PermissionType) (map[string]guac.UserGroup, error) {
	return c.resources.List(ctx, dataSource, permissions...)
}

// Get implements guac.UserGroupsClient.Get.
func (c *UserGroupsClient) Get(ctx context.Context, dataSource, identifier string) (*guac.UserGroup, error) {
	return c.resources.Get(ctx, dataSource, identifier)
}

// Create implements guac.UserGroupsClient.Create.
func (c *UserGroupsClient) Create(ctx context.Context, dataSource string, group guac.UserGroup) (*guac.UserGroup, error) {
	return c.resources.Create(ctx, dataSource, group)
}

// Update implements guac.UserGroupsClient.Update.
func (c *UserGroupsClient) Update(ctx context.Context, dataSource string, group guac.UserGroup) error {
	return c.resources.Update(ctx, dataSource, group)
}

// Delete implements guac.UserGroupsClient.Delete.
func (c *UserGroupsClient) Delete(ctx context.Context, dataSource, identifier string) error {
	return c.resources.Delete(ctx, dataSource, identifier)
}

// Patch implements guac.UserGroupsClient.Patch.
func (c *UserGroupsClient) Patch(ctx context.Context, dataSource string, patches []guac.Patch[guac.UserGroup]) (*guac.PatchResult, error) {
	return c.resources.Patch(ctx, dataSource, patches)
}

// Stats returns the cache counters for user groups.
func (c *UserGroupsClient) Stats() guac.CacheStats {
	return c.resources.Stats()
}

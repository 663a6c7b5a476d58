package guac

import (
	"context"
)

// Client provides access to every directory resource client.
type Client interface {
	Users() UsersClient
	UserGroups() UserGroupsClient
	Connections() ConnectionsClient

	// Stats returns the cache counters of every resource type, keyed by
	// resource type.
	Stats() map[string]CacheStats

	// Logout revokes the session token when the client logged in itself.
	Logout(ctx context.Context) error
	// Close releases cache backends.
	Close() error
}

// UsersClient defines operations for user accounts.
type UsersClient interface {
	List(ctx context.Context, dataSource string, permissions ...PermissionType) (map[string]User, error)
	Get(ctx context.Context, dataSource, username string) (*User, error)
	Create(ctx context.Context, dataSource string, user User) (*User, error)
	Update(ctx context.Context, dataSource string, user User) error
	Delete(ctx context.Context, dataSource, username string) error
	UpdatePassword(ctx context.Context, dataSource, username, oldPassword, newPassword string) error
	Patch(ctx context.Context, dataSource string, patches []Patch[User]) (*PatchResult, error)
}

// UserGroupsClient defines operations for user groups.
type UserGroupsClient interface {
	List(ctx context.Context, dataSource string, permissions ...PermissionType) (map[string]UserGroup, error)
	Get(ctx context.Context, dataSource, identifier string) (*UserGroup, error)
	Create(ctx context.Context, dataSource string, group UserGroup) (*UserGroup, error)
	Update(ctx context.Context, dataSource string, group UserGroup) error
	Delete(ctx context.Context, dataSource, identifier string) error
	Patch(ctx context.Context, dataSource string, patches []Patch[UserGroup]) (*PatchResult, error)
}

// ConnectionsClient defines operations for connections. Identifiers are
// assigned by the server on create.
type ConnectionsClient interface {
	List(ctx context.Context, dataSource string, permissions ...PermissionType) (map[string]Connection, error)
	Get(ctx context.Context, dataSource, identifier string) (*Connection, error)
	Create(ctx context.Context, dataSource string, connection Connection) (*Connection, error)
	Update(ctx context.Context, dataSource string, connection Connection) error
	Delete(ctx context.Context, dataSource, identifier string) error
	Patch(ctx context.Context, dataSource string, patches []Patch[Connection]) (*PatchResult, error)
}

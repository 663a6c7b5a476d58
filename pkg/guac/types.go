package guac

import (
	"encoding/json"
	"fmt"
	"time"
)

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Config represents client configuration for building a guacclient.Client.
//
// # Authentication precedence
//
//  1. Token: used directly as the Guacamole-Token header value.
//  2. Username/Password: a session token is obtained from api/tokens on first
//     use and reused until invalidated.
//  3. No credentials: requests are sent without authentication.
//
// # Retries
//
// The dispatcher performs a single attempt per call unless RetryMax is set.
// Retries belong to the caller; RetryMax exists for callers that want the
// transport to absorb connection-level blips.
type Config struct {
	// BaseURL: root of the Guacamole web application (e.g. "https://host/guacamole").
	BaseURL string

	// Token: pre-acquired auth token.
	Token string
	// Username: account used to obtain a session token.
	Username string
	// Password: password for Username.
	Password string

	// DataSource: default data source used by helpers and the CLI.
	DataSource string

	// HTTPTimeout: overall timeout of one HTTP exchange. Zero uses the default.
	HTTPTimeout time.Duration
	// RetryMax: transport level retries. Zero means single attempt.
	RetryMax int
	// RetryWaitMin: minimum backoff between retries. Applied when RetryMax > 0.
	RetryWaitMin time.Duration
	// RetryWaitMax: maximum backoff between retries. Applied when RetryMax > 0.
	RetryWaitMax time.Duration
	// Debug: enables request/response logging when a Logger is provided.
	Debug bool
	// Logger: optional structured logger used by the HTTP layer and the caches.
	Logger Logger
	// UserAgent: overrides the default User-Agent header sent by the client.
	UserAgent string

	// Headers: extra headers set on every API request.
	Headers map[string]string
	// Metrics: when set, records per endpoint request and error counts.
	Metrics *MetricsCollector
	// RequestInterceptors run after authentication, in order.
	RequestInterceptors []RequestInterceptor
	// ResponseInterceptors run after every response, metrics first.
	ResponseInterceptors []ResponseInterceptor

	// Cache: response cache backend used for every resource type. Nil selects
	// the default in-memory cache.
	Cache *CacheConfig
}

// DataSourceDefault is the identifier of the built-in data source.
const DataSourceDefault = "default"

// PermissionType filters list results to objects the current user holds the
// given permission on.
type PermissionType string

// Object permission types understood by the list endpoints.
const (
	PermissionRead       PermissionType = "READ"
	PermissionUpdate     PermissionType = "UPDATE"
	PermissionDelete     PermissionType = "DELETE"
	PermissionAdminister PermissionType = "ADMINISTER"
)

// User represents a Guacamole user account.
type User struct {
	Username   string            `json:"username"             yaml:"username"`
	Password   string            `json:"password,omitempty"   yaml:"-"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	LastActive int64             `json:"lastActive,omitempty" yaml:"last_active,omitempty"`
}

// UserKey returns the username, which addresses the user in URLs.
func UserKey(user User) string {
	return user.Username
}

// UserGroup represents a group of users.
type UserGroup struct {
	Identifier string            `json:"identifier"           yaml:"identifier"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// UserGroupKey returns the group identifier.
func UserGroupKey(group UserGroup) string {
	return group.Identifier
}

// Connection represents a remote desktop connection definition.
type Connection struct {
	Identifier        string            `json:"identifier,omitempty"        yaml:"identifier,omitempty"`
	Name              string            `json:"name"                        yaml:"name"`
	ParentIdentifier  string            `json:"parentIdentifier,omitempty"  yaml:"parent_identifier,omitempty"`
	Protocol          string            `json:"protocol"                    yaml:"protocol"`
	Parameters        map[string]string `json:"parameters,omitempty"        yaml:"parameters,omitempty"`
	Attributes        map[string]string `json:"attributes,omitempty"        yaml:"attributes,omitempty"`
	ActiveConnections int               `json:"activeConnections,omitempty" yaml:"active_connections,omitempty"`
	LastActive        int64             `json:"lastActive,omitempty"        yaml:"last_active,omitempty"`
}

// ConnectionKey returns the connection identifier.
func ConnectionKey(connection Connection) string {
	return connection.Identifier
}

// PasswordUpdate is the body of a password change request.
type PasswordUpdate struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// PatchOp is the kind of change a Patch applies.
type PatchOp string

// Supported patch operations.
const (
	PatchOpAdd     PatchOp = "add"
	PatchOpRemove  PatchOp = "remove"
	PatchOpReplace PatchOp = "replace"
)

// Valid reports whether op is one of the supported operations.
func (op PatchOp) Valid() bool {
	switch op {
	case PatchOpAdd, PatchOpRemove, PatchOpReplace:
		return true
	default:
		return false
	}
}

// Patch is one entry of an ordered patch set applied to a resource collection.
// Path is "/" for additions and "/<identifier>" for removals and replacements.
type Patch[T any] struct {
	Op    PatchOp `json:"op"              yaml:"op"`
	Path  string  `json:"path"            yaml:"path"`
	Value *T      `json:"value,omitempty" yaml:"value,omitempty"`
}

// AddPatch returns a patch creating value.
func AddPatch[T any](value T) Patch[T] {
	return Patch[T]{Op: PatchOpAdd, Path: "/", Value: &value}
}

// ReplacePatch returns a patch replacing the object identified by key.
func ReplacePatch[T any](key string, value T) Patch[T] {
	return Patch[T]{Op: PatchOpReplace, Path: "/" + key, Value: &value}
}

// RemovePatch returns a patch removing the object identified by key.
func RemovePatch[T any](key string) Patch[T] {
	return Patch[T]{Op: PatchOpRemove, Path: "/" + key}
}

// PatchOutcome is the server's report for one applied patch.
type PatchOutcome struct {
	Op         PatchOp `json:"op"                   yaml:"op"`
	Path       string  `json:"path"                 yaml:"path"`
	Identifier string  `json:"identifier,omitempty" yaml:"identifier,omitempty"`
}

// PatchResult holds the per-patch outcomes, in request order.
type PatchResult struct {
	Patches []PatchOutcome `json:"patches" yaml:"patches"`
}

// UnmarshalJSON accepts both a bare outcome array and an object wrapping it
// under "patches".
func (r *PatchResult) UnmarshalJSON(data []byte) error {
	var outcomes []PatchOutcome

	err := json.Unmarshal(data, &outcomes)
	if err == nil {
		r.Patches = outcomes

		return nil
	}

	var wrapped struct {
		Patches []PatchOutcome `json:"patches"`
	}

	err = json.Unmarshal(data, &wrapped)
	if err != nil {
		return fmt.Errorf("decoding patch result: %w", err)
	}

	r.Patches = wrapped.Patches

	return nil
}

// AuthToken is the response of a successful api/tokens call.
type AuthToken struct {
	AuthToken            string   `json:"authToken"`
	Username             string   `json:"username"`
	DataSource           string   `json:"dataSource"`
	AvailableDataSources []string `json:"availableDataSources"`
}

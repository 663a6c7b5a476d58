package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations such as login.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry limits. The dispatcher is single-attempt unless configured otherwise.
const (
	// DefaultRetryMax is the default number of transport retries.
	DefaultRetryMax = 0

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second
)

// REST paths.
const (
	// APIPathData is the prefix of every data source scoped endpoint.
	APIPathData = "api/session/data"

	// APIPathTokens is the session token endpoint.
	APIPathTokens = "api/tokens"

	// APIPathSession is the current session endpoint.
	APIPathSession = "api/session"

	// PasswordSegment names the credential sub-endpoint of a user.
	PasswordSegment = "password"

	// PermissionParam is the list filter query parameter.
	PermissionParam = "permission"
)

// Resource type path segments.
const (
	// ResourceUsers for user accounts.
	ResourceUsers = "users"

	// ResourceUserGroups for user groups.
	ResourceUserGroups = "userGroups"

	// ResourceConnections for connections.
	ResourceConnections = "connections"
)

// Cache size constants.
const (
	// DefaultCacheSize is the default cache size limit.
	DefaultCacheSize = 1000

	// MaxCacheValueSize is the maximum size for cached values (1MB).
	MaxCacheValueSize = 1024 * 1024
)

// Format constants.
const (
	// FormatTable for table output format.
	FormatTable = "table"

	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// JSONIndentSize is the number of spaces for JSON indentation.
	JSONIndentSize = 2
)

// UI and display constants.
const (
	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"
)

// CLI argument counts.
const (
	// ConfigSetArgCount is the number of arguments of 'config set'.
	ConfigSetArgCount = 2
)

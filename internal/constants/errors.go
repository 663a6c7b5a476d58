package constants

import "errors"

// CLI configuration errors.
var (
	ErrNoServerConfigured = errors.New("no server configured, use --server or 'guacctl config set server <url>'")
	ErrUnknownConfigKey   = errors.New("unknown configuration key")
	ErrUnsupportedFormat  = errors.New("unsupported output format")
)

// Input errors.
var (
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrPatchFileRequired  = errors.New("--file flag is required")
	ErrNotATerminal       = errors.New("password prompt requires a terminal, use --password-stdin")
	ErrEmptyPasswordInput = errors.New("empty password")
)

// Login errors.
var (
	ErrUsernameRequired = errors.New("username is required")
	ErrNotLoggedIn      = errors.New("not logged in")
)

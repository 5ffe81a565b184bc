package config

import "errors"

// Configuration validation errors.
//
// These are package-level sentinel errors rather than ad-hoc values
// created in Validate() so callers can branch with errors.Is() while the
// messages stay human-readable. All of them are fatal: the CLI prints
// the message and exits without attempting a crawl.
var (
	// ErrNoTarget is returned when no target host is specified.
	ErrNoTarget = errors.New("no target specified: provide a host to crawl")

	// ErrInvalidPort is returned when the port is outside 1-65535.
	ErrInvalidPort = errors.New("invalid port: must be in 1-65535")

	// ErrInvalidWorkerCount is returned when the worker count falls
	// outside [1, 10]. The crawl never starts with an invalid count.
	ErrInvalidWorkerCount = errors.New("invalid worker count: must be in 1-10")

	// ErrNoCredentials is returned when the username or password is
	// missing. The target is gated; an anonymous crawl cannot work.
	ErrNoCredentials = errors.New("missing credentials: username and password are required")

	// ErrInvalidPrefix is returned when the scope prefix is not an
	// absolute path.
	ErrInvalidPrefix = errors.New("invalid scope prefix: must start with '/'")

	// ErrInvalidFlagTarget is returned when the flag target is below one.
	ErrInvalidFlagTarget = errors.New("invalid flag target: must be at least 1")

	// ErrInvalidTimeout is returned when the read timeout is negative.
	// Zero disables the deadline.
	ErrInvalidTimeout = errors.New("invalid timeout: must be non-negative")

	// ErrInvalidMaxRetries is returned when the 503 retry cap is negative.
	ErrInvalidMaxRetries = errors.New("invalid max retries: must be non-negative")

	// ErrInvalidRetryDelay is returned when the retry delay is negative.
	ErrInvalidRetryDelay = errors.New("invalid retry delay: must be non-negative")

	// ErrInvalidRateLimit is returned when the rate limit is negative.
	// Zero disables rate limiting.
	ErrInvalidRateLimit = errors.New("invalid rate limit: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)

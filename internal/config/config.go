package config

import (
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultPort is the TLS port the crawl target listens on.
	DefaultPort = 443

	// DefaultWorkers is the number of concurrent workers per round.
	// Five keeps the crawl fast without hammering the gated site.
	DefaultWorkers = 5

	// MinWorkers and MaxWorkers bound the accepted worker count.
	// Values outside this range are a configuration error: the crawl
	// refuses to start rather than silently clamping.
	MinWorkers = 1
	MaxWorkers = 10

	// DefaultFlagTarget is the number of hidden tokens to collect
	// before the crawl stops.
	DefaultFlagTarget = 5

	// DefaultPrefix is the in-scope path prefix. Only links whose
	// href contains this prefix are followed.
	DefaultPrefix = "/fakebook/"

	// DefaultLoginPath is the login form endpoint on the target.
	DefaultLoginPath = "/accounts/login/"

	// DefaultTimeout bounds the blocking read inside a fetch. Without
	// a deadline an unresponsive peer would stall a worker for the
	// rest of its round.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries caps 503 re-attempts per URL. An unbounded
	// retry against a persistently overloaded peer is a livelock.
	DefaultMaxRetries = 5

	// DefaultRetryDelay is the pause before a 503 re-attempt is
	// eligible to run.
	DefaultRetryDelay = time.Second

	// DefaultRateLimit is the maximum requests per second shared by
	// all workers. Zero disables rate limiting.
	DefaultRateLimit = 0

	// AppName is used for XDG directory paths.
	AppName = "gatecrawl"
)

// Config holds all options for a crawl run.
//
// Design decision: a single flat struct instead of nested sub-configs.
// The option count is manageable, and flat fields map one-to-one onto
// CLI flags and YAML keys.
type Config struct {
	// Host is the crawl target hostname.
	Host string

	// Port is the TLS port on the target.
	Port int

	// Username and Password are the login credentials.
	Username string
	Password string

	// Workers is the number of concurrent fetches per round.
	// Must lie in [MinWorkers, MaxWorkers].
	Workers int

	// Verbose enables debug logging and the per-round progress line.
	Verbose bool

	// Prefix is the in-scope path prefix links must contain.
	Prefix string

	// LoginPath is the path of the login form on the target.
	LoginPath string

	// FlagTarget is how many tokens to collect before stopping.
	FlagTarget int

	// Timeout is the per-connection read deadline.
	Timeout time.Duration

	// RateLimit is the maximum requests per second shared by all
	// workers. Zero means unlimited.
	RateLimit int

	// MaxRetries caps 503 re-attempts per URL.
	MaxRetries int

	// RetryDelay is the backoff applied before a 503 re-attempt.
	RetryDelay time.Duration

	// SocksProxy, when set, routes every connection through a SOCKS5
	// proxy at this "host:port" address.
	SocksProxy string

	// InsecureTLS skips certificate verification. The gated sites
	// this tool targets commonly run self-signed certificates.
	InsecureTLS bool

	// ConfigFilePath is an explicit path to the .gatecrawl file.
	// Empty means search the standard locations.
	ConfigFilePath string

	// JSONReport and MarkdownReport select the report format.
	// Mutually exclusive; neither means the human-readable report.
	JSONReport     bool
	MarkdownReport bool

	// ReportFile, when set, writes final report output to this path.
	ReportFile string

	// SaveToDB archives the completed run report in the SQLite
	// database under DBDir.
	SaveToDB bool

	// DBDir is the directory holding the run archive database.
	DBDir string
}

// NewConfig returns a Config populated with defaults. Many defaults are
// non-zero, so callers must start from here rather than a zero value.
func NewConfig() *Config {
	return &Config{
		Port:       DefaultPort,
		Workers:    DefaultWorkers,
		Prefix:     DefaultPrefix,
		LoginPath:  DefaultLoginPath,
		FlagTarget: DefaultFlagTarget,
		Timeout:    DefaultTimeout,
		RateLimit:  DefaultRateLimit,
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
		SaveToDB:   true,
		DBDir:      XDGDataDir(),
	}
}

// Target returns the "host:port" form of the crawl target.
func (c *Config) Target() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks the configuration and returns the first problem found
// as a sentinel error. Called once after flag parsing, before login.
func (c *Config) Validate() error {
	if c.Host == "" {
		return ErrNoTarget
	}
	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidPort
	}
	if c.Workers < MinWorkers || c.Workers > MaxWorkers {
		return ErrInvalidWorkerCount
	}
	if c.Username == "" || c.Password == "" {
		return ErrNoCredentials
	}
	if !strings.HasPrefix(c.Prefix, "/") {
		return ErrInvalidPrefix
	}
	if c.FlagTarget < 1 {
		return ErrInvalidFlagTarget
	}
	if c.Timeout < 0 {
		return ErrInvalidTimeout
	}
	if c.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}
	if c.RetryDelay < 0 {
		return ErrInvalidRetryDelay
	}
	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}

// XDGDataDir returns the XDG data directory for gatecrawl.
// On Linux: ~/.local/share/gatecrawl.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for gatecrawl.
// On Linux: ~/.config/gatecrawl.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

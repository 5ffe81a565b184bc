package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// Action tells a worker what to do with a page after the status line
// has been parsed.
type Action int

const (
	// ActionContinue means the body is a normal page: scan it for
	// links and flags.
	ActionContinue Action = iota
	// ActionRedirect means follow the Location header. The resolved
	// target goes to the head of the queue.
	ActionRedirect
	// ActionSkip means drop the URL silently (forbidden or missing).
	ActionSkip
	// ActionRetry means the failure is transient: re-queue the same
	// URL at the head after a delay.
	ActionRetry
	// ActionAbort means the server reported an unrecoverable error
	// and the whole crawl must stop.
	ActionAbort
)

// Decide maps an HTTP status code to a worker action. Pure function,
// no side effects.
//
//	200           continue
//	302           follow redirect
//	403, 404      drop
//	503           retry
//	anything else abort (500 and 504 included)
func Decide(statusCode int) Action {
	switch statusCode {
	case 200:
		return ActionContinue
	case 302:
		return ActionRedirect
	case 403, 404:
		return ActionSkip
	case 503:
		return ActionRetry
	default:
		return ActionAbort
	}
}

// FatalStatusError reports a status code that aborts the crawl.
type FatalStatusError struct {
	StatusCode int
	URL        string
}

// Error returns the error message for FatalStatusError.
func (e *FatalStatusError) Error() string {
	return fmt.Sprintf("server returned fatal status %d for %s", e.StatusCode, e.URL)
}

// ResolveRedirect computes the absolute URL a Location header points
// to. Servers here send path-only targets, so the scheme, host and
// port always come from the URL that was being fetched. An already
// absolute Location on the same host is accepted as-is.
func ResolveRedirect(fromURL, location string) (string, error) {
	base, err := url.Parse(fromURL)
	if err != nil {
		return "", fmt.Errorf("parse redirect origin %q: %w", fromURL, err)
	}
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		target, err := url.Parse(location)
		if err != nil {
			return "", fmt.Errorf("parse redirect target %q: %w", location, err)
		}
		return target.String(), nil
	}
	target, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("parse redirect target %q: %w", location, err)
	}
	resolved := &url.URL{
		Scheme:   base.Scheme,
		Host:     base.Host,
		Path:     target.Path,
		RawQuery: target.RawQuery,
	}
	return resolved.String(), nil
}

package transport

import "fmt"

// ConnectionError reports a socket or TLS failure while reaching the
// target. It is fatal: the crawl aborts rather than retrying, because a
// broken transport would fail every subsequent fetch the same way.
type ConnectionError struct {
	// Addr is the "host:port" address the connection was for.
	Addr string

	// Err is the underlying dial, handshake, or I/O error.
	Err error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed: %v", e.Addr, e.Err)
}

// Unwrap exposes the underlying error for errors.Is/As.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ParseError reports a response whose status line could not be parsed.
// It is fatal: a peer that does not speak HTTP/1.1 cannot be crawled.
type ParseError struct {
	// Line is the offending status line, truncated for display.
	Line string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed status line: %q", e.Line)
}

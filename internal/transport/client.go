package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"golang.org/x/net/proxy"
)

// Client performs one raw HTTP exchange per connection against a single
// target address. It is safe for concurrent use: every Fetch dials its
// own connection and tears it down afterwards, so there is no shared
// connection state to contend on.
type Client struct {
	// addr is the "host:port" target every connection is dialed to.
	addr string

	// tlsConfig is applied to every connection.
	tlsConfig *tls.Config

	// socksDialer, when non-nil, routes the TCP dial through a SOCKS5
	// proxy instead of connecting directly.
	socksDialer proxy.Dialer

	// timeout is the per-connection deadline covering handshake,
	// write, and the close-delimited read. Zero means no deadline;
	// an unresponsive peer then stalls the caller indefinitely.
	timeout time.Duration

	// logger receives debug records for each exchange.
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-connection deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithInsecureTLS disables certificate verification. Gated lab sites
// commonly run self-signed certificates.
func WithInsecureTLS() Option {
	return func(c *Client) {
		c.tlsConfig.InsecureSkipVerify = true
	}
}

// WithLogger sets the logger used for per-exchange debug records.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client for the given target host and port.
//
// If socksProxy is non-empty, every connection is dialed through the
// SOCKS5 proxy at that "host:port" address. The constructor does not
// touch the network; the first Fetch does.
func NewClient(host string, port int, socksProxy string, opts ...Option) (*Client, error) {
	c := &Client{
		addr: net.JoinHostPort(host, fmt.Sprintf("%d", port)),
		tlsConfig: &tls.Config{
			ServerName: host,
			MinVersion: tls.VersionTLS12,
		},
	}

	if socksProxy != "" {
		// nil auth: the common local SOCKS daemons do not require it.
		dialer, err := proxy.SOCKS5("tcp", socksProxy, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("create SOCKS5 dialer: %w", err)
		}
		c.socksDialer = dialer
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c, nil
}

// Addr returns the target address connections are dialed to.
func (c *Client) Addr() string {
	return c.addr
}

// Fetch sends rawRequest over a fresh encrypted connection and returns
// the complete raw response. The read loops until the peer closes the
// stream; "Connection: close" in the request makes end-of-stream the
// response delimiter. The connection is closed before returning.
//
// Any dial, handshake, write, or read failure comes back as
// *ConnectionError.
func (c *Client) Fetch(ctx context.Context, rawRequest []byte) ([]byte, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return nil, &ConnectionError{Addr: c.addr, Err: err}
	}
	defer conn.Close()

	if c.timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, &ConnectionError{Addr: c.addr, Err: err}
		}
	}

	start := time.Now()

	if _, err := conn.Write(rawRequest); err != nil {
		return nil, &ConnectionError{Addr: c.addr, Err: fmt.Errorf("write request: %w", err)}
	}

	raw, err := readUntilClose(conn)
	if err != nil {
		return nil, &ConnectionError{Addr: c.addr, Err: fmt.Errorf("read response: %w", err)}
	}

	c.logger.Debug("exchange complete",
		"addr", c.addr,
		"requestBytes", len(rawRequest),
		"responseBytes", len(raw),
		"elapsed", time.Since(start),
	)

	return raw, nil
}

// connect dials the target and completes the TLS handshake.
func (c *Client) connect(ctx context.Context) (*tls.Conn, error) {
	var (
		tcpConn net.Conn
		err     error
	)

	if c.socksDialer != nil {
		// x/net/proxy dialers created via SOCKS5 also implement
		// ContextDialer; prefer it so cancellation reaches the dial.
		if cd, ok := c.socksDialer.(proxy.ContextDialer); ok {
			tcpConn, err = cd.DialContext(ctx, "tcp", c.addr)
		} else {
			tcpConn, err = c.socksDialer.Dial("tcp", c.addr)
		}
	} else {
		var d net.Dialer
		tcpConn, err = d.DialContext(ctx, "tcp", c.addr)
	}
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	tlsConn := tls.Client(tcpConn, c.tlsConfig)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		_ = tcpConn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}

	return tlsConn, nil
}

// readUntilClose drains the connection until the peer closes it.
// A peer that drops the TCP connection without a TLS close_notify still
// terminates the response, so an unexpected EOF after some bytes were
// received is treated as end-of-stream, not as a failure.
func readUntilClose(conn net.Conn) ([]byte, error) {
	var raw []byte
	buf := make([]byte, 32*1024)

	for {
		n, err := conn.Read(buf)
		raw = append(raw, buf[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return raw, nil
			}
			if len(raw) > 0 && isAbruptClose(err) {
				return raw, nil
			}
			return nil, err
		}
	}
}

// isAbruptClose reports whether err looks like the peer tearing the
// connection down without a clean TLS shutdown.
func isAbruptClose(err error) bool {
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return !netErr.Timeout()
	}
	return false
}

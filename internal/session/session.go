package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/gatecrawl/gatecrawl/internal/transport"
)

// ErrLoginFailed is returned when the login POST completes but the
// server never sets a session identifier, which usually means wrong
// credentials.
var ErrLoginFailed = errors.New("login failed: server did not establish a session")

// Jar holds the two cookies the crawl cares about. Both start absent.
// It implements transport.CookieSink, so parsing a response with the
// jar attached keeps it current. Safe for concurrent use: workers parse
// responses in parallel and the server may refresh either cookie.
type Jar struct {
	mu        sync.Mutex
	csrfToken string
	sessionID string
}

// SetCookie records a recognized cookie. Unrecognized names never reach
// the jar; the codec filters them.
func (j *Jar) SetCookie(name, value string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	switch name {
	case transport.CookieCSRFToken:
		j.csrfToken = value
	case transport.CookieSessionID:
		j.sessionID = value
	}
}

// CSRFToken returns the current token, or "" when absent.
func (j *Jar) CSRFToken() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.csrfToken
}

// SessionID returns the current session identifier, or "" when absent.
func (j *Jar) SessionID() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.sessionID
}

// CookieHeader renders the jar as a Cookie header value: "name=value"
// pairs joined by "; ", token field first, absent fields omitted.
// Returns "" when the jar is empty.
func (j *Jar) CookieHeader() string {
	j.mu.Lock()
	defer j.mu.Unlock()

	var pairs []string
	if j.csrfToken != "" {
		pairs = append(pairs, transport.CookieCSRFToken+"="+j.csrfToken)
	}
	if j.sessionID != "" {
		pairs = append(pairs, transport.CookieSessionID+"="+j.sessionID)
	}
	return strings.Join(pairs, "; ")
}

// Manager performs the login handshake and issues authenticated
// requests. It owns the Jar for one crawl session.
type Manager struct {
	client   *transport.Client
	jar      Jar
	username string
	password string
	logger   *slog.Logger
}

// NewManager creates a Manager over the given transport client.
func NewManager(client *transport.Client, username, password string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		client:   client,
		username: username,
		password: password,
		logger:   logger,
	}
}

// Jar exposes the manager's cookie jar, mainly for tests.
func (m *Manager) Jar() *Jar {
	return &m.jar
}

// Login performs the two-step handshake against loginPath.
//
// Step one GETs the login form; the response's Set-Cookie populates the
// CSRF token. Step two POSTs the form-encoded credentials with the
// token echoed both in the body (csrfmiddlewaretoken) and in the Cookie
// header; the response's Set-Cookie populates the session identifier.
//
// Any transport failure is returned as-is and is fatal to the crawl.
// A handshake that completes without a session identifier returns
// ErrLoginFailed.
func (m *Manager) Login(ctx context.Context, loginPath string) error {
	if _, err := m.Get(ctx, loginPath); err != nil {
		return fmt.Errorf("login GET: %w", err)
	}

	token := m.jar.CSRFToken()
	if token == "" {
		return fmt.Errorf("login GET: %w", ErrLoginFailed)
	}

	form := url.Values{}
	form.Set("username", m.username)
	form.Set("password", m.password)
	form.Set("csrfmiddlewaretoken", token)
	body := []byte(form.Encode())

	headers := []transport.Header{
		{Name: "Content-Type", Value: "application/x-www-form-urlencoded"},
	}
	if cookie := m.jar.CookieHeader(); cookie != "" {
		headers = append(headers, transport.Header{Name: "Cookie", Value: cookie})
	}

	raw := transport.BuildRequest("POST", loginPath, m.client.Addr(), headers, body)
	rawResp, err := m.client.Fetch(ctx, raw)
	if err != nil {
		return fmt.Errorf("login POST: %w", err)
	}
	resp, err := transport.ParseResponse(rawResp, &m.jar)
	if err != nil {
		return fmt.Errorf("login POST: %w", err)
	}

	if m.jar.SessionID() == "" {
		return ErrLoginFailed
	}

	m.logger.Debug("login complete",
		"path", loginPath,
		"status", resp.StatusCode,
	)
	return nil
}

// Get issues an authenticated GET for path and returns the parsed
// response. The jar rides along, so any Set-Cookie in the response
// refreshes the session state.
func (m *Manager) Get(ctx context.Context, path string) (*transport.Response, error) {
	var headers []transport.Header
	if cookie := m.jar.CookieHeader(); cookie != "" {
		headers = append(headers, transport.Header{Name: "Cookie", Value: cookie})
	}

	raw := transport.BuildRequest("GET", path, m.client.Addr(), headers, nil)
	rawResp, err := m.client.Fetch(ctx, raw)
	if err != nil {
		return nil, err
	}
	return transport.ParseResponse(rawResp, &m.jar)
}

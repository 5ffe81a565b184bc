// Package session owns the authentication state for a crawl.
//
// The Manager performs the two-step login handshake (a GET that seeds
// the CSRF token from Set-Cookie, then a form-encoded POST that seeds
// the session identifier) and renders the Cookie header every later
// request carries. The jar holds exactly two optional fields; there is
// no general cookie store because the gated site only ever needs these.
package session

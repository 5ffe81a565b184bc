package transport

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// crlf terminates every header line on the wire.
const crlf = "\r\n"

// Header is one request header in the exact position it will be written.
// A slice of these keeps the header order deterministic, which matters
// for byte-exact request construction (a map would shuffle them).
type Header struct {
	Name  string
	Value string
}

// Response is a parsed HTTP response.
type Response struct {
	// StatusCode is the integer status from the status line.
	StatusCode int

	// Headers maps lowercased header names to their values, in
	// arrival order. A slice per name preserves repeated headers
	// such as multiple Set-Cookie lines.
	Headers map[string][]string

	// Body is everything after the first blank line. May be empty.
	Body []byte

	// RedirectTarget is the Location header value, or "" when absent.
	// The design assumes Location carries a path, not a full URL.
	RedirectTarget string
}

// Header returns the first value for a (case-insensitive) header name.
func (r *Response) Header(name string) string {
	values := r.Headers[strings.ToLower(name)]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// CookieSink receives cookies recognized while parsing Set-Cookie
// headers. The session jar implements it; the codec stays unaware of
// which names the session layer cares about beyond the recognized set.
type CookieSink interface {
	SetCookie(name, value string)
}

// Cookie names the codec recognizes in Set-Cookie headers. Anything
// else the server sets is ignored.
const (
	CookieCSRFToken = "csrftoken"
	CookieSessionID = "sessionid"
)

// BuildRequest renders a complete HTTP/1.1 request: request line, Host,
// Connection: close, the extra headers in order, Content-Length when a
// body is present, a blank line, then the body.
func BuildRequest(method, path, host string, extraHeaders []Header, body []byte) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s HTTP/1.1%s", method, path, crlf)
	fmt.Fprintf(&b, "Host: %s%s", host, crlf)
	b.WriteString("Connection: close" + crlf)

	for _, h := range extraHeaders {
		fmt.Fprintf(&b, "%s: %s%s", h.Name, h.Value, crlf)
	}

	if len(body) > 0 {
		fmt.Fprintf(&b, "Content-Length: %d%s", len(body), crlf)
	}

	b.WriteString(crlf)
	b.Write(body)

	return []byte(b.String())
}

// ParseResponse splits a raw response at the first blank-line boundary
// into headers and body. The status code is the second whitespace-
// delimited token of the first line; each later header splits on its
// first colon. Recognized Set-Cookie names are forwarded to jar, which
// may be nil when the caller has no cookie interest.
//
// A response whose status line cannot be parsed fails with *ParseError.
func ParseResponse(raw []byte, jar CookieSink) (*Response, error) {
	head, body := splitHeadBody(raw)

	// Split on LF and trim the CR so bare-LF servers still parse.
	lines := strings.Split(string(head), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	if len(lines) == 0 || lines[0] == "" {
		return nil, &ParseError{Line: truncateLine(string(head))}
	}

	status, err := parseStatusLine(lines[0])
	if err != nil {
		return nil, err
	}

	resp := &Response{
		StatusCode: status,
		Headers:    make(map[string][]string),
		Body:       body,
	}

	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			// Not header-shaped; the status line was fine so this
			// is noise, not a fatal malformation.
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.TrimSpace(value)
		resp.Headers[name] = append(resp.Headers[name], value)

		switch name {
		case "set-cookie":
			applyCookie(jar, value)
		case "location":
			resp.RedirectTarget = value
		}
	}

	return resp, nil
}

// splitHeadBody cuts raw at the first blank line. Responses normally
// use CRLF, but a bare-LF separator is tolerated from sloppy servers.
func splitHeadBody(raw []byte) (head, body []byte) {
	if i := bytes.Index(raw, []byte(crlf+crlf)); i >= 0 {
		return raw[:i], raw[i+4:]
	}
	if i := bytes.Index(raw, []byte("\n\n")); i >= 0 {
		return raw[:i], raw[i+2:]
	}
	return raw, nil
}

// parseStatusLine extracts the status code: the second whitespace-
// delimited token of the first line.
func parseStatusLine(line string) (int, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0, &ParseError{Line: truncateLine(line)}
	}
	status, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, &ParseError{Line: truncateLine(line)}
	}
	return status, nil
}

// applyCookie parses one Set-Cookie value as name=value[;...] and
// forwards recognized names to the sink.
func applyCookie(jar CookieSink, value string) {
	if jar == nil {
		return
	}
	// Attributes after the first ';' (Path, HttpOnly, ...) are not
	// needed for this exchange.
	pair, _, _ := strings.Cut(value, ";")
	name, val, ok := strings.Cut(pair, "=")
	if !ok {
		return
	}
	name = strings.TrimSpace(name)
	if name == CookieCSRFToken || name == CookieSessionID {
		jar.SetCookie(name, strings.TrimSpace(val))
	}
}

// truncateLine bounds a status line for error display.
func truncateLine(line string) string {
	const max = 80
	if len(line) > max {
		return line[:max] + "..."
	}
	return line
}

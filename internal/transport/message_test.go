package transport

import (
	"errors"
	"strings"
	"testing"
)

// recordingJar captures cookies forwarded by the codec.
type recordingJar struct {
	cookies map[string]string
}

func newRecordingJar() *recordingJar {
	return &recordingJar{cookies: make(map[string]string)}
}

func (j *recordingJar) SetCookie(name, value string) {
	j.cookies[name] = value
}

// TestBuildRequest verifies the rendered request bytes.
func TestBuildRequest(t *testing.T) {
	t.Parallel()

	t.Run("GET without body", func(t *testing.T) {
		t.Parallel()

		raw := string(BuildRequest("GET", "/fakebook/", "site.example.com", nil, nil))

		want := "GET /fakebook/ HTTP/1.1\r\n" +
			"Host: site.example.com\r\n" +
			"Connection: close\r\n" +
			"\r\n"
		if raw != want {
			t.Errorf("unexpected request:\n%q\nwant:\n%q", raw, want)
		}
	})

	t.Run("POST with body and headers", func(t *testing.T) {
		t.Parallel()

		body := []byte("username=alice&password=pw&csrfmiddlewaretoken=tok")
		headers := []Header{
			{Name: "Content-Type", Value: "application/x-www-form-urlencoded"},
			{Name: "Cookie", Value: "csrftoken=tok"},
		}
		raw := string(BuildRequest("POST", "/accounts/login/", "site.example.com", headers, body))

		if !strings.HasPrefix(raw, "POST /accounts/login/ HTTP/1.1\r\n") {
			t.Errorf("unexpected request line: %q", raw)
		}
		if !strings.Contains(raw, "Content-Length: 50\r\n") {
			t.Errorf("missing or wrong Content-Length: %q", raw)
		}
		if !strings.Contains(raw, "Cookie: csrftoken=tok\r\n") {
			t.Errorf("missing Cookie header: %q", raw)
		}
		if !strings.HasSuffix(raw, "\r\n\r\n"+string(body)) {
			t.Errorf("body not after blank line: %q", raw)
		}
		// Header order must be deterministic: Host, Connection, extras.
		hostIdx := strings.Index(raw, "Host:")
		connIdx := strings.Index(raw, "Connection:")
		ctIdx := strings.Index(raw, "Content-Type:")
		if !(hostIdx < connIdx && connIdx < ctIdx) {
			t.Errorf("header order wrong: %q", raw)
		}
	})
}

// TestParseResponse exercises the response parser.
func TestParseResponse(t *testing.T) {
	t.Parallel()

	t.Run("status headers body", func(t *testing.T) {
		t.Parallel()

		raw := []byte("HTTP/1.1 200 OK\r\n" +
			"Content-Type: text/html\r\n" +
			"Server: gunicorn\r\n" +
			"\r\n" +
			"<html>hello</html>")

		resp, err := ParseResponse(raw, nil)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if resp.StatusCode != 200 {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
		if got := resp.Header("Content-Type"); got != "text/html" {
			t.Errorf("unexpected content type: %q", got)
		}
		if string(resp.Body) != "<html>hello</html>" {
			t.Errorf("unexpected body: %q", resp.Body)
		}
	})

	t.Run("set-cookie updates jar", func(t *testing.T) {
		t.Parallel()

		raw := []byte("HTTP/1.1 200 OK\r\n" +
			"Set-Cookie: csrftoken=abc; Path=/; HttpOnly\r\n" +
			"Set-Cookie: sessionid=def; Path=/\r\n" +
			"Set-Cookie: tracking=ignored\r\n" +
			"\r\n")

		jar := newRecordingJar()
		if _, err := ParseResponse(raw, jar); err != nil {
			t.Fatalf("parse: %v", err)
		}
		if jar.cookies[CookieCSRFToken] != "abc" {
			t.Errorf("csrftoken not captured: %v", jar.cookies)
		}
		if jar.cookies[CookieSessionID] != "def" {
			t.Errorf("sessionid not captured: %v", jar.cookies)
		}
		if _, ok := jar.cookies["tracking"]; ok {
			t.Error("unrecognized cookie should be ignored")
		}
	})

	t.Run("location surfaces redirect target", func(t *testing.T) {
		t.Parallel()

		raw := []byte("HTTP/1.1 302 Found\r\n" +
			"Location: /accounts/profile/\r\n" +
			"\r\n")

		resp, err := ParseResponse(raw, nil)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if resp.StatusCode != 302 {
			t.Errorf("expected 302, got %d", resp.StatusCode)
		}
		if resp.RedirectTarget != "/accounts/profile/" {
			t.Errorf("unexpected redirect target: %q", resp.RedirectTarget)
		}
	})

	t.Run("repeated headers are preserved", func(t *testing.T) {
		t.Parallel()

		raw := []byte("HTTP/1.1 200 OK\r\n" +
			"Set-Cookie: csrftoken=a\r\n" +
			"Set-Cookie: sessionid=b\r\n" +
			"\r\n")

		resp, err := ParseResponse(raw, nil)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if got := len(resp.Headers["set-cookie"]); got != 2 {
			t.Errorf("expected 2 set-cookie values, got %d", got)
		}
	})

	t.Run("malformed status line is a ParseError", func(t *testing.T) {
		t.Parallel()

		for _, raw := range []string{
			"",
			"garbage\r\n\r\n",
			"HTTP/1.1 abc OK\r\n\r\n",
		} {
			_, err := ParseResponse([]byte(raw), nil)
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Errorf("input %q: expected ParseError, got %v", raw, err)
			}
		}
	})

	t.Run("bare LF separator tolerated", func(t *testing.T) {
		t.Parallel()

		// Some lab servers terminate with bare LF; the status code
		// and body must still come out.
		raw := []byte("HTTP/1.1 200 OK\nContent-Type: text/html\n\nbody")
		resp, err := ParseResponse(raw, nil)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if resp.StatusCode != 200 || string(resp.Body) != "body" {
			t.Errorf("unexpected parse result: %d %q", resp.StatusCode, resp.Body)
		}
	})
}

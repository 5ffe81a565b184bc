package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// logAndCapture logs one record through a SecureHandler and returns the
// rendered output.
func logAndCapture(t *testing.T, attrs ...any) string {
	t.Helper()

	var buf bytes.Buffer
	handler := NewSecureHandler(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	logger := slog.New(handler)

	logger.Info("test message", attrs...)
	return buf.String()
}

// TestSecureHandlerMasksSensitiveKeys verifies key-based masking.
func TestSecureHandlerMasksSensitiveKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"password", "password", "hunter2"},
		{"csrftoken", "csrftoken", "abc123"},
		{"sessionid", "sessionid", "def456"},
		{"cookie header", "cookie", "csrftoken=abc; sessionid=def"},
		{"set-cookie header", "set-cookie", "sessionid=xyz; Path=/"},
		{"compound key", "login_password", "secret"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out := logAndCapture(t, tt.key, tt.value)
			if strings.Contains(out, tt.value) {
				t.Errorf("sensitive value %q leaked into output: %s", tt.value, out)
			}
			if !strings.Contains(out, MaskValue) {
				t.Errorf("expected mask in output: %s", out)
			}
		})
	}
}

// TestSecureHandlerMasksSensitiveValues verifies value-pattern masking
// for attributes whose key looks harmless.
func TestSecureHandlerMasksSensitiveValues(t *testing.T) {
	t.Parallel()

	out := logAndCapture(t, "header", "csrftoken=abc123; sessionid=def456")
	if strings.Contains(out, "abc123") {
		t.Errorf("rendered cookie leaked into output: %s", out)
	}

	out = logAndCapture(t, "body", "username=alice&password=hunter2")
	if strings.Contains(out, "hunter2") {
		t.Errorf("form body password leaked into output: %s", out)
	}
}

// TestSecureHandlerPassesOrdinaryAttrs verifies harmless values survive.
func TestSecureHandlerPassesOrdinaryAttrs(t *testing.T) {
	t.Parallel()

	out := logAndCapture(t, "url", "https://site.example.com/fakebook/", "status", "200")
	if !strings.Contains(out, "https://site.example.com/fakebook/") {
		t.Errorf("ordinary value was masked: %s", out)
	}
}

// TestSecureHandlerWithAttrsAndGroups verifies masking survives
// WithAttrs and nested groups.
func TestSecureHandlerWithAttrsAndGroups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	handler := NewSecureHandler(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	logger := slog.New(handler).With("password", "hunter2")

	logger.Info("msg", slog.Group("session", slog.String("sessionid", "def456")))

	out := buf.String()
	if strings.Contains(out, "hunter2") || strings.Contains(out, "def456") {
		t.Errorf("sensitive value leaked through WithAttrs/group: %s", out)
	}
}

// TestNewSecureLogger verifies level selection.
func TestNewSecureLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	quiet := NewSecureLogger(&buf, false)
	quiet.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug record emitted at warn level: %s", buf.String())
	}

	verbose := NewSecureLogger(&buf, true)
	verbose.Debug("visible")
	if buf.Len() == 0 {
		t.Error("debug record suppressed at debug level")
	}
}

// Package log provides a credential-masking slog handler.
//
// gatecrawl logs constantly around login material: form bodies carry the
// password and CSRF token, every request carries the session cookie. The
// SecureHandler wraps any slog.Handler and redacts attribute values that
// look like that material before they reach the log output, so a verbose
// crawl transcript can be shared without leaking the account.
package log

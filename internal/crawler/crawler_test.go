package crawler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gatecrawl/gatecrawl/internal/model"
	"github.com/gatecrawl/gatecrawl/internal/session"
	"github.com/gatecrawl/gatecrawl/internal/transport"
)

// testPage describes one path on the fake site.
type testPage struct {
	body     string
	status   int    // 0 means 200
	location string // non-empty means 302 with this Location
	failures int    // answer 503 this many times before serving
}

// testSite serves a page map and counts hits per path.
type testSite struct {
	mu    sync.Mutex
	hits  map[string]int
	pages map[string]testPage
}

func newTestSite(pages map[string]testPage) *testSite {
	return &testSite{hits: make(map[string]int), pages: pages}
}

func (s *testSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	n := s.hits[r.URL.Path]
	page, ok := s.pages[r.URL.Path]
	s.mu.Unlock()

	switch {
	case !ok:
		w.WriteHeader(http.StatusNotFound)
	case n <= page.failures:
		w.WriteHeader(http.StatusServiceUnavailable)
	case page.location != "":
		w.Header().Set("Location", page.location)
		w.WriteHeader(http.StatusFound)
	case page.status != 0:
		w.WriteHeader(page.status)
	default:
		_, _ = w.Write([]byte(page.body))
	}
}

func (s *testSite) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// crawlerFor wires a Crawler to an httptest TLS server.
func crawlerFor(t *testing.T, ts *httptest.Server, out io.Writer, opts ...Option) *Crawler {
	t.Helper()

	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatalf("parse test server URL: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	client, err := transport.NewClient(u.Hostname(), port, "",
		transport.WithInsecureTLS(), transport.WithTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	sess := session.NewManager(client, "user", "pass", nil)

	base := []Option{
		WithOutput(out),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithRetryPolicy(3, 5*time.Millisecond),
	}
	return New(sess, u.Host, "/fakebook/", append(base, opts...)...)
}

// fiveFlagSite builds a site whose crawl yields exactly five flags,
// exercising redirects, drops, retries, and scope filtering on the way.
func fiveFlagSite() *testSite {
	return newTestSite(map[string]testPage{
		"/fakebook/": {body: `<html><body>
			<a href="/fakebook/a/">a</a>
			<a href="/fakebook/b/">b</a>
			<a href="/fakebook/c/">c</a>
			<a href="/fakebook/f/">f</a>
			<a href="/fakebook/g/">g</a>
			<a href="/fakebook/ghost/">gone</a>
			<a href="/about/">out of scope</a>
		</body></html>`},
		"/fakebook/a/": {body: `<h2 class="secret_flag">FLAG: flag-a</h2>
			<a href="/fakebook/">home</a>`},
		"/fakebook/b/":      {location: "/accounts/secret/"},
		"/accounts/secret/": {body: `<h2>FLAG: flag-b</h2>`},
		"/fakebook/c/": {failures: 2, body: `<h2>FLAG: flag-c</h2>
			<a href="/fakebook/denied/">denied</a>`},
		"/fakebook/f/": {body: `<h2>FLAG: flag-f</h2>
			<a href="/fakebook/a/">a again</a>`},
		"/fakebook/g/":      {body: `<h2>FLAG: flag-g</h2>`},
		"/fakebook/denied/": {status: http.StatusForbidden},
	})
}

// TestCrawlerCompletes runs the full fake site to five flags.
func TestCrawlerCompletes(t *testing.T) {
	t.Parallel()

	site := fiveFlagSite()
	ts := httptest.NewTLSServer(site)
	defer ts.Close()

	var out bytes.Buffer
	c := crawlerFor(t, ts, &out, WithWorkers(5), WithFlagTarget(5))

	report, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Outcome != model.OutcomeComplete {
		t.Errorf("expected outcome %q, got %q", model.OutcomeComplete, report.Outcome)
	}

	want := []string{"flag-a", "flag-b", "flag-c", "flag-f", "flag-g"}
	got := append([]string(nil), report.Flags...)
	sort.Strings(got)
	if len(got) != len(want) {
		t.Fatalf("expected %d flags, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("flag %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	// Flags print once each, immediately, in discovery order.
	lines := strings.Fields(out.String())
	if len(lines) != len(report.Flags) {
		t.Fatalf("expected %d output lines, got %d: %q", len(report.Flags), len(lines), out.String())
	}
	for i, flag := range report.Flags {
		if lines[i] != flag {
			t.Errorf("output line %d: expected %q, got %q", i, flag, lines[i])
		}
	}

	if report.Visited == 0 || report.Fetches < report.Visited {
		t.Errorf("implausible counters: visited %d, fetches %d", report.Visited, report.Fetches)
	}
}

// TestCrawlerFetchDiscipline checks that only 503s cause re-fetches.
func TestCrawlerFetchDiscipline(t *testing.T) {
	t.Parallel()

	site := fiveFlagSite()
	ts := httptest.NewTLSServer(site)
	defer ts.Close()

	c := crawlerFor(t, ts, io.Discard, WithWorkers(1), WithFlagTarget(5))
	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Two 503 answers plus the successful third attempt.
	if got := site.hitCount("/fakebook/c/"); got != 3 {
		t.Errorf("expected 3 hits on the flaky page, got %d", got)
	}
	for _, path := range []string{"/fakebook/a/", "/fakebook/f/", "/accounts/secret/"} {
		if got := site.hitCount(path); got > 1 {
			t.Errorf("expected at most 1 hit on %s, got %d", path, got)
		}
	}
	if got := site.hitCount("/about/"); got != 0 {
		t.Errorf("expected out-of-scope path untouched, got %d hits", got)
	}
}

// TestCrawlerExhausted drains a site that has fewer flags than asked.
func TestCrawlerExhausted(t *testing.T) {
	t.Parallel()

	site := newTestSite(map[string]testPage{
		"/fakebook/":      {body: `<a href="/fakebook/only/">only</a>`},
		"/fakebook/only/": {body: `<h2>FLAG: lonely</h2>`},
	})
	ts := httptest.NewTLSServer(site)
	defer ts.Close()

	c := crawlerFor(t, ts, io.Discard, WithWorkers(3), WithFlagTarget(5))
	report, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Outcome != model.OutcomeExhausted {
		t.Errorf("expected outcome %q, got %q", model.OutcomeExhausted, report.Outcome)
	}
	if len(report.Flags) != 1 || report.Flags[0] != "lonely" {
		t.Errorf("expected [lonely], got %v", report.Flags)
	}
}

// TestCrawlerAbortsOnFatalStatus stops the run on a 500.
func TestCrawlerAbortsOnFatalStatus(t *testing.T) {
	t.Parallel()

	site := newTestSite(map[string]testPage{
		"/fakebook/":      {body: `<a href="/fakebook/boom/">boom</a>`},
		"/fakebook/boom/": {status: http.StatusInternalServerError},
	})
	ts := httptest.NewTLSServer(site)
	defer ts.Close()

	c := crawlerFor(t, ts, io.Discard, WithWorkers(1), WithFlagTarget(5))
	report, err := c.Run(context.Background())

	var fatal *FatalStatusError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected FatalStatusError, got %v", err)
	}
	if fatal.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", fatal.StatusCode)
	}
	if report.Outcome != model.OutcomeAborted {
		t.Errorf("expected outcome %q, got %q", model.OutcomeAborted, report.Outcome)
	}
}

// TestCrawlerRetryExhaustion drops a permanently unavailable page.
func TestCrawlerRetryExhaustion(t *testing.T) {
	t.Parallel()

	site := newTestSite(map[string]testPage{
		"/fakebook/":      {body: `<a href="/fakebook/down/">down</a>`},
		"/fakebook/down/": {failures: 100, body: "never served"},
	})
	ts := httptest.NewTLSServer(site)
	defer ts.Close()

	c := crawlerFor(t, ts, io.Discard, WithWorkers(1), WithFlagTarget(5),
		WithRetryPolicy(2, time.Millisecond))
	report, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Outcome != model.OutcomeExhausted {
		t.Errorf("expected outcome %q, got %q", model.OutcomeExhausted, report.Outcome)
	}
	// Initial attempt plus two bounded retries.
	if got := site.hitCount("/fakebook/down/"); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

// TestCrawlerInterrupted ends cleanly on a cancelled context.
func TestCrawlerInterrupted(t *testing.T) {
	t.Parallel()

	site := fiveFlagSite()
	ts := httptest.NewTLSServer(site)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := crawlerFor(t, ts, io.Discard, WithWorkers(5), WithFlagTarget(5))
	report, err := c.Run(ctx)
	if err != nil {
		t.Fatalf("expected clean interrupt, got %v", err)
	}
	if report.Outcome != model.OutcomeInterrupted {
		t.Errorf("expected outcome %q, got %q", model.OutcomeInterrupted, report.Outcome)
	}
}

// TestCrawlerWorkerCounts runs the same site at the pool bounds.
func TestCrawlerWorkerCounts(t *testing.T) {
	t.Parallel()

	for _, workers := range []int{1, 5, 10} {
		workers := workers
		t.Run(strconv.Itoa(workers), func(t *testing.T) {
			t.Parallel()

			site := fiveFlagSite()
			ts := httptest.NewTLSServer(site)
			defer ts.Close()

			c := crawlerFor(t, ts, io.Discard, WithWorkers(workers), WithFlagTarget(5))
			report, err := c.Run(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if report.Outcome != model.OutcomeComplete {
				t.Errorf("expected outcome %q, got %q", model.OutcomeComplete, report.Outcome)
			}
			if len(report.Flags) != 5 {
				t.Errorf("expected 5 flags, got %d", len(report.Flags))
			}
		})
	}
}

// TestCrawlerVerboseProgress checks the per-round status line shape.
func TestCrawlerVerboseProgress(t *testing.T) {
	t.Parallel()

	site := fiveFlagSite()
	ts := httptest.NewTLSServer(site)
	defer ts.Close()

	var out bytes.Buffer
	c := crawlerFor(t, ts, &out, WithWorkers(2), WithFlagTarget(5), WithVerbose(true))
	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var progress []string
	for _, line := range strings.Split(out.String(), "\n") {
		if strings.HasPrefix(line, "flags ") {
			progress = append(progress, line)
		}
	}
	if len(progress) == 0 {
		t.Fatal("expected at least one progress line")
	}
	for _, line := range progress {
		for _, field := range []string{"visited", "frontier", "elapsed"} {
			if !strings.Contains(line, field) {
				t.Errorf("progress line %q missing %q", line, field)
			}
		}
	}
}

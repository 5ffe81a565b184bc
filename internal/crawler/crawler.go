package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/gatecrawl/gatecrawl/internal/model"
	"github.com/gatecrawl/gatecrawl/internal/session"
)

// Crawler drives the authenticated crawl. It runs synchronized rounds:
// each round forks up to Workers goroutines, every goroutine pops at
// most one URL from the frontier and processes it to completion, and
// the round joins before the next one starts. Between rounds the
// coordinator alone inspects the frontier, which is where the
// termination conditions are checked.
type Crawler struct {
	sess     *session.Manager
	frontier *Frontier

	scheme string
	host   string // host:port
	prefix string

	workers    int
	flagTarget int
	maxRetries int
	retryDelay time.Duration
	limiter    *rate.Limiter

	verbose bool
	out     io.Writer
	outMu   sync.Mutex
	logger  *slog.Logger

	retryMu sync.Mutex
	retries map[string]int

	reportMu sync.Mutex
	report   *model.CrawlReport
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithWorkers sets the number of goroutines forked each round.
func WithWorkers(n int) Option {
	return func(c *Crawler) { c.workers = n }
}

// WithFlagTarget sets how many flags end the crawl.
func WithFlagTarget(n int) Option {
	return func(c *Crawler) { c.flagTarget = n }
}

// WithRetryPolicy bounds how often a 503 URL is re-attempted and how
// long a worker backs off before re-queueing it. The delay grows
// linearly with the attempt number.
func WithRetryPolicy(maxRetries int, delay time.Duration) Option {
	return func(c *Crawler) {
		c.maxRetries = maxRetries
		c.retryDelay = delay
	}
}

// WithRateLimit caps fetches per second across all workers. Zero or
// negative disables the limiter.
func WithRateLimit(perSecond float64) Option {
	return func(c *Crawler) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithVerbose enables the per-round progress line.
func WithVerbose(verbose bool) Option {
	return func(c *Crawler) { c.verbose = verbose }
}

// WithOutput redirects flag and progress output away from stdout.
func WithOutput(w io.Writer) Option {
	return func(c *Crawler) { c.out = w }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) { c.logger = logger }
}

// New creates a Crawler over an already logged-in session. target is
// the host:port being crawled and prefix is the path subtree the crawl
// is confined to.
func New(sess *session.Manager, target, prefix string, opts ...Option) *Crawler {
	c := &Crawler{
		sess:       sess,
		scheme:     "https",
		host:       target,
		prefix:     prefix,
		workers:    5,
		flagTarget: 5,
		maxRetries: 5,
		retryDelay: time.Second,
		out:        os.Stdout,
		logger:     slog.Default(),
		retries:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.frontier = NewFrontier(c.flagTarget, c.emitFlag)
	c.report = model.NewCrawlReport(target, prefix)
	return c
}

// Run crawls from the prefix root until the flag target is met, the
// frontier drains, the context is canceled, or a fatal condition stops
// the crawl. The report is populated in all outcomes; the error is
// non-nil only for fatal conditions.
func (c *Crawler) Run(ctx context.Context) (*model.CrawlReport, error) {
	start := time.Now()
	c.frontier.PushBack(c.absolute(c.prefix))

	outcome := model.OutcomeExhausted
	var fatal error
	for {
		if c.frontier.TargetMet() {
			outcome = model.OutcomeComplete
			break
		}
		if ctx.Err() != nil {
			outcome = model.OutcomeInterrupted
			break
		}
		stats := c.frontier.Snapshot()
		if stats.Queued == 0 {
			outcome = model.OutcomeExhausted
			break
		}
		if c.verbose {
			c.printProgress(stats, time.Since(start))
		}

		if err := c.runRound(ctx); err != nil {
			// A mid-round interrupt surfaces as whatever error the
			// aborted fetch produced, so consult the context too.
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				outcome = model.OutcomeInterrupted
				break
			}
			outcome = model.OutcomeAborted
			fatal = err
			break
		}
	}

	c.finishReport(outcome, time.Since(start))
	return c.report, fatal
}

// runRound forks up to Workers goroutines and joins them. The first
// fatal worker error cancels the rest of the round via the group
// context.
func (c *Crawler) runRound(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < c.workers; i++ {
		g.Go(func() error {
			url, ok := c.frontier.PopForVisit()
			if !ok {
				return nil
			}
			return c.visit(gctx, url)
		})
	}
	return g.Wait()
}

// visit fetches one URL and applies the status policy to the outcome.
func (c *Crawler) visit(ctx context.Context, pageURL string) error {
	c.frontier.MarkVisited(pageURL)

	path, err := requestPath(pageURL)
	if err != nil {
		c.logger.Warn("skipping unparsable URL", "url", pageURL, "error", err)
		return nil
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	resp, err := c.sess.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	c.recordPage(pageURL, resp.StatusCode, resp.Body)
	c.logger.Debug("fetched page", "url", pageURL, "status", resp.StatusCode)

	switch Decide(resp.StatusCode) {
	case ActionContinue:
		c.scanPage(pageURL, resp.Body)
		return nil
	case ActionRedirect:
		return c.followRedirect(pageURL, resp.RedirectTarget)
	case ActionSkip:
		c.logger.Debug("dropping page", "url", pageURL, "status", resp.StatusCode)
		return nil
	case ActionRetry:
		return c.scheduleRetry(ctx, pageURL)
	default:
		return &FatalStatusError{StatusCode: resp.StatusCode, URL: pageURL}
	}
}

// scanPage extracts links and flags from a 200 body. Flags are emitted
// by the frontier callback as they are recorded.
func (c *Crawler) scanPage(pageURL string, body []byte) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return
	}
	Scan(body, base, c.prefix,
		func(absURL string) { c.frontier.PushBack(absURL) },
		func(flag string) { c.frontier.AddFlag(flag) },
	)
}

// followRedirect resolves the Location target and puts it at the head
// of the queue so it is fetched promptly, visited or not.
func (c *Crawler) followRedirect(fromURL, location string) error {
	if location == "" {
		c.logger.Warn("redirect without location header", "url", fromURL)
		return nil
	}
	target, err := ResolveRedirect(fromURL, location)
	if err != nil {
		c.logger.Warn("dropping unresolvable redirect", "url", fromURL, "location", location, "error", err)
		return nil
	}
	c.logger.Debug("following redirect", "from", fromURL, "to", target)
	c.frontier.PushFront(target)
	return nil
}

// scheduleRetry backs off and re-queues a 503 URL at the head. Each
// URL gets at most maxRetries attempts; after that it is dropped with
// a warning instead of looping forever against a struggling server.
func (c *Crawler) scheduleRetry(ctx context.Context, pageURL string) error {
	c.retryMu.Lock()
	c.retries[pageURL]++
	attempt := c.retries[pageURL]
	c.retryMu.Unlock()

	if attempt > c.maxRetries {
		c.logger.Warn("giving up on unavailable page", "url", pageURL, "attempts", attempt-1)
		return nil
	}

	delay := time.Duration(attempt) * c.retryDelay
	c.logger.Debug("service unavailable, will retry", "url", pageURL, "attempt", attempt, "delay", delay)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
	}
	c.frontier.PushFront(pageURL)
	return nil
}

// emitFlag prints one confirmed flag. Wired as the frontier callback,
// so it fires once per flag, immediately, in discovery order. It must
// not call back into the frontier.
func (c *Crawler) emitFlag(flag string, total int) {
	c.outMu.Lock()
	fmt.Fprintln(c.out, flag)
	c.outMu.Unlock()
	c.logger.Info("flag found", "flag_number", total, "target", c.flagTarget)
}

// printProgress writes the per-round status line.
func (c *Crawler) printProgress(stats Stats, elapsed time.Duration) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintf(c.out, "flags %d/%d | visited %d | frontier %d | elapsed %s\n",
		stats.Flags, c.flagTarget, stats.Visited, stats.Queued, formatElapsed(elapsed))
}

// recordPage appends one fetch to the report.
func (c *Crawler) recordPage(pageURL string, statusCode int, body []byte) {
	visit := model.NewPageVisit(pageURL, statusCode, body)
	c.reportMu.Lock()
	c.report.Fetches++
	c.report.Pages = append(c.report.Pages, visit)
	c.reportMu.Unlock()
}

// finishReport fills in the summary fields once the crawl stops.
func (c *Crawler) finishReport(outcome model.Outcome, elapsed time.Duration) {
	stats := c.frontier.Snapshot()
	c.reportMu.Lock()
	c.report.Outcome = outcome
	c.report.Flags = c.frontier.Flags()
	c.report.Visited = stats.Visited
	c.report.Elapsed = elapsed
	c.reportMu.Unlock()
}

// absolute builds an absolute URL on the crawl target from a path.
func (c *Crawler) absolute(path string) string {
	return c.scheme + "://" + c.host + path
}

// requestPath extracts the path and query to put on the request line.
func requestPath(pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	path := parsed.Path
	if path == "" {
		path = "/"
	}
	if parsed.RawQuery != "" {
		path += "?" + parsed.RawQuery
	}
	return path, nil
}

// formatElapsed renders a duration as minutes, seconds and
// milliseconds for the progress line.
func formatElapsed(d time.Duration) string {
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	millis := int(d.Milliseconds()) % 1000
	return fmt.Sprintf("%dm%ds%dms", minutes, seconds, millis)
}

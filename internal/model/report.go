package model

import (
	"encoding/hex"
	"time"

	"golang.org/x/crypto/sha3"
)

// Outcome describes how a crawl run ended.
type Outcome string

const (
	// OutcomeComplete means the flag target was reached.
	OutcomeComplete Outcome = "complete"

	// OutcomeExhausted means the frontier drained (including pending
	// retries) before the flag target was met. The crawl has nothing
	// left to fetch, so it stops rather than spinning on empty rounds.
	OutcomeExhausted Outcome = "exhausted"

	// OutcomeInterrupted means the user cancelled the run. Flags found
	// before the interrupt are still reported.
	OutcomeInterrupted Outcome = "interrupted"

	// OutcomeAborted means the server answered with a fatal status
	// and the crawl could not continue.
	OutcomeAborted Outcome = "aborted"
)

// CrawlReport aggregates everything a single crawl run produced.
//
// Design decision: We collect results into one report struct rather than
// streaming them to the writers because:
//  1. Writers (simple, JSON, Markdown, database) all need the same view
//  2. A run is small (hundreds of pages), so memory is not a concern
//  3. The report is the natural unit to archive per run
type CrawlReport struct {
	// Target is the crawl target in "host:port" form.
	Target string `json:"target"`

	// Prefix is the in-scope path prefix the crawl was confined to.
	Prefix string `json:"prefix"`

	// Outcome records how the run ended.
	Outcome Outcome `json:"outcome"`

	// Flags holds the harvested tokens in discovery order.
	// The crawl stops once this reaches the configured target count.
	Flags []string `json:"flags"`

	// Visited is the number of URLs for which a fetch was initiated.
	Visited int `json:"visited"`

	// Fetches is the total number of HTTP exchanges performed,
	// including 503 re-attempts and redirect follow-ups.
	Fetches int `json:"fetches"`

	// Pages holds one record per completed fetch.
	Pages []PageVisit `json:"pages,omitempty"`

	// StartedAt is when the crawl began, after login.
	StartedAt time.Time `json:"started_at"`

	// Elapsed is the total run duration.
	Elapsed time.Duration `json:"elapsed"`
}

// NewCrawlReport creates a report for the given target and scope prefix.
func NewCrawlReport(target, prefix string) *CrawlReport {
	return &CrawlReport{
		Target:    target,
		Prefix:    prefix,
		Flags:     make([]string, 0),
		Pages:     make([]PageVisit, 0),
		StartedAt: time.Now(),
	}
}

// PageVisit is the record of one completed fetch.
type PageVisit struct {
	// URL is the absolute URL that was fetched.
	URL string `json:"url"`

	// StatusCode is the HTTP status the server answered with.
	StatusCode int `json:"status_code"`

	// BodyHash is the SHA3-256 hex digest of the response body.
	// Stored instead of the body itself: the archive only needs to
	// detect content changes between runs, not replay pages.
	BodyHash string `json:"body_hash,omitempty"`

	// FetchedAt is when the exchange completed.
	FetchedAt time.Time `json:"fetched_at"`
}

// NewPageVisit builds a visit record, hashing the body if present.
func NewPageVisit(url string, status int, body []byte) PageVisit {
	v := PageVisit{
		URL:        url,
		StatusCode: status,
		FetchedAt:  time.Now(),
	}
	if len(body) > 0 {
		v.BodyHash = HashBody(body)
	}
	return v
}

// HashBody returns the SHA3-256 hex digest of a response body.
func HashBody(body []byte) string {
	sum := sha3.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Package crawler implements the crawl engine: the shared frontier,
// the status-code policy, the streaming link and flag extractor, and
// the round-based worker pool that ties them together.
package crawler

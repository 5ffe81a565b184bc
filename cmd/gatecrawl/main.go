// Package main provides the entry point for the gatecrawl CLI.
//
// Gatecrawl logs into a gated TLS site with form-based authentication,
// crawls every page under a path prefix, and harvests the hidden
// tokens planted in the pages.
//
// Usage:
//
//	gatecrawl crawl --username alice --password secret example.com
//
// See --help for all available options.
package main

// main is the entry point for gatecrawl.
func main() {
	Execute()
}

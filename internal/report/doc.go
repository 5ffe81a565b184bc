// Package report renders crawl results in text, JSON and Markdown
// formats.
package report

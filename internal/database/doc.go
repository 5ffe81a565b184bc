// Package database archives finished crawl runs in a local SQLite
// file so results can be compared across runs. The crawl itself never
// reads from the archive.
package database

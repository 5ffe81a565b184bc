// Package model defines the data structures shared across gatecrawl.
//
// The types here are plain data carriers: the crawl engine fills them in
// and the report and database packages consume them. Keeping them in a
// leaf package avoids import cycles between the engine and its outputs.
package model

// Package config holds the runtime configuration for gatecrawl.
//
// Configuration is assembled from CLI flags and an optional YAML file,
// validated once up front, and then passed through the application by
// dependency injection. Nothing in this package reaches for global state.
//
// # Validation
//
// Validate() fails fast with a sentinel error describing the first
// problem found. An invalid worker count is a hard configuration error:
// no crawl is attempted.
//
// # File format
//
// The optional .gatecrawl file stores credentials and per-host overrides
// so they do not have to be passed on the command line:
//
//	defaults:
//	  username: alice
//	  password: hunter2
//	sites:
//	  site.example.com:
//	    username: bob
//	    password: secret
//	    prefix: /fakebook/
package config

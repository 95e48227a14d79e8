// Package cmd implements the simdeck subcommands.
package cmd

const (
	// CacheIdentifier is the kong variable identifier containing the path to
	// the cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable identifier containing the path to
	// the configuration deck file.
	ConfigIdentifier = "config"
)

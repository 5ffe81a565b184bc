// Package main provides the entry point for the gatecrawl CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for gatecrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gatecrawl",
		Short: "Authenticated crawler for gated TLS sites",
		Long: `Gatecrawl logs into a gated TLS site with form-based authentication,
crawls every page under a path prefix, and harvests the hidden tokens
planted in the pages.

The crawler speaks HTTP/1.1 directly over TLS, one connection per
request, so it works against servers that only understand the basics.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewRunsCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

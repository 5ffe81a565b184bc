package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gatecrawl/gatecrawl/internal/config"
	"github.com/gatecrawl/gatecrawl/internal/database"
)

// NewRunsCmd creates the runs command.
func NewRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List archived crawl runs",
		Long: `Runs lists crawl runs archived in the local database, newest first.

Examples:
  # Show the last 20 runs
  gatecrawl runs

  # Show more history
  gatecrawl runs --limit 100`,
		RunE: runRunsCmd,
	}

	cmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to list")

	return cmd
}

// runRunsCmd executes the runs command.
func runRunsCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	db, err := database.Open(config.XDGDataDir(), database.Options{
		CreateIfNotExists: false,
		EnableWAL:         true,
	})
	if err != nil {
		return fmt.Errorf("no run archive yet (run a crawl first): %w", err)
	}
	defer func() { _ = db.Close() }()

	runs, err := db.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No archived runs.")
		return nil
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%-5s %-30s %-12s %-6s %-8s %s\n",
		"ID", "TARGET", "OUTCOME", "FLAGS", "VISITED", "STARTED")
	for _, run := range runs {
		fmt.Fprintf(w, "%-5d %-30s %-12s %-6d %-8d %s\n",
			run.ID, run.Target, run.Outcome, run.FlagCount, run.Visited,
			run.StartedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

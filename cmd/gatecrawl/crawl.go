package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gatecrawl/gatecrawl/internal/config"
	"github.com/gatecrawl/gatecrawl/internal/crawler"
	"github.com/gatecrawl/gatecrawl/internal/database"
	"github.com/gatecrawl/gatecrawl/internal/log"
	"github.com/gatecrawl/gatecrawl/internal/model"
	"github.com/gatecrawl/gatecrawl/internal/report"
	"github.com/gatecrawl/gatecrawl/internal/session"
	"github.com/gatecrawl/gatecrawl/internal/transport"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [host]",
		Short: "Log in and harvest flags from a gated site",
		Long: `Crawl logs into the target site with the given credentials, then
follows every link under the scope prefix until the flag target is met
or nothing is left to fetch.

Flags are printed to standard output the moment they are found, in
discovery order. A summary report follows once the crawl ends.

Examples:
  # Crawl with credentials from the command line
  gatecrawl crawl --username alice --password secret example.com

  # Ten workers against a non-standard port
  gatecrawl crawl -u alice -p secret -w 10 --port 5000 example.com

  # Credentials from a config file (.gatecrawl)
  gatecrawl crawl example.com

  # JSON report written to a file
  gatecrawl crawl -u alice -p secret --json -o report.json example.com

Configuration file (.gatecrawl) example:
  defaults:
    username: alice
    workers: 5
  sites:
    example.com:
      password: secret
      prefix: /fakebook/`,
		Args: cobra.ExactArgs(1),
		RunE: runCrawlCmd,
	}

	// Target flags
	cmd.Flags().Int("port", config.DefaultPort, "TLS port of the target site")
	cmd.Flags().StringP("username", "u", "", "Login username")
	cmd.Flags().StringP("password", "p", "", "Login password")
	cmd.Flags().String("prefix", config.DefaultPrefix, "Path prefix the crawl is confined to")
	cmd.Flags().String("login-path", config.DefaultLoginPath, "Path of the login form")

	// Crawl behavior flags
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		fmt.Sprintf("Concurrent fetches per round (%d to %d)", config.MinWorkers, config.MaxWorkers))
	cmd.Flags().Int("flags", config.DefaultFlagTarget, "Number of flags that completes the crawl")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout, "Connection timeout for each request")
	cmd.Flags().Int("rate-limit", config.DefaultRateLimit, "Maximum fetches per second, 0 for unlimited")
	cmd.Flags().Int("retries", config.DefaultMaxRetries, "Attempts per URL on 503 before giving up")
	cmd.Flags().Duration("retry-delay", config.DefaultRetryDelay, "Base backoff between 503 attempts")

	// Connection flags
	cmd.Flags().String("socks", "", "SOCKS5 proxy address (e.g., 127.0.0.1:9050)")
	cmd.Flags().Bool("insecure", false, "Skip TLS certificate verification")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .gatecrawl in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-db", false, "Skip archiving the run to the local database")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Interrupts cancel the context; the crawl finishes the round in
	// flight and reports what it found.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, finishing current round...")
		cancel()
	}()

	return runCrawl(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags and the
// optional config file. Explicit flags win over file values.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Host = args[0]
	cfg.Verbose = getVerboseFlag(cmd)

	var err error
	if cfg.Port, err = cmd.Flags().GetInt("port"); err != nil {
		return nil, err
	}
	if cfg.Username, err = cmd.Flags().GetString("username"); err != nil {
		return nil, err
	}
	if cfg.Password, err = cmd.Flags().GetString("password"); err != nil {
		return nil, err
	}
	if cfg.Prefix, err = cmd.Flags().GetString("prefix"); err != nil {
		return nil, err
	}
	if cfg.LoginPath, err = cmd.Flags().GetString("login-path"); err != nil {
		return nil, err
	}
	if cfg.Workers, err = cmd.Flags().GetInt("workers"); err != nil {
		return nil, err
	}
	if cfg.FlagTarget, err = cmd.Flags().GetInt("flags"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = cmd.Flags().GetInt("rate-limit"); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = cmd.Flags().GetInt("retries"); err != nil {
		return nil, err
	}
	if cfg.RetryDelay, err = cmd.Flags().GetDuration("retry-delay"); err != nil {
		return nil, err
	}
	if cfg.SocksProxy, err = cmd.Flags().GetString("socks"); err != nil {
		return nil, err
	}
	if cfg.InsecureTLS, err = cmd.Flags().GetBool("insecure"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = cmd.Flags().GetString("config"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return nil, err
	}
	noDB, err := cmd.Flags().GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB
	cfg.DBDir = config.XDGDataDir()

	if err := applyConfigFile(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyConfigFile merges file-based site settings into the config.
// Values already set by explicit flags are left alone.
func applyConfigFile(cmd *cobra.Command, cfg *config.Config) error {
	explicit := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath == "" {
		if explicit {
			return fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
		}
		return nil
	}

	file, err := config.LoadConfigFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	site := file.SiteFor(cfg.Host)

	if cfg.Username == "" {
		cfg.Username = site.Username
	}
	if cfg.Password == "" {
		cfg.Password = site.Password
	}
	if !cmd.Flags().Changed("prefix") && site.Prefix != "" {
		cfg.Prefix = site.Prefix
	}
	if !cmd.Flags().Changed("login-path") && site.LoginPath != "" {
		cfg.LoginPath = site.LoginPath
	}
	if !cmd.Flags().Changed("workers") && site.Workers != 0 {
		cfg.Workers = site.Workers
	}
	return nil
}

// runCrawl executes the crawl: login, rounds, report, archive.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting crawl",
		"target", cfg.Target(),
		"prefix", cfg.Prefix,
		"workers", cfg.Workers,
		"flagTarget", cfg.FlagTarget,
	)

	var opts []transport.Option
	opts = append(opts, transport.WithTimeout(cfg.Timeout), transport.WithLogger(logger))
	if cfg.InsecureTLS {
		opts = append(opts, transport.WithInsecureTLS())
	}
	client, err := transport.NewClient(cfg.Host, cfg.Port, cfg.SocksProxy, opts...)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	sess := session.NewManager(client, cfg.Username, cfg.Password, logger)
	if err := sess.Login(ctx, cfg.LoginPath); err != nil {
		if errors.Is(err, session.ErrLoginFailed) {
			return fmt.Errorf("login rejected for user %q: %w", cfg.Username, err)
		}
		return fmt.Errorf("login failed: %w", err)
	}
	logger.Info("login succeeded", "user", cfg.Username)

	c := crawler.New(sess, cfg.Target(), cfg.Prefix,
		crawler.WithWorkers(cfg.Workers),
		crawler.WithFlagTarget(cfg.FlagTarget),
		crawler.WithRetryPolicy(cfg.MaxRetries, cfg.RetryDelay),
		crawler.WithRateLimit(float64(cfg.RateLimit)),
		crawler.WithVerbose(cfg.Verbose),
		crawler.WithLogger(logger),
	)

	startTime := time.Now()
	crawlReport, crawlErr := c.Run(ctx)
	logger.Info("crawl finished",
		"outcome", crawlReport.Outcome,
		"flags", len(crawlReport.Flags),
		"elapsed", time.Since(startTime).Round(time.Millisecond),
	)

	if err := outputReport(cfg, crawlReport); err != nil {
		logger.Error("report failed", "error", err)
	}
	if cfg.SaveToDB {
		if err := archiveReport(ctx, cfg, crawlReport, logger); err != nil {
			logger.Error("failed to archive run", "error", err)
		}
	}

	if crawlErr != nil {
		return fmt.Errorf("crawl aborted: %w", crawlErr)
	}
	return nil
}

// outputReport writes the report in the configured format, to the
// configured destination.
func outputReport(cfg *config.Config, crawlReport *model.CrawlReport) error {
	out := io.Writer(os.Stdout)
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create report directory: %w", err)
			}
		}
		f, err := os.Create(cfg.ReportFile)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewJSONWriter(out, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(out)
	default:
		w = report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose))
	}
	_, err := w.Write(crawlReport)
	return err
}

// archiveReport saves the finished run to the local database. A fresh
// context is used when the run was interrupted, so the archive still
// happens.
func archiveReport(ctx context.Context, cfg *config.Config, crawlReport *model.CrawlReport, logger *slog.Logger) error {
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	runID, err := db.SaveCrawlReport(ctx, crawlReport)
	if err != nil {
		return err
	}
	logger.Info("run archived", "runID", runID, "path", db.Path())
	return nil
}

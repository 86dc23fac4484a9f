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

	"github.com/spf13/cobra"

	"github.com/nao1215/vulncrawl/internal/config"
	"github.com/nao1215/vulncrawl/internal/crawler"
	"github.com/nao1215/vulncrawl/internal/database"
	seclog "github.com/nao1215/vulncrawl/internal/log"
	"github.com/nao1215/vulncrawl/internal/model"
	"github.com/nao1215/vulncrawl/internal/report"
	"github.com/nao1215/vulncrawl/internal/transport"
	"github.com/nao1215/vulncrawl/internal/vuln"
)

// Flags whose explicit value wins over the config file.
var siteOverridableFlags = []string{"depth", "max-pages", "same-host", "fold-case"}

// addCrawlFlags registers the crawl flags on cmd.
func addCrawlFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("url", "u", "",
		"Seed URL to start crawling from (required)")
	cmd.Flags().UintP("depth", "d", config.DefaultDepth,
		"Number of link hops to follow from the seed (0 = seed only)")
	cmd.Flags().IntP("concurrency", "c", config.DefaultConcurrency,
		"Maximum number of simultaneous fetches")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each fetch")
	cmd.Flags().IntP("retries", "r", config.DefaultRetries,
		"Extra attempts for timeouts and connection resets")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to fetch (0 = unlimited)")
	cmd.Flags().Bool("same-host", false,
		"Only follow links on the seed host")
	cmd.Flags().Bool("fold-case", false,
		"Match header values case-insensitively")
	cmd.Flags().String("proxy", "",
		"Route requests through a SOCKS5 proxy (host:port)")

	// Configuration file
	cmd.Flags().String("config", "",
		"Configuration file path (default: .vulncrawl in current or home directory, or the XDG config file)")

	// Output flags
	cmd.Flags().BoolP("json", "j", false,
		"Stream JSON lines instead of text (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Append a Markdown summary report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write output to specified file path (creates directories if needed)")
	cmd.Flags().BoolP("save", "s", false,
		"Store the run and its findings in the results database")
}

// runCrawlCmd executes a crawl from the root command.
func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, finishing in-flight fetches...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runCrawl(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

// buildConfig creates a Config from cobra command flags and the config file.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error

	cfg.SeedURL, err = flags.GetString("url")
	if err != nil {
		return nil, err
	}

	depth, err := flags.GetUint("depth")
	if err != nil {
		return nil, err
	}
	cfg.Depth = int(depth) //nolint:gosec // depth is a small hop count

	cfg.Concurrency, err = flags.GetInt("concurrency")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = flags.GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.Retries, err = flags.GetInt("retries")
	if err != nil {
		return nil, err
	}

	cfg.MaxPages, err = flags.GetInt("max-pages")
	if err != nil {
		return nil, err
	}

	cfg.SameHost, err = flags.GetBool("same-host")
	if err != nil {
		return nil, err
	}

	cfg.FoldCase, err = flags.GetBool("fold-case")
	if err != nil {
		return nil, err
	}

	cfg.ProxyAddress, err = flags.GetString("proxy")
	if err != nil {
		return nil, err
	}

	cfg.JSONReport, err = flags.GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = flags.GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = flags.GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.SaveToDB, err = flags.GetBool("save")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.DBDir = getDBDir(cmd)

	// If the user named a config file it must exist; otherwise a missing
	// file just means no overrides.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	explicit := make(map[string]bool, len(siteOverridableFlags))
	for _, name := range siteOverridableFlags {
		explicit[name] = flags.Changed(name)
	}
	cfg.ApplySiteConfig(explicit)

	return cfg, nil
}

// setupLogger creates the secure structured logger for a run.
// Logs go to stderr so stdout only carries results.
func setupLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	if cfg.JSONReport {
		return seclog.NewSecureJSONLogger(w, cfg.Verbose)
	}
	return seclog.NewSecureLogger(w, cfg.Verbose)
}

// runCrawl wires the crawl components together and runs one crawl.
// An interrupted crawl is not an error: its partial results are reported.
func runCrawl(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer, logger *slog.Logger) error {
	logger.Info("starting crawl",
		"seed", cfg.SeedURL,
		"depth", cfg.Depth,
		"concurrency", cfg.Concurrency,
		"maxPages", cfg.MaxPages,
		"proxy", cfg.ProxyAddress != "",
	)

	if cfg.ProxyAddress != "" {
		if err := transport.CheckProxy(ctx, cfg.ProxyAddress); err != nil {
			return fmt.Errorf("proxy check failed (make sure a SOCKS5 proxy is running at %s): %w",
				cfg.ProxyAddress, err)
		}
		logger.Info("proxy connection verified", "address", cfg.ProxyAddress)
	}

	client, err := transport.NewHTTPClient(
		transport.WithProxy(cfg.ProxyAddress),
		transport.WithMaxIdleConnsPerHost(cfg.Concurrency),
	)
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}

	// Open the database before crawling so a bad path fails fast.
	var db *database.CrawlDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	output, closeOutput, err := openOutput(cfg.ReportFile, stdout)
	if err != nil {
		return err
	}
	defer closeOutput()

	var stream report.StreamSink
	if cfg.JSONReport {
		stream = report.NewJSONLinesSink(output)
	} else {
		stream = report.NewTextSink(output)
	}
	collector := report.NewCollector()

	fetcher := crawler.NewRetryFetcher(
		crawler.NewHTTPFetcher(client,
			crawler.WithTimeout(cfg.Timeout),
			crawler.WithMaxBodySize(cfg.MaxBodySize),
			crawler.WithUserAgent(cfg.UserAgent),
		),
		cfg.Retries,
		crawler.DefaultRetryDelays(),
		logger,
	)

	scanner := vuln.NewScanner(
		vuln.WithRules(cfg.Rules...),
		vuln.WithFoldCase(cfg.FoldCase),
	)

	spider := crawler.NewSpider(
		crawler.WithFetcher(fetcher),
		crawler.WithScanner(scanner),
		crawler.WithSink(model.MultiSink{stream, collector}),
		crawler.WithLogger(logger),
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithSameHost(cfg.SameHost),
		crawler.WithIgnorePatterns(cfg.IgnorePatterns),
		crawler.WithFollowPatterns(cfg.FollowPatterns),
	)

	summary, err := spider.Crawl(ctx, cfg.SeedURL, cfg.Depth)
	if summary == nil {
		if errors.Is(err, crawler.ErrInvalidSeed) {
			return fmt.Errorf("%w: %w", config.ErrInvalidSeedURL, err)
		}
		return fmt.Errorf("crawl failed: %w", err)
	}
	if err != nil {
		logger.Warn("crawl interrupted, reporting partial results", "error", err)
	}

	if err := stream.Finish(*summary); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	crawlReport := collector.Report(*summary)

	if cfg.MarkdownReport {
		if _, err := fmt.Fprintln(output); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		if _, err := report.NewMarkdownWriter(output).Write(crawlReport); err != nil {
			return fmt.Errorf("failed to write markdown report: %w", err)
		}
	}

	// Saving uses a fresh context so an interrupted run is still recorded.
	if db != nil {
		runID, err := db.SaveCrawlReport(context.WithoutCancel(ctx), crawlReport)
		if err != nil {
			return fmt.Errorf("failed to save crawl report: %w", err)
		}
		fmt.Fprintf(stderr, "[*] Saved as run #%d (see: vulncrawl history %d)\n", runID, runID)
	}

	if cfg.ReportFile != "" {
		fmt.Fprintf(stderr, "[*] Output written to %s\n", cfg.ReportFile)
	}

	return nil
}

// openOutput returns the destination for results: the report file if set,
// otherwise stdout. The returned close function is always safe to call.
func openOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports list weaknesses of the target, so only the owner may read them.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-chosen output path
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

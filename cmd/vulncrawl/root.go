package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/vulncrawl/internal/config"
)

// Exit codes.
const (
	exitFailure     = 1
	exitConfigError = 2
)

// NewRootCmd creates the root command for vulncrawl.
// The root command itself runs a crawl; subcommands manage config and history.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vulncrawl -u <url> [flags]",
		Short: "Crawl a website and report missing security headers",
		Long: `vulncrawl crawls a website starting from a seed URL, follows links up to a
fixed depth, and inspects every response for:
- Missing X-Content-Type-Options, Strict-Transport-Security and
  Content-Security-Policy headers
- Server headers advertising Apache 2.4.x
- X-Powered-By headers advertising PHP 7.x

Each page is fetched at most once. Results are printed while the crawl runs.

Examples:
  # Crawl two levels deep (the default)
  vulncrawl -u https://example.com

  # Only the seed page, as JSON lines
  vulncrawl -u https://example.com -d 0 --json

  # Stay on the seed host, stop after 200 pages, and keep the results
  vulncrawl -u https://example.com --same-host -p 200 --save

  # Append a Markdown summary and write everything to a file
  vulncrawl -u https://example.com -m -o reports/example.md`,
		Version:       getVersion(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runCrawlCmd,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("db-dir", config.XDGDataDir(),
		"Directory of the results database")

	addCrawlFlags(cmd)

	// Bad flag values are configuration errors.
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	})

	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command and exits with a non-zero code on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error returned by a command to the process exit code.
func exitCode(err error) int {
	if errors.Is(err, config.ErrInvalidConfig) {
		return exitConfigError
	}
	return exitFailure
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

// getDBDir retrieves the database directory from the command or its parent.
func getDBDir(cmd *cobra.Command) string {
	dir, err := cmd.Flags().GetString("db-dir")
	if err != nil || dir == "" {
		return config.XDGDataDir()
	}
	return dir
}

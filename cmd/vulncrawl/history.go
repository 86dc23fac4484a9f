package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/vulncrawl/internal/config"
	"github.com/nao1215/vulncrawl/internal/database"
	"github.com/nao1215/vulncrawl/internal/model"
	"github.com/nao1215/vulncrawl/internal/report"
)

// defaultHistoryLimit is the number of runs listed by default.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
// It reads runs stored with --save from the results database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show crawl runs saved in the results database",
		Long: `History lists crawl runs stored with --save, or shows the findings of one run.

With --diff, the findings of the run are compared with the previous run of
the same seed URL, showing which findings are new and which were resolved.

Examples:
  # List the latest runs
  vulncrawl history

  # Show the findings of run 7
  vulncrawl history 7

  # Show run 7 as a Markdown report
  vulncrawl history 7 --markdown

  # Compare run 7 with the previous run of the same seed
  vulncrawl history 7 --diff`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Number of runs to list (0 = all)")
	cmd.Flags().Bool("diff", false,
		"Compare the run with the previous run of the same seed")
	cmd.Flags().BoolP("json", "j", false,
		"Output the run as JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output the run as Markdown (mutually exclusive with --json)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	limit, err := flags.GetInt("limit")
	if err != nil {
		return err
	}
	diff, err := flags.GetBool("diff")
	if err != nil {
		return err
	}
	jsonOutput, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := flags.GetBool("markdown")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	if jsonOutput && markdownOutput {
		return config.ErrConflictingReportFormats
	}
	var runID int64
	if len(args) == 1 {
		runID, err = strconv.ParseInt(args[0], 10, 64)
		if err != nil || runID <= 0 {
			return fmt.Errorf("%w: invalid run ID %q", config.ErrInvalidConfig, args[0])
		}
	} else if diff {
		return fmt.Errorf("%w: --diff needs a run ID", config.ErrInvalidConfig)
	}

	out := cmd.OutOrStdout()
	dbDir := getDBDir(cmd)

	if _, err := os.Stat(filepath.Join(dbDir, database.DBFileName)); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(out, "No saved runs found.")
		fmt.Fprintln(out, "\nUse 'vulncrawl -u <url> --save' to store the results of a crawl.")
		return nil
	}

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()

	switch {
	case runID == 0:
		return listRuns(ctx, out, db, limit)
	case diff:
		return showDiff(ctx, out, db, runID)
	default:
		return showRun(ctx, out, db, runID, jsonOutput, markdownOutput)
	}
}

// listRuns prints a table of stored runs, newest first.
func listRuns(ctx context.Context, out io.Writer, db *database.CrawlDB, limit int) error {
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No saved runs found.")
		return nil
	}

	fmt.Fprintf(out, "Saved runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-6s  %-20s  %-6s  %-8s  %-14s  %s\n", "ID", "Date", "Pages", "Status", "Risk Summary", "Seed")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 86))

	for _, run := range runs {
		s := run.Summary
		fmt.Fprintf(out, "  %-6d  %-20s  %-6d  %-8s  %-14s  %s\n",
			run.ID,
			s.StartedAt.Local().Format("2006-01-02 15:04:05"),
			s.PagesCrawled,
			runStatus(s),
			formatRiskSummary(run.RiskSummary),
			s.Seed,
		)
	}

	fmt.Fprintln(out, "\nUse 'vulncrawl history <id>' to see the findings of a run.")
	fmt.Fprintln(out, "Use 'vulncrawl history <id> --diff' to compare it with the previous run.")
	return nil
}

// showRun prints one run in the requested format.
func showRun(ctx context.Context, out io.Writer, db *database.CrawlDB, runID int64, jsonOutput, markdownOutput bool) error {
	crawlReport, err := db.GetRunReport(ctx, runID)
	if err != nil {
		return err
	}

	switch {
	case jsonOutput:
		_, err = report.NewJSONWriter(out, report.WithPrettyPrint()).Write(crawlReport)
		return err
	case markdownOutput:
		_, err = report.NewMarkdownWriter(out).Write(crawlReport)
		return err
	}

	s := crawlReport.Summary
	fmt.Fprintf(out, "Run #%d: %s (depth %d)\n", runID, s.Seed, s.Depth)
	fmt.Fprintf(out, "Started %s, %s\n\n",
		s.StartedAt.Local().Format("2006-01-02 15:04:05"),
		strings.TrimPrefix(report.FormatSummary(s), "[*] "),
	)

	if !crawlReport.HasFindings() {
		fmt.Fprintln(out, "No findings.")
		return nil
	}
	for _, sev := range model.AllSeverities() {
		for _, f := range crawlReport.FindingsBySeverity(sev) {
			fmt.Fprintf(out, "  [%-8s] %s\n", sev, f.Message())
		}
	}
	return nil
}

// showDiff prints the findings that changed since the previous run of the same seed.
func showDiff(ctx context.Context, out io.Writer, db *database.CrawlDB, runID int64) error {
	run, err := db.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	prevID, err := db.PreviousRunID(ctx, runID)
	if err != nil {
		return err
	}
	if prevID == 0 {
		fmt.Fprintf(out, "Run #%d is the first saved run of %s; nothing to compare.\n", runID, run.Summary.Seed)
		return nil
	}

	diff, err := db.CompareRuns(ctx, prevID, runID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Comparing run #%d with run #%d (%s)\n\n", runID, prevID, run.Summary.Seed)
	fmt.Fprintf(out, "New findings (%d):\n", len(diff.New))
	for _, f := range diff.New {
		fmt.Fprintf(out, "  + [%s] %s\n", f.Severity, f.Message())
	}
	fmt.Fprintf(out, "\nResolved findings (%d):\n", len(diff.Resolved))
	for _, f := range diff.Resolved {
		fmt.Fprintf(out, "  - [%s] %s\n", f.Severity, f.Message())
	}
	fmt.Fprintf(out, "\nUnchanged: %d\n", diff.Unchanged)
	return nil
}

// runStatus returns a short word for how a run ended.
func runStatus(s model.CrawlSummary) string {
	switch {
	case s.Cancelled:
		return "partial"
	case s.Truncated:
		return "limited"
	default:
		return "complete"
	}
}

// formatRiskSummary formats the risk summary map into a short string like "H:1 M:2".
func formatRiskSummary(summary map[string]int) string {
	if summary == nil {
		return "N/A"
	}

	var parts []string
	for _, sev := range model.AllSeverities() {
		if v := summary[sev.String()]; v > 0 {
			parts = append(parts, fmt.Sprintf("%c:%d", sev.String()[0], v))
		}
	}
	if len(parts) == 0 {
		return "No findings"
	}
	return strings.Join(parts, " ")
}

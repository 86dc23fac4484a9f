package database

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/vulncrawl/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *CrawlDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// newTestReport builds a report for seed with one finding per rule on page.
func newTestReport(seed string, started time.Time, findings ...model.Finding) *model.CrawlReport {
	summary := model.CrawlSummary{
		Seed:            seed,
		Depth:           2,
		StartedAt:       started,
		FinishedAt:      started.Add(2 * time.Second),
		PagesCrawled:    4,
		PagesFailed:     1,
		Duplicates:      3,
		Findings:        len(findings),
		PeakConcurrency: 2,
		Truncated:       true,
	}
	return model.NewCrawlReport(summary, findings)
}

func missing(url, rule, header string, sev model.Severity) model.Finding {
	return model.Finding{
		URL:      url,
		Rule:     rule,
		Kind:     model.KindMissingHeader,
		Header:   header,
		Detail:   "header not present",
		Severity: sev,
	}
}

var (
	cspRoot   = missing("https://example.com/", "CSP", "Content-Security-Policy", model.SeverityMedium)
	ctoRoot   = missing("https://example.com/", "CTO", "X-Content-Type-Options", model.SeverityLow)
	hstsAbout = missing("https://example.com/about", "HSTS", "Strict-Transport-Security", model.SeverityMedium)
	oldApache = model.Finding{
		URL:       "https://example.com/about",
		Rule:      "OldApache",
		Kind:      model.KindOutdatedServer,
		Header:    "Server",
		Component: "Apache server",
		Detail:    "Apache/2.4.41",
		Severity:  model.SeverityHigh,
	}
)

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, DBFileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, DBFileName) {
			t.Errorf("Path() = %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "nonexistent-db")

		_, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err == nil {
			t.Fatal("expected error when CreateIfNotExists=false and database does not exist")
		}
		if !strings.Contains(err.Error(), "database not found") {
			t.Errorf("expected informative error, got %q", err.Error())
		}
		if _, statErr := os.Stat(dbDir); !os.IsNotExist(statErr) {
			t.Error("database directory should not have been created when CreateIfNotExists=false")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "existing-db")
		db1, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		runID, err := db1.SaveCrawlReport(t.Context(), newTestReport("https://example.com/", time.Now(), cspRoot))
		if err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
		db1.Close()

		db2, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to open existing database: %v", err)
		}
		defer db2.Close()

		if _, err := db2.GetRun(t.Context(), runID); err != nil {
			t.Errorf("expected run to persist: %v", err)
		}
	})
}

// TestDefaultOptions tests the default options values.
func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	if !opts.CreateIfNotExists {
		t.Error("expected CreateIfNotExists to be true by default")
	}
	if !opts.EnableWAL {
		t.Error("expected EnableWAL to be true by default")
	}
}

func TestSaveCrawlReport(t *testing.T) {
	t.Parallel()

	t.Run("round trips summary and findings", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		started := time.Date(2026, 3, 4, 5, 6, 7, 8000, time.UTC)
		report := newTestReport("https://example.com/", started, ctoRoot, cspRoot, oldApache)

		runID, err := db.SaveCrawlReport(t.Context(), report)
		if err != nil {
			t.Fatalf("SaveCrawlReport() error = %v", err)
		}

		run, err := db.GetRun(t.Context(), runID)
		if err != nil {
			t.Fatalf("GetRun() error = %v", err)
		}
		got := run.Summary
		if got.Seed != "https://example.com/" || got.Depth != 2 || got.PagesCrawled != 4 || got.PagesFailed != 1 {
			t.Errorf("unexpected summary: %+v", got)
		}
		if !got.StartedAt.Equal(started) || got.Elapsed() != 2*time.Second {
			t.Errorf("times not preserved: started %v elapsed %v", got.StartedAt, got.Elapsed())
		}
		if !got.Truncated || got.Cancelled {
			t.Errorf("flags not preserved: %+v", got)
		}
		if run.RiskSummary["HIGH"] != 1 || run.RiskSummary["MEDIUM"] != 1 || run.RiskSummary["LOW"] != 1 || run.RiskSummary["CRITICAL"] != 0 {
			t.Errorf("unexpected risk summary: %v", run.RiskSummary)
		}

		findings, err := db.GetRunFindings(t.Context(), runID)
		if err != nil {
			t.Fatalf("GetRunFindings() error = %v", err)
		}
		if len(findings) != 3 {
			t.Fatalf("findings = %d, want 3", len(findings))
		}
		// Most severe first.
		if findings[0] != oldApache || findings[1] != cspRoot || findings[2] != ctoRoot {
			t.Errorf("unexpected findings order: %+v", findings)
		}
	})

	t.Run("duplicate url and rule stored once", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		runID, err := db.SaveCrawlReport(t.Context(), newTestReport("https://example.com/", time.Now(), cspRoot, cspRoot))
		if err != nil {
			t.Fatalf("SaveCrawlReport() error = %v", err)
		}

		findings, err := db.GetRunFindings(t.Context(), runID)
		if err != nil {
			t.Fatalf("GetRunFindings() error = %v", err)
		}
		if len(findings) != 1 {
			t.Errorf("findings = %d, want 1", len(findings))
		}
	})

	t.Run("same finding in two runs", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		for range 2 {
			if _, err := db.SaveCrawlReport(t.Context(), newTestReport("https://example.com/", time.Now(), cspRoot)); err != nil {
				t.Fatalf("SaveCrawlReport() error = %v", err)
			}
		}
	})
}

func TestListRuns(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 3 {
		if _, err := db.SaveCrawlReport(t.Context(), newTestReport("https://example.com/", base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("SaveCrawlReport() error = %v", err)
		}
	}

	all, err := db.ListRuns(t.Context(), 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("runs = %d, want 3", len(all))
	}
	if all[0].ID <= all[1].ID || all[1].ID <= all[2].ID {
		t.Error("expected newest run first")
	}

	limited, err := db.ListRuns(t.Context(), 2)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("runs = %d, want 2", len(limited))
	}
}

func TestGetRun_NotFound(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	if _, err := db.GetRun(t.Context(), 42); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun() error = %v, want ErrRunNotFound", err)
	}
	if _, err := db.GetRunReport(t.Context(), 42); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRunReport() error = %v, want ErrRunNotFound", err)
	}

	findings, err := db.GetRunFindings(t.Context(), 42)
	if err != nil {
		t.Fatalf("GetRunFindings() error = %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("findings = %d, want 0", len(findings))
	}
}

func TestCompareRuns(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	now := time.Now()

	first, err := db.SaveCrawlReport(t.Context(), newTestReport("https://example.com/", now, cspRoot, ctoRoot, oldApache))
	if err != nil {
		t.Fatalf("SaveCrawlReport() error = %v", err)
	}
	if _, err := db.SaveCrawlReport(t.Context(), newTestReport("https://other.example/", now)); err != nil {
		t.Fatalf("SaveCrawlReport() error = %v", err)
	}
	second, err := db.SaveCrawlReport(t.Context(), newTestReport("https://example.com/", now, cspRoot, hstsAbout))
	if err != nil {
		t.Fatalf("SaveCrawlReport() error = %v", err)
	}

	prev, err := db.PreviousRunID(t.Context(), second)
	if err != nil {
		t.Fatalf("PreviousRunID() error = %v", err)
	}
	if prev != first {
		t.Errorf("PreviousRunID() = %d, want %d (other seeds are skipped)", prev, first)
	}
	if none, err := db.PreviousRunID(t.Context(), first); err != nil || none != 0 {
		t.Errorf("PreviousRunID(first) = %d, %v, want 0, nil", none, err)
	}

	diff, err := db.CompareRuns(t.Context(), first, second)
	if err != nil {
		t.Fatalf("CompareRuns() error = %v", err)
	}
	if diff.Unchanged != 1 {
		t.Errorf("Unchanged = %d, want 1", diff.Unchanged)
	}
	if len(diff.New) != 1 || diff.New[0].Rule != "HSTS" {
		t.Errorf("New = %+v, want the HSTS finding", diff.New)
	}
	if len(diff.Resolved) != 2 {
		t.Errorf("Resolved = %+v, want 2 findings", diff.Resolved)
	}
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	a := Fingerprint(cspRoot)
	if a != Fingerprint(cspRoot) {
		t.Error("fingerprint should be stable")
	}

	changedDetail := cspRoot
	changedDetail.Detail = "something else"
	if Fingerprint(changedDetail) != a {
		t.Error("fingerprint should depend on url and rule only")
	}
	if Fingerprint(ctoRoot) == a {
		t.Error("different rules should not share a fingerprint")
	}

	// The separator keeps ("ab", "c") and ("a", "bc") apart.
	if Fingerprint(model.Finding{URL: "ab", Rule: "c"}) == Fingerprint(model.Finding{URL: "a", Rule: "bc"}) {
		t.Error("url and rule should not run together")
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		zero  bool
	}{
		{name: "rfc3339 nano", input: "2026-01-02T03:04:05.123456789Z"},
		{name: "sqlite default", input: "2026-01-02 03:04:05"},
		{name: "iso without zone", input: "2026-01-02T03:04:05"},
		{name: "garbage", input: "yesterday", zero: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := parseTimestamp(tt.input)
			if got.IsZero() != tt.zero {
				t.Errorf("parseTimestamp(%q) = %v, zero want %v", tt.input, got, tt.zero)
			}
		})
	}
}

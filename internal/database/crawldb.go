package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/vulncrawl/internal/model"
)

// DBFileName is the name of the SQLite file inside the data directory.
const DBFileName = "vulncrawl.db"

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// CrawlDB provides SQLite-based storage for crawl runs and their findings.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB in the given directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run a crawl with --save first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per finished crawl
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seed TEXT NOT NULL,
		depth INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		pages_crawled INTEGER NOT NULL DEFAULT 0,
		pages_failed INTEGER NOT NULL DEFAULT 0,
		duplicates INTEGER NOT NULL DEFAULT 0,
		dropped INTEGER NOT NULL DEFAULT 0,
		findings INTEGER NOT NULL DEFAULT 0,
		peak_concurrency INTEGER NOT NULL DEFAULT 0,
		cancelled INTEGER NOT NULL DEFAULT 0,
		truncated INTEGER NOT NULL DEFAULT 0,
		risk_summary TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_seed ON runs(seed);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Findings of a run, deduplicated by (url, rule) fingerprint
	CREATE TABLE IF NOT EXISTS findings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		fingerprint TEXT NOT NULL,
		url TEXT NOT NULL,
		rule TEXT NOT NULL,
		kind TEXT NOT NULL,
		header TEXT NOT NULL,
		component TEXT,
		detail TEXT,
		severity INTEGER NOT NULL,
		UNIQUE(run_id, fingerprint)
	);

	CREATE INDEX IF NOT EXISTS idx_findings_run ON findings(run_id);
	CREATE INDEX IF NOT EXISTS idx_findings_url ON findings(url);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord is a stored crawl run without its findings.
type RunRecord struct {
	// ID is the unique identifier of the run in the database.
	ID int64

	// Summary holds the run counters.
	Summary model.CrawlSummary

	// RiskSummary contains counts of findings by severity name.
	RiskSummary map[string]int
}

// SaveCrawlReport stores the run summary and its findings in one transaction
// and returns the new run ID. Findings with the same (url, rule) are stored once.
func (cdb *CrawlDB) SaveCrawlReport(ctx context.Context, report *model.CrawlReport) (int64, error) {
	riskSummary := make(map[string]int, len(model.AllSeverities()))
	for _, sev := range model.AllSeverities() {
		riskSummary[sev.String()] = 0
	}
	for sev, n := range report.CountBySeverity() {
		riskSummary[sev.String()] = n
	}
	riskJSON, err := json.Marshal(riskSummary)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize risk summary: %w", err)
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after a successful commit
	}()

	s := report.Summary
	res, err := tx.ExecContext(ctx, `
	INSERT INTO runs (seed, depth, started_at, finished_at, pages_crawled, pages_failed,
		duplicates, dropped, findings, peak_concurrency, cancelled, truncated, risk_summary)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.Seed,
		s.Depth,
		formatTimestamp(s.StartedAt),
		formatTimestamp(s.FinishedAt),
		s.PagesCrawled,
		s.PagesFailed,
		s.Duplicates,
		s.Dropped,
		s.Findings,
		s.PeakConcurrency,
		boolToInt(s.Cancelled),
		boolToInt(s.Truncated),
		string(riskJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT OR IGNORE INTO findings (run_id, fingerprint, url, rule, kind, header, component, detail, severity)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare finding insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range report.Findings {
		if _, err := stmt.ExecContext(ctx,
			runID,
			Fingerprint(f),
			f.URL,
			f.Rule,
			string(f.Kind),
			f.Header,
			f.Component,
			f.Detail,
			int(f.Severity),
		); err != nil {
			return 0, fmt.Errorf("failed to save finding: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

const runColumns = `id, seed, depth, started_at, finished_at, pages_crawled, pages_failed,
	duplicates, dropped, findings, peak_concurrency, cancelled, truncated, risk_summary`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var (
		rec               RunRecord
		started, finished string
		cancelled, trunc  int
		riskJSON          sql.NullString
	)
	s := &rec.Summary
	if err := row.Scan(
		&rec.ID,
		&s.Seed,
		&s.Depth,
		&started,
		&finished,
		&s.PagesCrawled,
		&s.PagesFailed,
		&s.Duplicates,
		&s.Dropped,
		&s.Findings,
		&s.PeakConcurrency,
		&cancelled,
		&trunc,
		&riskJSON,
	); err != nil {
		return nil, err
	}
	s.StartedAt = parseTimestamp(started)
	s.FinishedAt = parseTimestamp(finished)
	s.Cancelled = cancelled != 0
	s.Truncated = trunc != 0

	rec.RiskSummary = make(map[string]int)
	if riskJSON.Valid && riskJSON.String != "" {
		if err := json.Unmarshal([]byte(riskJSON.String), &rec.RiskSummary); err != nil {
			rec.RiskSummary = make(map[string]int)
		}
	}
	return &rec, nil
}

// ListRuns returns stored runs, newest first. A limit of 0 or less returns all runs.
func (cdb *CrawlDB) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *rec)
	}
	return runs, rows.Err()
}

// GetRun returns one run by ID, or ErrRunNotFound.
func (cdb *CrawlDB) GetRun(ctx context.Context, runID int64) (*RunRecord, error) {
	row := cdb.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return rec, nil
}

// GetRunFindings returns the findings of a run, most severe first, then by URL and rule.
func (cdb *CrawlDB) GetRunFindings(ctx context.Context, runID int64) ([]model.Finding, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT url, rule, kind, header, component, detail, severity
	FROM findings
	WHERE run_id = ?
	ORDER BY severity DESC, url, rule
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get findings: %w", err)
	}
	defer rows.Close()

	findings := make([]model.Finding, 0)
	for rows.Next() {
		var (
			f                 model.Finding
			kind              string
			component, detail sql.NullString
			severity          int
		)
		if err := rows.Scan(&f.URL, &f.Rule, &kind, &f.Header, &component, &detail, &severity); err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		f.Kind = model.FindingKind(kind)
		f.Component = component.String
		f.Detail = detail.String
		f.Severity = model.Severity(severity)
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

// GetRunReport loads a run and its findings as a CrawlReport.
func (cdb *CrawlDB) GetRunReport(ctx context.Context, runID int64) (*model.CrawlReport, error) {
	run, err := cdb.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	findings, err := cdb.GetRunFindings(ctx, runID)
	if err != nil {
		return nil, err
	}
	return model.NewCrawlReport(run.Summary, findings), nil
}

// PreviousRunID returns the ID of the latest run of the same seed stored
// before runID. It returns 0 when there is none.
func (cdb *CrawlDB) PreviousRunID(ctx context.Context, runID int64) (int64, error) {
	var prev sql.NullInt64
	err := cdb.db.QueryRowContext(ctx, `
	SELECT MAX(p.id) FROM runs p
	JOIN runs r ON r.seed = p.seed
	WHERE r.id = ? AND p.id < r.id
	`, runID).Scan(&prev)
	if err != nil {
		return 0, fmt.Errorf("failed to find previous run: %w", err)
	}
	return prev.Int64, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// timestampLayout is how run times are stored.
const timestampLayout = time.RFC3339Nano

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/vulncrawl/internal/transport"
	"github.com/nao1215/vulncrawl/internal/vuln"
)

// Default configuration values.
const (
	// DefaultDepth is the number of hops followed from the seed.
	DefaultDepth = 2

	// DefaultConcurrency caps simultaneous fetches so a single run does not
	// overwhelm the target site.
	DefaultConcurrency = 10

	// DefaultTimeout bounds one fetch, including reading the body.
	DefaultTimeout = 10 * time.Second

	// DefaultRetries is the number of extra attempts for a transient failure.
	DefaultRetries = 1

	// DefaultMaxPages of 0 means no page limit.
	DefaultMaxPages = 0

	// DefaultMaxBodySize limits the response body size read per page.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// AppName is the application name used for XDG directory paths.
	AppName = "vulncrawl"
)

// Config holds all configuration options for one crawl run.
// It is populated from CLI flags and the optional config file, then passed
// down explicitly; there is no global configuration state.
type Config struct {
	// SeedURL is the absolute http(s) URL the crawl starts from.
	SeedURL string

	// Depth is the number of hops followed from the seed.
	// Depth 0 fetches and scans only the seed.
	Depth int

	// Concurrency is the maximum number of in-flight fetches.
	Concurrency int

	// Timeout bounds each fetch.
	Timeout time.Duration

	// Retries is the number of extra attempts for timeouts and connection resets.
	Retries int

	// MaxPages caps the number of pages fetched. 0 means unlimited.
	MaxPages int

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// SameHost restricts crawling to the seed host.
	SameHost bool

	// FoldCase makes header value rules case-insensitive.
	FoldCase bool

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	ProxyAddress string

	// UserAgent overrides the Go default User-Agent when set.
	UserAgent string

	// IgnorePatterns are URL path globs never followed.
	IgnorePatterns []string

	// FollowPatterns, when set, are the only URL path globs followed.
	FollowPatterns []string

	// Rules are detection rules added to the built-in table.
	Rules []vuln.Rule

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// JSONReport streams one JSON record per event instead of text lines.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport appends a Markdown summary report after the crawl.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path. Empty means stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// ConfigFilePath is the path to the configuration file.
	// If empty, .vulncrawl is searched in the current and home directories.
	ConfigFilePath string

	// SiteConfigs holds the loaded configuration file, if any.
	SiteConfigs *File

	// SaveToDB stores the run and its findings in the results database.
	SaveToDB bool

	// DBDir is the directory of the SQLite results database.
	// Defaults to the XDG data directory (~/.local/share/vulncrawl on Linux).
	DBDir string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Depth:       DefaultDepth,
		Concurrency: DefaultConcurrency,
		Timeout:     DefaultTimeout,
		Retries:     DefaultRetries,
		MaxPages:    DefaultMaxPages,
		MaxBodySize: DefaultMaxBodySize,
		DBDir:       XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for vulncrawl.
// On Linux: ~/.local/share/vulncrawl
// On macOS: ~/Library/Application Support/vulncrawl
// On Windows: %LOCALAPPDATA%\vulncrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for vulncrawl.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first problem found.
// Every returned error wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.SeedURL == "" {
		return ErrNoSeedURL
	}
	if err := ValidateSeedURL(c.SeedURL); err != nil {
		return err
	}

	if c.Depth < 0 {
		return ErrInvalidDepth
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Retries < 0 {
		return ErrInvalidRetries
	}

	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.ProxyAddress != "" && !transport.IsValidProxyAddress(c.ProxyAddress) {
		return fmt.Errorf("%w: %q", ErrInvalidProxyAddress, c.ProxyAddress)
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	for _, r := range c.Rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRule, err)
		}
	}

	return nil
}

// ValidateSeedURL checks that raw is an absolute http or https URL with a host.
func ValidateSeedURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidSeedURL, raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidSeedURL, raw)
	}
	return nil
}

// SeedHost returns the host name of the seed URL, or "" if it does not parse.
func (c *Config) SeedHost() string {
	u, err := url.Parse(c.SeedURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// ApplySiteConfig merges the config file settings for the seed host into c.
// Values marked in explicit (by CLI flag name) are left untouched, so a flag
// always wins over the file.
func (c *Config) ApplySiteConfig(explicit map[string]bool) {
	if c.SiteConfigs == nil {
		return
	}

	site := c.SiteConfigs.GetSiteConfig(c.SeedHost())

	if site.Depth > 0 && !explicit["depth"] {
		c.Depth = site.Depth
	}
	if site.MaxPages > 0 && !explicit["max-pages"] {
		c.MaxPages = site.MaxPages
	}
	if site.SameHost && !explicit["same-host"] {
		c.SameHost = true
	}
	if site.UserAgent != "" {
		c.UserAgent = site.UserAgent
	}
	if len(site.IgnorePatterns) > 0 {
		c.IgnorePatterns = site.IgnorePatterns
	}
	if len(site.FollowPatterns) > 0 {
		c.FollowPatterns = site.FollowPatterns
	}
	if c.SiteConfigs.FoldCase && !explicit["fold-case"] {
		c.FoldCase = true
	}
	c.Rules = append(c.Rules, c.SiteConfigs.Rules...)
}

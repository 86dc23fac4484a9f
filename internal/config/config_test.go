package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/vulncrawl/internal/model"
	"github.com/nao1215/vulncrawl/internal/vuln"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default Depth is 2", func(t *testing.T) {
		t.Parallel()
		if cfg.Depth != 2 {
			t.Errorf("expected Depth to be 2, got %d", cfg.Depth)
		}
	})

	t.Run("default Concurrency is 10", func(t *testing.T) {
		t.Parallel()
		if cfg.Concurrency != 10 {
			t.Errorf("expected Concurrency to be 10, got %d", cfg.Concurrency)
		}
	})

	t.Run("default Timeout is 10 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 10*time.Second {
			t.Errorf("expected Timeout to be 10s, got %v", cfg.Timeout)
		}
	})

	t.Run("default Retries is 1", func(t *testing.T) {
		t.Parallel()
		if cfg.Retries != 1 {
			t.Errorf("expected Retries to be 1, got %d", cfg.Retries)
		}
	})

	t.Run("default MaxPages is unlimited", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxPages != 0 {
			t.Errorf("expected MaxPages to be 0, got %d", cfg.MaxPages)
		}
	})

	t.Run("saving is off by default", func(t *testing.T) {
		t.Parallel()
		if cfg.SaveToDB {
			t.Error("expected SaveToDB to be false")
		}
		if cfg.DBDir == "" {
			t.Error("expected DBDir to default to the XDG data dir")
		}
	})
}

// TestConfigValidate tests the Validate method with various configurations.
// Each test case is designed to test one specific validation rule.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	validConfig := func() *Config {
		cfg := NewConfig()
		cfg.SeedURL = "https://example.com"
		return cfg
	}

	t.Run("valid config returns nil", func(t *testing.T) {
		t.Parallel()
		if err := validConfig().Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("depth zero is valid", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Depth = 0
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	testCases := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{"missing seed", func(c *Config) { c.SeedURL = "" }, ErrNoSeedURL},
		{"seed without scheme", func(c *Config) { c.SeedURL = "example.com" }, ErrInvalidSeedURL},
		{"seed with ftp scheme", func(c *Config) { c.SeedURL = "ftp://example.com" }, ErrInvalidSeedURL},
		{"seed without host", func(c *Config) { c.SeedURL = "https://" }, ErrInvalidSeedURL},
		{"unparseable seed", func(c *Config) { c.SeedURL = "http://[::1" }, ErrInvalidSeedURL},
		{"negative depth", func(c *Config) { c.Depth = -1 }, ErrInvalidDepth},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, ErrInvalidConcurrency},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"negative retries", func(c *Config) { c.Retries = -1 }, ErrInvalidRetries},
		{"negative max pages", func(c *Config) { c.MaxPages = -5 }, ErrInvalidMaxPages},
		{"negative body size", func(c *Config) { c.MaxBodySize = -1 }, ErrInvalidMaxBodySize},
		{"bad proxy", func(c *Config) { c.ProxyAddress = "localhost" }, ErrInvalidProxyAddress},
		{"json and markdown", func(c *Config) { c.JSONReport, c.MarkdownReport = true, true }, ErrConflictingReportFormats},
		{"bad rule", func(c *Config) { c.Rules = []vuln.Rule{{ID: "x"}} }, ErrInvalidRule},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tc.modify(cfg)

			err := cfg.Validate()
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected error to wrap ErrInvalidConfig, got %v", err)
			}
		})
	}
}

// TestGetSiteConfig tests merging of defaults and per-site overrides.
func TestGetSiteConfig(t *testing.T) {
	t.Parallel()

	cf := &File{
		Defaults: SiteConfig{
			Depth:          3,
			IgnorePatterns: []string{"*.pdf"},
		},
		Sites: map[string]SiteConfig{
			"example.com": {
				Depth:          1,
				SameHost:       true,
				FollowPatterns: []string{"/docs/*"},
			},
		},
	}

	t.Run("site overrides defaults", func(t *testing.T) {
		t.Parallel()

		sc := cf.GetSiteConfig("example.com")
		if sc.Depth != 1 {
			t.Errorf("expected depth 1, got %d", sc.Depth)
		}
		if !sc.SameHost {
			t.Error("expected SameHost true")
		}
		if len(sc.IgnorePatterns) != 1 || sc.IgnorePatterns[0] != "*.pdf" {
			t.Errorf("expected default ignore patterns, got %v", sc.IgnorePatterns)
		}
		if len(sc.FollowPatterns) != 1 {
			t.Errorf("expected site follow patterns, got %v", sc.FollowPatterns)
		}
	})

	t.Run("host lookup is case-insensitive", func(t *testing.T) {
		t.Parallel()

		if sc := cf.GetSiteConfig("EXAMPLE.com"); sc.Depth != 1 {
			t.Errorf("expected depth 1, got %d", sc.Depth)
		}
	})

	t.Run("unknown host gets defaults", func(t *testing.T) {
		t.Parallel()

		if sc := cf.GetSiteConfig("other.test"); sc.Depth != 3 || sc.SameHost {
			t.Errorf("expected defaults, got %+v", sc)
		}
	})
}

// TestApplySiteConfig tests that explicit flags win over the file.
func TestApplySiteConfig(t *testing.T) {
	t.Parallel()

	newCfg := func() *Config {
		cfg := NewConfig()
		cfg.SeedURL = "https://example.com/start"
		cfg.SiteConfigs = &File{
			Sites: map[string]SiteConfig{
				"example.com": {Depth: 5, MaxPages: 50, IgnorePatterns: []string{"/admin/*"}},
			},
			Rules: []vuln.Rule{{
				ID: "OldNginx", Kind: model.KindOutdatedServer, Header: "Server",
				Condition: vuln.Contains, Needle: "nginx/1.1", Severity: model.SeverityMedium,
			}},
			FoldCase: true,
		}
		return cfg
	}

	t.Run("file values apply when no flag is set", func(t *testing.T) {
		t.Parallel()

		cfg := newCfg()
		cfg.ApplySiteConfig(nil)

		if cfg.Depth != 5 || cfg.MaxPages != 50 {
			t.Errorf("expected depth 5 and max pages 50, got %d and %d", cfg.Depth, cfg.MaxPages)
		}
		if len(cfg.IgnorePatterns) != 1 {
			t.Errorf("expected ignore patterns from file, got %v", cfg.IgnorePatterns)
		}
		if len(cfg.Rules) != 1 || !cfg.FoldCase {
			t.Errorf("expected rules and fold case from file, got %d rules, fold %v", len(cfg.Rules), cfg.FoldCase)
		}
	})

	t.Run("explicit flags win", func(t *testing.T) {
		t.Parallel()

		cfg := newCfg()
		cfg.Depth = 1
		cfg.ApplySiteConfig(map[string]bool{"depth": true})

		if cfg.Depth != 1 {
			t.Errorf("expected flag depth 1 to be kept, got %d", cfg.Depth)
		}
		if cfg.MaxPages != 50 {
			t.Errorf("expected max pages from file, got %d", cfg.MaxPages)
		}
	})

	t.Run("nil file is a no-op", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.SeedURL = "https://example.com"
		cfg.ApplySiteConfig(nil)
		if cfg.Depth != DefaultDepth {
			t.Errorf("expected default depth, got %d", cfg.Depth)
		}
	})
}

// TestLoadConfigFile tests the LoadConfigFile function.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	writeConfig := func(t *testing.T, content string) string {
		t.Helper()
		configPath := filepath.Join(t.TempDir(), ".vulncrawl")
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		return configPath
	}

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.vulncrawl")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		configPath := writeConfig(t, `foldCase: true
defaults:
  depth: 3
  ignorePatterns:
    - "*.pdf"
sites:
  example.com:
    depth: 1
    maxPages: 20
    sameHost: true
    followPatterns:
      - "/docs/*"
rules:
  - id: OldNginx
    kind: OutdatedServer
    header: Server
    condition: contains
    needle: nginx/1.1
    component: nginx server
    severity: medium
`)

		cf, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cf.Defaults.Depth != 3 {
			t.Errorf("expected default depth 3, got %d", cf.Defaults.Depth)
		}
		site, ok := cf.Sites["example.com"]
		if !ok {
			t.Fatal("expected example.com in sites")
		}
		if site.MaxPages != 20 || !site.SameHost {
			t.Errorf("unexpected site config %+v", site)
		}
		if !cf.FoldCase {
			t.Error("expected foldCase true")
		}
		if len(cf.Rules) != 1 {
			t.Fatalf("expected 1 rule, got %d", len(cf.Rules))
		}
		rule := cf.Rules[0]
		if rule.Condition != vuln.Contains || rule.Severity != model.SeverityMedium || rule.Kind != model.KindOutdatedServer {
			t.Errorf("unexpected rule %+v", rule)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(writeConfig(t, `invalid: yaml: content: [}`))
		if !errors.Is(err, ErrMalformedConfigFile) {
			t.Errorf("expected ErrMalformedConfigFile, got %v", err)
		}
	})

	t.Run("returns error for unknown severity", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(writeConfig(t, `rules:
  - id: X
    kind: MissingHeader
    header: X-Frame-Options
    condition: absent
    severity: apocalyptic
`))
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected configuration error, got %v", err)
		}
	})

	t.Run("returns error for invalid rule", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(writeConfig(t, `rules:
  - id: X
    kind: MissingHeader
    header: X-Frame-Options
    condition: sometimes
`))
		if !errors.Is(err, ErrInvalidRule) {
			t.Errorf("expected ErrInvalidRule, got %v", err)
		}
	})

	t.Run("initializes nil Sites map", func(t *testing.T) {
		t.Parallel()

		cf, err := LoadConfigFile(writeConfig(t, "defaults:\n  depth: 1\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cf.Sites == nil {
			t.Error("expected Sites map to be initialized")
		}
	})
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if result := FindConfigFile(configPath); result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if result := FindConfigFile("/nonexistent/path/config.yaml"); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})

	t.Run("returns empty for a directory", func(t *testing.T) {
		t.Parallel()

		if result := FindConfigFile(t.TempDir()); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})
}

func TestSearchPaths(t *testing.T) {
	t.Parallel()

	paths := SearchPaths()
	if len(paths) == 0 {
		t.Fatal("expected at least the XDG config path")
	}
	if filepath.Base(paths[0]) != DefaultConfigFile {
		t.Errorf("first search path = %q, want a %s file", paths[0], DefaultConfigFile)
	}
	last := paths[len(paths)-1]
	if want := filepath.Join(XDGConfigDir(), XDGConfigFileName); last != want {
		t.Errorf("last search path = %q, want %q", last, want)
	}
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if filepath.Base(XDGDataDir()) != AppName {
		t.Errorf("expected data dir to end with %q, got %q", AppName, XDGDataDir())
	}
	if filepath.Base(XDGConfigDir()) != AppName {
		t.Errorf("expected config dir to end with %q, got %q", AppName, XDGConfigDir())
	}
}

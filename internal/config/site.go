package config

import (
	"strings"

	"github.com/nao1215/vulncrawl/internal/vuln"
)

// SiteConfig holds crawl settings for one host.
type SiteConfig struct {
	// Depth overrides the global depth for this host.
	// If zero, the global Depth is used.
	Depth int `yaml:"depth,omitempty"`

	// MaxPages overrides the global page limit for this host.
	// If zero, the global MaxPages is used.
	MaxPages int `yaml:"maxPages,omitempty"`

	// SameHost restricts crawling to this host.
	SameHost bool `yaml:"sameHost,omitempty"`

	// UserAgent overrides the User-Agent header for this host.
	UserAgent string `yaml:"userAgent,omitempty"`

	// IgnorePatterns are URL patterns to skip during crawling.
	// Patterns are matched against the URL path using glob syntax.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns are URL patterns to follow during crawling.
	// If specified, only URLs matching these patterns are crawled.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// File represents the structure of the .vulncrawl configuration file.
type File struct {
	// Sites maps host names (e.g. "example.com") to their configuration.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every site unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Rules are detection rules appended to the built-in table.
	Rules []vuln.Rule `yaml:"rules,omitempty"`

	// FoldCase makes header value rules case-insensitive.
	FoldCase bool `yaml:"foldCase,omitempty"`
}

// GetSiteConfig returns the configuration for host merged over the defaults.
// Host lookup is case-insensitive.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults

	siteConfig, ok := cf.Sites[host]
	if !ok {
		for name, sc := range cf.Sites {
			if strings.EqualFold(name, host) {
				siteConfig, ok = sc, true
				break
			}
		}
	}
	if !ok {
		return result
	}

	if siteConfig.Depth != 0 {
		result.Depth = siteConfig.Depth
	}
	if siteConfig.MaxPages != 0 {
		result.MaxPages = siteConfig.MaxPages
	}
	if siteConfig.SameHost {
		result.SameHost = true
	}
	if siteConfig.UserAgent != "" {
		result.UserAgent = siteConfig.UserAgent
	}
	if len(siteConfig.IgnorePatterns) > 0 {
		result.IgnorePatterns = siteConfig.IgnorePatterns
	}
	if len(siteConfig.FollowPatterns) > 0 {
		result.FollowPatterns = siteConfig.FollowPatterns
	}

	return result
}

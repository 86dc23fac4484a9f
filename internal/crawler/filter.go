package crawler

import (
	"net/url"
	"path"
	"strings"
)

// linkFilter decides which resolved links become crawl tasks.
type linkFilter struct {
	// seedHost is set when only links on the seed host are followed.
	seedHost string

	// ignorePatterns are glob patterns on the URL path that are never followed.
	ignorePatterns []string

	// followPatterns, when non-empty, restrict crawling to matching paths.
	followPatterns []string
}

// allow reports whether link passes the host restriction and the path patterns.
// Ignore patterns win over follow patterns.
func (lf *linkFilter) allow(link string) bool {
	if !IsFollowable(link) {
		return false
	}
	if lf.seedHost == "" && len(lf.ignorePatterns) == 0 && len(lf.followPatterns) == 0 {
		return true
	}

	u, err := url.Parse(link)
	if err != nil {
		// Let the fetcher report it.
		return lf.seedHost == ""
	}

	if lf.seedHost != "" && !strings.EqualFold(u.Hostname(), lf.seedHost) {
		return false
	}

	p := u.Path
	if p == "" {
		p = "/"
	}

	for _, pattern := range lf.ignorePatterns {
		if matchPattern(pattern, p) {
			return false
		}
	}

	if len(lf.followPatterns) == 0 {
		return true
	}
	for _, pattern := range lf.followPatterns {
		if matchPattern(pattern, p) {
			return true
		}
	}
	return false
}

// matchPattern checks if a URL path matches a glob pattern.
//
//   - "/admin/*" matches "/admin" and everything below it
//   - "*.pdf" matches any path ending in ".pdf"
//   - "/api/v?" matches "/api/v1", "/api/v2"
func matchPattern(pattern, p string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}

	if ext, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(ext, ".") {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}

	if matched, err := path.Match(pattern, p); err == nil && matched {
		return true
	}

	// Bare filename patterns like "logout*" match the last segment.
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		if matched, err := path.Match(pattern, path.Base(p)); err == nil && matched {
			return true
		}
	}

	return false
}

package crawler

import (
	"net/url"
	"strings"
)

// unfollowablePrefixes are schemes that never lead to a crawlable page.
var unfollowablePrefixes = []string{
	"mailto:",
	"javascript:",
	"tel:",
	"data:",
}

// Resolve joins href against base following RFC 3986.
// An absolute href is returned as is. If either side does not parse,
// href is returned unchanged and will surface later as a request error.
func Resolve(base, href string) string {
	href = strings.TrimSpace(href)

	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.IsAbs() {
		return href
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}

	return baseURL.ResolveReference(ref).String()
}

// IsFollowable reports whether link should be dispatched as a crawl task.
// Empty links and mailto:, javascript:, tel: and data: links are rejected,
// case-insensitively.
func IsFollowable(link string) bool {
	link = strings.TrimSpace(link)
	if link == "" {
		return false
	}
	lower := strings.ToLower(link)
	for _, prefix := range unfollowablePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return false
		}
	}
	return true
}

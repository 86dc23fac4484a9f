package log

import (
	"net/url"
	"regexp"
	"strings"
)

// urlPattern finds absolute URLs embedded in free text.
var urlPattern = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9+.-]*://[^\s"'<>]+`)

// RedactURLs masks credentials in every absolute URL found in s:
// the password of the userinfo and the values of query parameters whose
// names look sensitive. Text that contains no URL is returned unchanged.
func RedactURLs(s string) string {
	if !strings.Contains(s, "://") {
		return s
	}
	return urlPattern.ReplaceAllStringFunc(s, redactURL)
}

// redactURL masks credentials in a single URL. It works on the raw text
// rather than a parsed url.URL so the mask is not percent-encoded and the
// rest of the URL is left byte for byte.
func redactURL(raw string) string {
	schemeEnd := strings.Index(raw, "://") + len("://")
	prefix, rest := raw[:schemeEnd], raw[schemeEnd:]

	authorityEnd := strings.IndexAny(rest, "/?#")
	if authorityEnd < 0 {
		authorityEnd = len(rest)
	}
	authority, tail := rest[:authorityEnd], rest[authorityEnd:]

	if at := strings.LastIndex(authority, "@"); at >= 0 {
		userinfo := authority[:at]
		if user, _, hasPassword := strings.Cut(userinfo, ":"); hasPassword {
			authority = user + ":" + MaskValue + authority[at:]
		}
	}

	fragment := ""
	if hash := strings.Index(tail, "#"); hash >= 0 {
		tail, fragment = tail[:hash], tail[hash:]
	}
	if pathPart, query, hasQuery := strings.Cut(tail, "?"); hasQuery {
		tail = pathPart + "?" + redactQuery(query)
	}

	return prefix + authority + tail + fragment
}

// redactQuery masks the values of sensitive parameters in a raw query string.
func redactQuery(rawQuery string) string {
	parts := strings.Split(rawQuery, "&")
	for i, part := range parts {
		key, _, hasValue := strings.Cut(part, "=")
		if !hasValue {
			continue
		}
		if isSensitiveParam(key) {
			parts[i] = key + "=" + MaskValue
		}
	}
	return strings.Join(parts, "&")
}

// isSensitiveParam reports whether a query parameter name looks like it
// carries a credential.
func isSensitiveParam(key string) bool {
	name, err := url.QueryUnescape(key)
	if err != nil {
		name = key
	}
	name = strings.ToLower(name)
	switch {
	case isSensitiveKey(name):
		return true
	case strings.HasSuffix(name, "key"), name == "sig", name == "signature":
		return true
	}
	return false
}

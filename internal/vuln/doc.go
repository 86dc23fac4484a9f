// Package vuln flags response headers that show known web-security weaknesses.
//
// Detection is driven by a rule table. Each Rule inspects one header and
// either fires when the header is absent or when its value contains a
// needle. The built-in table covers missing hardening headers and outdated
// Apache and PHP signatures; more rules can be loaded from the config file.
//
// The Scanner holds no per-page state and is safe for concurrent use.
package vuln

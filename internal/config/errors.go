package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is the parent of every configuration error.
// The CLI maps errors wrapping it to exit code 2.
var ErrInvalidConfig = errors.New("configuration error")

// Configuration validation errors.
// Each wraps ErrInvalidConfig, so errors.Is works against both.
var (
	// ErrNoSeedURL is returned when --url is missing.
	ErrNoSeedURL = fmt.Errorf("%w: no seed URL specified: use --url", ErrInvalidConfig)

	// ErrInvalidSeedURL is returned when the seed is not an absolute http(s) URL.
	ErrInvalidSeedURL = fmt.Errorf("%w: invalid seed URL: must be an absolute http or https URL", ErrInvalidConfig)

	// ErrInvalidDepth is returned when the depth is negative.
	ErrInvalidDepth = fmt.Errorf("%w: invalid depth: must be non-negative", ErrInvalidConfig)

	// ErrInvalidConcurrency is returned when the concurrency is not positive.
	ErrInvalidConcurrency = fmt.Errorf("%w: invalid concurrency: must be positive", ErrInvalidConfig)

	// ErrInvalidTimeout is returned when the timeout is not positive.
	// An unbounded fetch would hold a limiter permit forever.
	ErrInvalidTimeout = fmt.Errorf("%w: invalid timeout: must be positive", ErrInvalidConfig)

	// ErrInvalidRetries is returned when the retry count is negative.
	ErrInvalidRetries = fmt.Errorf("%w: invalid retries: must be non-negative", ErrInvalidConfig)

	// ErrInvalidMaxPages is returned when the page limit is negative.
	ErrInvalidMaxPages = fmt.Errorf("%w: invalid max pages: must be non-negative (0 means unlimited)", ErrInvalidConfig)

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = fmt.Errorf("%w: invalid max body size: must be non-negative", ErrInvalidConfig)

	// ErrInvalidProxyAddress is returned when --proxy is not "host:port".
	ErrInvalidProxyAddress = fmt.Errorf("%w: invalid proxy address: expected host:port", ErrInvalidConfig)

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = fmt.Errorf("%w: conflicting report formats: --json and --markdown cannot be used together", ErrInvalidConfig)

	// ErrInvalidRule is returned when a rule from the config file cannot be evaluated.
	ErrInvalidRule = fmt.Errorf("%w: invalid rule", ErrInvalidConfig)

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = fmt.Errorf("%w: configuration file not found", ErrInvalidConfig)

	// ErrMalformedConfigFile is returned when the configuration file is not valid YAML.
	ErrMalformedConfigFile = fmt.Errorf("%w: malformed configuration file", ErrInvalidConfig)
)

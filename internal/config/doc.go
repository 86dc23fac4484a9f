// Package config provides the configuration of a vulncrawl run: built-in
// defaults, validation, and the optional YAML file with per-site overrides
// and extra detection rules.
package config

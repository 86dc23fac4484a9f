package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".vulncrawl"

// LoadConfigFile loads a configuration file from path.
// If the file does not exist, it returns ErrConfigNotFound.
// Rules in the file are validated; a bad rule is reported as ErrInvalidRule.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedConfigFile, path, err)
	}

	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}

	for _, r := range cf.Rules {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRule, path, err)
		}
	}

	return &cf, nil
}

// XDGConfigFileName is the file name looked up under XDGConfigDir.
const XDGConfigFileName = "config.yaml"

// FindConfigFile returns the configuration file to load, or "" if there is none.
// An explicit configPath is used as is when it exists. Otherwise the first
// existing file among SearchPaths is returned.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if fileExists(configPath) {
			return configPath
		}
		return ""
	}

	for _, candidate := range SearchPaths() {
		if fileExists(candidate) {
			return candidate
		}
	}
	return ""
}

// SearchPaths lists the implicit configuration file locations in lookup order:
// .vulncrawl in the current directory, .vulncrawl in the home directory,
// then config.yaml in the XDG config directory.
func SearchPaths() []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, DefaultConfigFile))
	}
	return append(paths, filepath.Join(XDGConfigDir(), XDGConfigFileName))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Package config loads dupcheck settings from defaults, an optional TOML
// file and DUPCHECK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/phobologic/dupcheck/internal/discover"
	"github.com/phobologic/dupcheck/internal/extract"
	"github.com/phobologic/dupcheck/internal/manifest"
	"github.com/phobologic/dupcheck/internal/report"
)

const (
	// FileName is looked up in the analyzed root when no file is given.
	FileName = ".dupcheck.toml"
	// EnvPrefix prefixes environment overrides, e.g. DUPCHECK_STRICT=true.
	EnvPrefix = "DUPCHECK"

	defaultMaxFileSize = 1_000_000 // 1 MB
)

// ErrInvalid marks a configuration that must abort the run before scanning.
var ErrInvalid = errors.New("invalid configuration")

// Config holds every tunable of a run.
type Config struct {
	IgnoredInherits  []string `mapstructure:"ignored_inherits" toml:"ignored_inherits"`
	ExcludeDirs      []string `mapstructure:"exclude_dirs" toml:"exclude_dirs"`
	ManifestNames    []string `mapstructure:"manifest_names" toml:"manifest_names"`
	ManifestKeys     []string `mapstructure:"manifest_keys" toml:"manifest_keys"`
	RecordTags       []string `mapstructure:"record_tags" toml:"record_tags"`
	MaxFileSize      int64    `mapstructure:"max_file_size" toml:"max_file_size"`
	RespectGitignore bool     `mapstructure:"respect_gitignore" toml:"respect_gitignore"`
	Strict           bool     `mapstructure:"strict" toml:"strict"`
	Format           string   `mapstructure:"format" toml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		IgnoredInherits:  []string{"mail.thread", "mail.activity.mixin"},
		ExcludeDirs:      []string{},
		ManifestNames:    append([]string(nil), manifest.DefaultNames...),
		ManifestKeys:     append([]string(nil), manifest.DefaultKeys...),
		RecordTags:       append([]string(nil), extract.DefaultRecordTags...),
		MaxFileSize:      defaultMaxFileSize,
		RespectGitignore: true,
		Strict:           false,
		Format:           string(report.Text),
	}
}

// LoadOptions locates the configuration file.
type LoadOptions struct {
	// Root is searched for FileName when File is empty.
	Root string
	// File is an explicit configuration path; it must exist.
	File string
}

// Load merges defaults, the configuration file and the environment, and
// validates the result. It returns the path of the file used, if any.
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("ignored_inherits", defaults.IgnoredInherits)
	v.SetDefault("exclude_dirs", defaults.ExcludeDirs)
	v.SetDefault("manifest_names", defaults.ManifestNames)
	v.SetDefault("manifest_keys", defaults.ManifestKeys)
	v.SetDefault("record_tags", defaults.RecordTags)
	v.SetDefault("max_file_size", defaults.MaxFileSize)
	v.SetDefault("respect_gitignore", defaults.RespectGitignore)
	v.SetDefault("strict", defaults.Strict)
	v.SetDefault("format", defaults.Format)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	resolvedPath := ""
	switch {
	case opts.File != "":
		if !fileExists(opts.File) {
			return nil, "", fmt.Errorf("%w: config file not found: %s", ErrInvalid, opts.File)
		}
		resolvedPath = opts.File
	case opts.Root != "":
		if candidate := filepath.Join(opts.Root, FileName); fileExists(candidate) {
			resolvedPath = candidate
		}
	}

	if resolvedPath != "" {
		v.SetConfigFile(resolvedPath)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("%w: reading %s: %v", ErrInvalid, resolvedPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, resolvedPath, nil
}

// Validate rejects settings the analyses cannot run with.
func (c *Config) Validate() error {
	if _, err := report.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if len(c.ManifestNames) == 0 {
		return fmt.Errorf("%w: manifest_names must not be empty", ErrInvalid)
	}
	if len(c.RecordTags) == 0 {
		return fmt.Errorf("%w: record_tags must not be empty", ErrInvalid)
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("%w: max_file_size must be positive, got %d", ErrInvalid, c.MaxFileSize)
	}
	lists := []struct {
		key    string
		values []string
	}{
		{"ignored_inherits", c.IgnoredInherits},
		{"exclude_dirs", c.ExcludeDirs},
		{"manifest_names", c.ManifestNames},
		{"manifest_keys", c.ManifestKeys},
		{"record_tags", c.RecordTags},
	}
	for _, l := range lists {
		for _, s := range l.values {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%w: %s contains a blank entry", ErrInvalid, l.key)
			}
		}
	}
	return nil
}

// Walk returns the walker options for this configuration.
func (c *Config) Walk(match func(string) bool) discover.Options {
	return discover.Options{
		Match:            match,
		ExcludeDirs:      c.ExcludeDirs,
		RespectGitignore: c.RespectGitignore,
	}
}

// Manifest returns the manifest loader options.
func (c *Config) Manifest() manifest.Options {
	return manifest.Options{Names: c.ManifestNames, Keys: c.ManifestKeys}
}

// TOML renders the configuration as a TOML document.
func (c *Config) TOML() (string, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

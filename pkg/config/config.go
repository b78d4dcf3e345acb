// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	apperrors "github.com/raymyers/ralph-bindgen/pkg/errors"
	"github.com/raymyers/ralph-bindgen/pkg/explore"
	"github.com/raymyers/ralph-bindgen/pkg/logger"
	"github.com/raymyers/ralph-bindgen/pkg/platform"
)

// Config describes one extraction run.
type Config struct {
	InputFilePath   string `yaml:"input_file_path" ignored:"true"`
	OutputDirectory string `yaml:"output_directory" ignored:"true"`

	// Platforms maps a target triple to the parse settings used for it.
	Platforms map[string]PlatformConfig `yaml:"platforms" ignored:"true"`

	// Explorer options
	Explore explore.Options `yaml:",inline" ignored:"true"`

	// Parse options shared by every platform
	IsEnabledFindSystemHeaders bool                 `yaml:"is_enabled_find_system_headers" ignored:"true"`
	IsEnabledSingleHeader      bool                 `yaml:"is_enabled_single_header" ignored:"true"`
	LinkedPaths                []explore.LinkedPath `yaml:"linked_paths" ignored:"true"`

	// Logging configuration
	Log LogConfig `yaml:"log"`

	// Concurrency bounds how many platforms are explored at once.
	Concurrency int `envconfig:"RALPH_BINDGEN_CONCURRENCY" yaml:"concurrency"`
}

// PlatformConfig holds the parse settings of one target.
type PlatformConfig struct {
	UserIncludeDirectories   []string `yaml:"user_include_directories"`
	SystemIncludeDirectories []string `yaml:"system_include_directories"`
	Defines                  []string `yaml:"defines"`
	AdditionalArguments      []string `yaml:"additional_arguments"`
	Frameworks               []string `yaml:"frameworks"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"RALPH_BINDGEN_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"RALPH_BINDGEN_LOG_FORMAT" yaml:"format"`
}

// DefaultConfig targets the host platform with the default explorer
// options.
func DefaultConfig() *Config {
	return &Config{
		Platforms:   map[string]PlatformConfig{platform.Host().Triple: {}},
		Explore:     explore.DefaultOptions(),
		Log:         LogConfig{Level: "info", Format: "text"},
		Concurrency: runtime.NumCPU(),
	}
}

// Load builds a configuration from the defaults, the optional file at path
// and the environment, in that order, then validates it.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, apperrors.ConfigError("processing environment", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.IOError("reading config "+path, err)
	}

	// Platforms named in the file replace the host default.
	defaults := cfg.Platforms
	cfg.Platforms = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return apperrors.ConfigError("parsing config "+path, err)
	}
	if len(cfg.Platforms) == 0 {
		cfg.Platforms = defaults
	}

	base, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return apperrors.IOError("resolving "+path, err)
	}
	cfg.resolvePaths(base)
	return nil
}

// resolvePaths makes relative paths absolute against base.
func (c *Config) resolvePaths(base string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.InputFilePath = resolve(c.InputFilePath)
	c.OutputDirectory = resolve(c.OutputDirectory)
	for triple, pc := range c.Platforms {
		for i, dir := range pc.UserIncludeDirectories {
			pc.UserIncludeDirectories[i] = resolve(dir)
		}
		for i, dir := range pc.SystemIncludeDirectories {
			pc.SystemIncludeDirectories[i] = resolve(dir)
		}
		c.Platforms[triple] = pc
	}
	for i, lp := range c.LinkedPaths {
		c.LinkedPaths[i] = explore.LinkedPath{From: resolve(lp.From), To: resolve(lp.To)}
	}
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if len(c.Platforms) == 0 {
		errs = append(errs, "at least one platform is required")
	}
	for _, triple := range c.triples() {
		if _, err := platform.Parse(triple); err != nil {
			errs = append(errs, fmt.Sprintf("invalid platform: %s", triple))
		}
	}

	for _, lp := range c.LinkedPaths {
		if lp.From == "" {
			errs = append(errs, fmt.Sprintf("linked path to %s has no source", lp.To))
		}
	}

	if !logger.ValidLevel(c.Log.Level) {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	if c.Concurrency < 1 {
		errs = append(errs, "concurrency must be positive")
	}

	if len(errs) > 0 {
		return apperrors.New(apperrors.CodeConfig,
			fmt.Sprintf("config validation failed:\n  - %s", strings.Join(errs, "\n  - ")))
	}
	return nil
}

func (c *Config) triples() []string {
	triples := make([]string, 0, len(c.Platforms))
	for triple := range c.Platforms {
		triples = append(triples, triple)
	}
	slices.Sort(triples)
	return triples
}

// Targets returns the configured platforms sorted by triple.
func (c *Config) Targets() ([]platform.TargetPlatform, error) {
	var targets []platform.TargetPlatform
	for _, triple := range c.triples() {
		p, err := platform.Parse(triple)
		if err != nil {
			return nil, err
		}
		targets = append(targets, p)
	}
	return targets, nil
}

// ParseOptions assembles the front-end settings for one platform.
func (c *Config) ParseOptions(triple string) explore.ParseOptions {
	pc := c.Platforms[triple]
	return explore.ParseOptions{
		UserIncludeDirectories:     slices.Clone(pc.UserIncludeDirectories),
		SystemIncludeDirectories:   slices.Clone(pc.SystemIncludeDirectories),
		MacroObjectsDefines:        slices.Clone(pc.Defines),
		AdditionalArguments:        slices.Clone(pc.AdditionalArguments),
		Frameworks:                 slices.Clone(pc.Frameworks),
		LinkedPaths:                slices.Clone(c.LinkedPaths),
		IsEnabledFindSystemHeaders: c.IsEnabledFindSystemHeaders,
		IsEnabledSingleHeader:      c.IsEnabledSingleHeader,
	}
}

// Logger builds the logger the configuration asks for, writing to w.
func (c *Config) Logger(w io.Writer) *logger.Logger {
	return logger.New(c.Log.Level, c.Log.Format, w)
}

// Package config loads cmkit settings.
//
// Layers, later ones winning:
//
//  1. embedded defaults.toml
//  2. the user config file (see env.ConfigFile)
//  3. .cmkit.toml in the source directory
//  4. an explicit file given on the command line
//  5. CMKIT_* environment variables (CMKIT_ENV_SCRIPT sets env_script,
//     CMKIT_CMAKE_MIN_VERSION sets cmake.min_version)
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/goplus/cmkit/internal/env"
	"github.com/knadh/koanf/parsers/toml"
	envprovider "github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ProjectFile is the per-project config file name.
const ProjectFile = ".cmkit.toml"

const envPrefix = "CMKIT_"

//go:embed defaults.toml
var defaultConfig []byte

type Config struct {
	BuildDir        string `koanf:"build_dir"`
	ContextFile     string `koanf:"context_file"`
	EnvScript       string `koanf:"env_script"`
	EnvErrorPattern string `koanf:"env_error_pattern"`
	EnvRemoveUnset  bool   `koanf:"env_remove_unset"`
	Jobs            int    `koanf:"jobs"`

	CMake    CMakeConfig    `koanf:"cmake"`
	Coverage CoverageConfig `koanf:"coverage"`
}

type CMakeConfig struct {
	MinVersion string `koanf:"min_version"`
}

type CoverageConfig struct {
	Tool   string `koanf:"tool"`
	Output string `koanf:"output"`
}

// rawBytesProvider feeds embedded bytes to koanf.
type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("not implemented")
}

// Load reads the configuration for the project in sourceDir. extra names an
// additional config file and may be empty; unlike the implicit files it
// must exist.
func Load(sourceDir, extra string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	for _, path := range []string{env.ConfigFile(), filepath.Join(sourceDir, ProjectFile)} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	if extra != "" {
		if err := k.Load(file.Provider(extra), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", extra, err)
		}
	}

	if err := k.Load(envprovider.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return &cfg, nil
}

// envKey maps CMKIT_FOO_BAR to foo_bar, and CMKIT_CMAKE_X or
// CMKIT_COVERAGE_X to the nested table key.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	for _, table := range []string{"cmake_", "coverage_"} {
		if strings.HasPrefix(key, table) {
			return strings.TrimSuffix(table, "_") + "." + strings.TrimPrefix(key, table)
		}
	}
	return key
}

// BinaryDir expands BuildDir for a preset. Relative results are taken
// relative to sourceDir.
func (c *Config) BinaryDir(sourceDir, preset string) string {
	dir := strings.NewReplacer(
		"${sourceDir}", sourceDir,
		"${presetName}", preset,
	).Replace(c.BuildDir)
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(sourceDir, dir)
	}
	return filepath.Clean(dir)
}

// ContextPath returns the absolute location of the project context file.
func (c *Config) ContextPath(sourceDir string) string {
	if filepath.IsAbs(c.ContextFile) {
		return c.ContextFile
	}
	return filepath.Join(sourceDir, c.ContextFile)
}

// ErrorPattern compiles EnvErrorPattern. It returns nil when unset.
func (c *Config) ErrorPattern() (*regexp.Regexp, error) {
	if c.EnvErrorPattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(c.EnvErrorPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid env_error_pattern: %w", err)
	}
	return re, nil
}

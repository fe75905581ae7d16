// Package projctx persists the selections a user makes between cmkit runs.
package projctx

import (
	"encoding/json"
	"errors"
	"io/fs"
	"path/filepath"
	"slices"
	"sort"
	"time"

	"github.com/spf13/afero"
)

// Preset kinds, matching the preset categories of cmake --list-presets.
const (
	KindConfigure = "configure"
	KindBuild     = "build"
	KindTest      = "test"
	KindPackage   = "package"
)

// Kinds lists the preset kinds in display order.
var Kinds = []string{KindConfigure, KindBuild, KindTest, KindPackage}

// Context is the project context file.
type Context struct {
	ConfigurePreset string          `json:"configure_preset,omitempty"`
	BuildPreset     string          `json:"build_preset,omitempty"`
	TestPreset      string          `json:"test_preset,omitempty"`
	PackagePreset   string          `json:"package_preset,omitempty"`
	Targets         []string        `json:"targets,omitempty"`
	LaunchTarget    string          `json:"launch_target,omitempty"`
	LaunchArgs      []string        `json:"launch_args,omitempty"`
	TestArgs        []string        `json:"test_args,omitempty"`
	Options         map[string]bool `json:"options,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Preset returns the selected preset of kind.
func (c *Context) Preset(kind string) string {
	switch kind {
	case KindConfigure:
		return c.ConfigurePreset
	case KindBuild:
		return c.BuildPreset
	case KindTest:
		return c.TestPreset
	case KindPackage:
		return c.PackagePreset
	}
	return ""
}

// SetPreset selects name for kind. It reports false for an unknown kind.
func (c *Context) SetPreset(kind, name string) bool {
	switch kind {
	case KindConfigure:
		c.ConfigurePreset = name
	case KindBuild:
		c.BuildPreset = name
	case KindTest:
		c.TestPreset = name
	case KindPackage:
		c.PackagePreset = name
	default:
		return false
	}
	return true
}

// BuildPresetOrDefault returns the build preset, falling back to the
// configure preset: CMake generates a default build preset per configure
// preset only in recent versions, so cmkit passes --preset with the
// configure name and lets cmake report a mismatch.
func (c *Context) BuildPresetOrDefault() string {
	if c.BuildPreset != "" {
		return c.BuildPreset
	}
	return c.ConfigurePreset
}

// TestPresetOrDefault is BuildPresetOrDefault for test presets.
func (c *Context) TestPresetOrDefault() string {
	if c.TestPreset != "" {
		return c.TestPreset
	}
	return c.ConfigurePreset
}

// ToggleOption flips name, treating an unset option as off, and returns the
// new value.
func (c *Context) ToggleOption(name string) bool {
	v := !c.Options[name]
	c.SetOption(name, v)
	return v
}

// SetOption records name as on or off.
func (c *Context) SetOption(name string, on bool) {
	if c.Options == nil {
		c.Options = make(map[string]bool)
	}
	c.Options[name] = on
}

// OptionNames returns the option names sorted.
func (c *Context) OptionNames() []string {
	names := make([]string, 0, len(c.Options))
	for name := range c.Options {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddTargets appends targets not selected yet.
func (c *Context) AddTargets(targets ...string) {
	for _, t := range targets {
		if !slices.Contains(c.Targets, t) {
			c.Targets = append(c.Targets, t)
		}
	}
}

// Store reads and writes a Context file.
type Store struct {
	fs   afero.Fs
	path string
}

// NewStore returns a Store for the file at path on fsys.
func NewStore(fsys afero.Fs, path string) *Store {
	return &Store{fs: fsys, path: path}
}

// Path returns the context file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the context. A missing file yields an empty Context.
func (s *Store) Load() (*Context, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Context{}, nil
	}
	if err != nil {
		return nil, err
	}
	var c Context
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Save writes c, stamping UpdatedAt. The file is replaced via rename so a
// crash never leaves it half written.
func (s *Store) Save(c *Context) error {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	c.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return err
	}
	return s.fs.Rename(tmp, s.path)
}

// Update loads the context, applies fn and saves the result.
func (s *Store) Update(fn func(c *Context) error) (*Context, error) {
	c, err := s.Load()
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := s.Save(c); err != nil {
		return nil, err
	}
	return c, nil
}

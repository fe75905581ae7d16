// Package cmake wraps the cmake/ctest/cpack configure, build, test, install
// and package workflow driven by CMake presets.
package cmake

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/goplus/cmkit/internal/logging"
	"github.com/rs/zerolog"
	"golang.org/x/mod/semver"
)

// ErrNoPreset is returned when a step needs a preset and none was given.
var ErrNoPreset = errors.New("no preset selected")

type defineValue struct {
	value    string
	typeName string
}

// Driver runs toolchain steps for one source tree.
type Driver struct {
	sourceDir string
	defines   map[string]defineValue
	exec      Executor
	stdout    io.Writer
	stderr    io.Writer
	logger    zerolog.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithExecutor replaces the process executor.
func WithExecutor(e Executor) Option {
	return func(d *Driver) { d.exec = e }
}

// WithOutput sets where toolchain output goes. The default is the process
// stdout and stderr.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(d *Driver) { d.stdout, d.stderr = stdout, stderr }
}

// New returns a Driver for the project at sourceDir.
func New(sourceDir string, opts ...Option) *Driver {
	d := &Driver{
		sourceDir: sourceDir,
		defines:   make(map[string]defineValue),
		exec:      execExecutor{},
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		logger:    logging.GetLogger("cmake"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SourceDir returns the project source directory.
func (d *Driver) SourceDir() string { return d.sourceDir }

// Define adds a -D<key>:STRING=<value> definition to Configure.
func (d *Driver) Define(key, value string) {
	d.defines[key] = defineValue{value: value, typeName: "STRING"}
}

// DefineBool adds a -D<key>:BOOL=ON/OFF definition to Configure.
func (d *Driver) DefineBool(key string, value bool) {
	v := "OFF"
	if value {
		v = "ON"
	}
	d.defines[key] = defineValue{value: v, typeName: "BOOL"}
}

// DefineRaw adds a definition given as KEY=VALUE or KEY:TYPE=VALUE.
func (d *Driver) DefineRaw(def string) error {
	key, value, ok := strings.Cut(def, "=")
	if !ok || key == "" {
		return fmt.Errorf("invalid definition %q, want KEY=VALUE", def)
	}
	typeName := "STRING"
	if k, t, ok := strings.Cut(key, ":"); ok {
		key, typeName = k, t
	}
	d.defines[key] = defineValue{value: value, typeName: typeName}
	return nil
}

var versionRe = regexp.MustCompile(`cmake version (\S+)`)

// Version returns the cmake version, e.g. "3.28.1".
func (d *Driver) Version(ctx context.Context) (string, error) {
	out, err := d.output(ctx, "cmake", "--version")
	if err != nil {
		return "", fmt.Errorf("cmake --version: %w", err)
	}
	m := versionRe.FindSubmatch(out)
	if m == nil {
		return "", fmt.Errorf("cannot parse cmake version from %q", strings.TrimSpace(string(out)))
	}
	return string(m[1]), nil
}

// CheckVersion fails when cmake is older than min.
func (d *Driver) CheckVersion(ctx context.Context, min string) error {
	if min == "" {
		return nil
	}
	have, err := d.Version(ctx)
	if err != nil {
		return err
	}
	hv, mv := "v"+have, "v"+min
	if !semver.IsValid(mv) {
		return fmt.Errorf("invalid minimum cmake version %q", min)
	}
	if !semver.IsValid(hv) {
		d.logger.Warn().Str("version", have).Msg("Unrecognized cmake version, skipping check")
		return nil
	}
	if semver.Compare(hv, mv) < 0 {
		return fmt.Errorf("cmake %s is older than required %s", have, min)
	}
	return nil
}

// Preset is one entry of cmake --list-presets.
type Preset struct {
	Name        string
	DisplayName string
}

var presetRe = regexp.MustCompile(`^\s+"([^"]+)"(?:\s+-\s+(.*))?$`)

// ListPresets asks cmake for the presets of kind (configure, build, test
// or package) available in the source directory.
func (d *Driver) ListPresets(ctx context.Context, kind string) ([]Preset, error) {
	out, err := d.output(ctx, "cmake", "--list-presets="+kind)
	if err != nil {
		return nil, fmt.Errorf("cmake --list-presets=%s: %w", kind, err)
	}
	return parsePresets(string(out)), nil
}

func parsePresets(out string) []Preset {
	var presets []Preset
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		m := presetRe.FindStringSubmatch(strings.TrimRight(sc.Text(), "\r"))
		if m == nil {
			continue
		}
		presets = append(presets, Preset{Name: m[1], DisplayName: strings.TrimSpace(m[2])})
	}
	return presets
}

// Configure runs "cmake -S <source> --preset <preset>" with all definitions.
// Extra args are appended at the end.
func (d *Driver) Configure(ctx context.Context, preset string, args ...string) error {
	if preset == "" {
		return fmt.Errorf("configure: %w", ErrNoPreset)
	}
	cmakeArgs := []string{"-S", d.sourceDir, "--preset", preset}
	cmakeArgs = append(cmakeArgs, d.definesArgs()...)
	cmakeArgs = append(cmakeArgs, args...)
	return d.run(ctx, Cmd{Name: "cmake", Args: cmakeArgs})
}

// BuildOptions selects what Build compiles.
type BuildOptions struct {
	// Preset is the build preset. When empty, BinaryDir is built directly.
	Preset     string
	BinaryDir  string
	Targets    []string
	Jobs       int
	CleanFirst bool
}

// Build runs "cmake --build".
func (d *Driver) Build(ctx context.Context, opts BuildOptions) error {
	var args []string
	switch {
	case opts.Preset != "":
		args = []string{"--build", "--preset", opts.Preset}
	case opts.BinaryDir != "":
		args = []string{"--build", opts.BinaryDir}
	default:
		return fmt.Errorf("build: %w", ErrNoPreset)
	}
	if len(opts.Targets) > 0 {
		args = append(args, "--target")
		args = append(args, opts.Targets...)
	}
	if opts.Jobs > 0 {
		args = append(args, "--parallel", fmt.Sprint(opts.Jobs))
	}
	if opts.CleanFirst {
		args = append(args, "--clean-first")
	}
	return d.run(ctx, Cmd{Name: "cmake", Args: args})
}

// Test runs "ctest --preset <preset>" followed by args.
func (d *Driver) Test(ctx context.Context, preset string, args ...string) error {
	if preset == "" {
		return fmt.Errorf("test: %w", ErrNoPreset)
	}
	return d.run(ctx, Cmd{Name: "ctest", Args: append([]string{"--preset", preset}, args...)})
}

// TestDir runs "ctest --test-dir <binaryDir>" followed by args, for build
// trees that no test preset describes.
func (d *Driver) TestDir(ctx context.Context, binaryDir string, args ...string) error {
	return d.run(ctx, Cmd{Name: "ctest", Args: append([]string{"--test-dir", binaryDir}, args...)})
}

// ReadCache returns the entries of binaryDir/CMakeCache.txt by name,
// without their types. A tree that was never configured has no entries.
func ReadCache(binaryDir string) (map[string]string, error) {
	f, err := os.Open(filepath.Join(binaryDir, "CMakeCache.txt"))
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries := make(map[string]string)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(key, ":")
		entries[name] = value
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name(), err)
	}
	return entries, nil
}

// Install runs "cmake --install <binaryDir>", optionally into prefix.
func (d *Driver) Install(ctx context.Context, binaryDir, prefix string, args ...string) error {
	cmakeArgs := []string{"--install", binaryDir}
	if prefix != "" {
		cmakeArgs = append(cmakeArgs, "--prefix", prefix)
	}
	cmakeArgs = append(cmakeArgs, args...)
	return d.run(ctx, Cmd{Name: "cmake", Args: cmakeArgs})
}

// Pack runs cpack with a package preset, or with the CPack config found in
// binaryDir when preset is empty.
func (d *Driver) Pack(ctx context.Context, preset, binaryDir string) error {
	if preset != "" {
		return d.run(ctx, Cmd{Name: "cpack", Args: []string{"--preset", preset}})
	}
	config := filepath.Join(binaryDir, "CPackConfig.cmake")
	if _, err := os.Stat(config); err != nil {
		return fmt.Errorf("pack: %w", err)
	}
	return d.run(ctx, Cmd{Name: "cpack", Args: []string{"--config", config}, Dir: binaryDir})
}

// Coverage renders a report of the coverage data in binaryDir into output
// using tool ("gcovr" or "lcov").
func (d *Driver) Coverage(ctx context.Context, tool, binaryDir, output string) error {
	data, err := CoverageData(binaryDir)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("no coverage data under %s, was the project built with coverage flags?", binaryDir)
	}
	d.logger.Info().Int("files", len(data)).Str("dir", binaryDir).Msg("Found coverage data")

	if err := os.MkdirAll(output, 0o755); err != nil {
		return err
	}
	switch tool {
	case "gcovr":
		return d.run(ctx, Cmd{Name: "gcovr", Args: []string{
			"-r", d.sourceDir, binaryDir,
			"--html-details", filepath.Join(output, "index.html"),
		}})
	case "lcov":
		return d.run(ctx, Cmd{Name: "lcov", Args: []string{
			"--capture", "--directory", binaryDir,
			"--output-file", filepath.Join(output, "coverage.info"),
		}})
	}
	return fmt.Errorf("unsupported coverage tool %q", tool)
}

// CoverageData lists the gcov data files below binaryDir.
func CoverageData(binaryDir string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(binaryDir), "**/*.gcda")
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// FindExecutable locates the executable built for target below binaryDir.
// Multi-config generators put it in a per-configuration subdirectory, so
// when it is not at the top the tree is searched, skipping CMakeFiles.
func FindExecutable(binaryDir, target string) (string, error) {
	name := target
	if runtime.GOOS == "windows" && filepath.Ext(name) != ".exe" {
		name += ".exe"
	}
	direct := filepath.Join(binaryDir, name)
	if fi, err := os.Stat(direct); err == nil && fi.Mode().IsRegular() {
		return direct, nil
	}

	matches, err := doublestar.Glob(os.DirFS(binaryDir), "**/"+name, doublestar.WithFilesOnly())
	if err != nil {
		return "", err
	}
	sort.Strings(matches)
	for _, m := range matches {
		if strings.HasPrefix(m, "CMakeFiles/") || strings.Contains(m, "/CMakeFiles/") {
			continue
		}
		return filepath.Join(binaryDir, filepath.FromSlash(m)), nil
	}
	return "", fmt.Errorf("executable for target %q not found under %s", target, binaryDir)
}

// Launch runs the executable path with args, wired to the terminal. env is
// added to the current environment.
func (d *Driver) Launch(ctx context.Context, path string, args, env []string) error {
	return d.run(ctx, Cmd{Name: path, Args: args, Env: env, Stdin: os.Stdin})
}

func (d *Driver) run(ctx context.Context, c Cmd) error {
	if c.Dir == "" {
		c.Dir = d.sourceDir
	}
	c.Stdout, c.Stderr = d.stdout, d.stderr
	logging.LogCommand(d.logger, c.Name, c.Args)
	if err := d.exec.Run(ctx, c); err != nil {
		return fmt.Errorf("%s: %w", c.Name, err)
	}
	return nil
}

func (d *Driver) output(ctx context.Context, name string, args ...string) ([]byte, error) {
	logging.LogCommand(d.logger, name, args)
	return d.exec.Output(ctx, Cmd{Name: name, Args: args, Dir: d.sourceDir, Stderr: d.stderr})
}

func (d *Driver) definesArgs() []string {
	if len(d.defines) == 0 {
		return nil
	}
	keys := make([]string, 0, len(d.defines))
	for k := range d.defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		v := d.defines[k]
		args = append(args, "-D"+k+":"+v.typeName+"="+v.value)
	}
	return args
}

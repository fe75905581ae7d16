// Package envdiff refreshes an environment from a setup script.
//
// A Differ asks a shell to dump its environment, source the script and dump
// the environment again, then copies every new or changed variable into a
// Store. Path-like variables are deduplicated on the way in.
package envdiff

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrSpawn reports that the shell could not be started or exited with
	// a failure status (a missing script usually ends up here).
	ErrSpawn = errors.New("envdiff: shell failed")

	// ErrParse reports a transcript without two dividers.
	ErrParse = errors.New("envdiff: malformed transcript")

	// ErrScript is matched by every *ScriptError.
	ErrScript = errors.New("envdiff: script reported an error")

	// ErrUnsupportedPlatform is returned by New on a GOOS without a Dialect.
	ErrUnsupportedPlatform = errors.New("envdiff: unsupported platform")
)

// ScriptError carries the script output lines that matched the error
// pattern passed to Refresh.
type ScriptError struct {
	Lines []string
}

func (e *ScriptError) Error() string {
	return strings.Join(e.Lines, "\n")
}

func (e *ScriptError) Is(target error) bool {
	return target == ErrScript
}

// Change is one variable written to the store.
type Change struct {
	Name    string
	Old     string
	Existed bool
	Value   string
}

// Result lists what Refresh applied, in application order.
type Result struct {
	Changes []Change
	Removed []string
}

// RefreshOptions tunes a single Refresh call.
type RefreshOptions struct {
	// ErrorPattern, if set, is matched against each line the script
	// prints. Any match aborts the refresh before the store is touched.
	ErrorPattern *regexp.Regexp

	// RemoveUnset unsets variables that the script removed. By default
	// they are left alone.
	RemoveUnset bool
}

// Differ computes and applies environment deltas.
type Differ struct {
	dialect  Dialect
	store    Store
	runner   Runner
	out      io.Writer
	logger   zerolog.Logger
	divider  string
	pathVars []string
}

// Option configures a Differ.
type Option func(*Differ)

// WithDialect overrides the dialect chosen from runtime.GOOS.
func WithDialect(d Dialect) Option {
	return func(p *Differ) { p.dialect = d }
}

// WithStore sets the environment to refresh. The default is OSStore.
func WithStore(s Store) Option {
	return func(p *Differ) { p.store = s }
}

// WithRunner sets how the shell is executed. The default is ExecRunner.
func WithRunner(r Runner) Option {
	return func(p *Differ) { p.runner = r }
}

// WithOutput sets where "export NAME=VALUE" lines go. The default is
// os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(p *Differ) { p.out = w }
}

// WithLogger sets the structured logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Differ) { p.logger = l }
}

// WithDivider fixes the transcript divider instead of a random one.
func WithDivider(divider string) Option {
	return func(p *Differ) { p.divider = divider }
}

// WithPathVars adds names to the path-like set for this Differ.
func WithPathVars(names ...string) Option {
	return func(p *Differ) { p.pathVars = append(p.pathVars, names...) }
}

// New returns a Differ for the current platform.
func New(opts ...Option) (*Differ, error) {
	d := &Differ{
		store:  OSStore{},
		runner: ExecRunner{},
		out:    os.Stdout,
		logger: log.With().Str("component", "envdiff").Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.dialect == nil {
		dialect, err := ForGOOS(runtime.GOOS)
		if err != nil {
			return nil, err
		}
		d.dialect = dialect
	}
	if d.divider == "" {
		d.divider = NewDivider()
	}
	return d, nil
}

// Dialect returns the shell dialect in use, e.g. to Quote a script path.
func (d *Differ) Dialect() Dialect {
	return d.dialect
}

// Refresh runs script in the dialect's shell and applies the resulting
// environment delta to the store.
//
// The store is written only after the whole transcript has been parsed and
// checked against opts.ErrorPattern, so a spawn, parse or pattern failure
// leaves it untouched. Side effects of the script itself (files written,
// processes started) happen regardless. A failing Store.Set may leave the
// delta partially applied.
func (d *Differ) Refresh(ctx context.Context, script string, opts RefreshOptions) (*Result, error) {
	inv := d.dialect.Command(script, d.divider)
	inv.Env = d.store.Environ()

	d.logger.Debug().Str("dialect", d.dialect.Name()).Str("command", inv.String()).Msg("Capturing environment")
	out, err := d.runner.Run(ctx, inv)
	if err != nil {
		d.logger.Debug().Bytes("output", out).Msg("Shell failed")
		return nil, fmt.Errorf("%w: %s: %w", ErrSpawn, inv.Path, err)
	}

	tr, err := ParseTranscript(string(out), d.divider)
	if err != nil {
		return nil, err
	}

	if opts.ErrorPattern != nil {
		var matched []string
		for _, line := range tr.Output {
			if opts.ErrorPattern.MatchString(line) {
				matched = append(matched, line)
			}
		}
		if len(matched) > 0 {
			return nil, &ScriptError{Lines: matched}
		}
	}

	res := d.delta(tr, opts)
	if err := d.apply(res); err != nil {
		return res, err
	}
	return res, nil
}

func (d *Differ) delta(tr *Transcript, opts RefreshOptions) *Result {
	names := make([]string, 0, len(tr.After))
	for name := range tr.After {
		names = append(names, name)
	}
	sort.Strings(names)

	res := &Result{}
	for _, name := range names {
		value := tr.After[name]
		old, existed := tr.Before[name]
		if existed && old == value {
			continue
		}
		if d.isPathVar(name) {
			value = Dedup(value, d.dialect.ListSeparator())
		}
		res.Changes = append(res.Changes, Change{Name: name, Old: old, Existed: existed, Value: value})
	}

	if opts.RemoveUnset {
		for name := range tr.Before {
			if _, ok := tr.After[name]; !ok {
				res.Removed = append(res.Removed, name)
			}
		}
		sort.Strings(res.Removed)
	}
	return res
}

func (d *Differ) apply(res *Result) error {
	for _, c := range res.Changes {
		if err := d.store.Set(c.Name, c.Value); err != nil {
			return fmt.Errorf("envdiff: set %s: %w", c.Name, err)
		}
		fmt.Fprintf(d.out, "export %s=%s\n", c.Name, c.Value)
		d.logger.Debug().Str("name", c.Name).Bool("existed", c.Existed).Msg("Variable updated")
	}
	for _, name := range res.Removed {
		if err := d.store.Unset(name); err != nil {
			return fmt.Errorf("envdiff: unset %s: %w", name, err)
		}
		fmt.Fprintf(d.out, "unset %s\n", name)
		d.logger.Debug().Str("name", name).Msg("Variable removed")
	}
	return nil
}

func (d *Differ) isPathVar(name string) bool {
	if IsPathLike(name) {
		return true
	}
	for _, v := range d.pathVars {
		if strings.EqualFold(v, name) {
			return true
		}
	}
	return false
}

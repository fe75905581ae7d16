package internal

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goplus/cmkit/internal/cmake"
	"github.com/goplus/cmkit/internal/config"
	"github.com/goplus/cmkit/internal/envdiff"
	"github.com/goplus/cmkit/internal/logging"
	"github.com/goplus/cmkit/internal/projctx"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// Overridden in tests.
var (
	appFs         afero.Fs = afero.NewOsFs()
	driverOptions []cmake.Option
	differOptions []envdiff.Option
)

// session bundles what a subcommand needs about the current project.
type session struct {
	sourceDir string
	cfg       *config.Config
	store     *projctx.Store
	ctx       *projctx.Context
	driver    *cmake.Driver
}

func newSession() (*session, error) {
	src, err := filepath.Abs(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source dir: %w", err)
	}
	cfg, err := config.Load(src, configFile)
	if err != nil {
		return nil, err
	}
	store := projctx.NewStore(appFs, cfg.ContextPath(src))
	c, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", store.Path(), err)
	}
	return &session{sourceDir: src, cfg: cfg, store: store, ctx: c}, nil
}

func (s *session) save() error {
	if err := s.store.Save(s.ctx); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.store.Path(), err)
	}
	return nil
}

// binaryDir is the build tree of the selected configure preset.
func (s *session) binaryDir() (string, error) {
	if s.ctx.ConfigurePreset == "" {
		return "", fmt.Errorf("no configure preset selected, run 'cmkit select preset configure <name>' first")
	}
	return s.cfg.BinaryDir(s.sourceDir, s.ctx.ConfigurePreset), nil
}

// toolchain prepares the environment once per session and returns the
// driver for the project.
func (s *session) toolchain(cmd *cobra.Command) (*cmake.Driver, error) {
	if s.driver != nil {
		return s.driver, nil
	}
	if err := s.refreshEnv(cmd.Context(), cmd.ErrOrStderr()); err != nil {
		return nil, err
	}
	opts := append([]cmake.Option{cmake.WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())}, driverOptions...)
	s.driver = cmake.New(s.sourceDir, opts...)
	return s.driver, nil
}

// refreshEnv sources the configured env_script into the process
// environment, so every toolchain process started afterwards inherits it.
func (s *session) refreshEnv(ctx context.Context, stderr io.Writer) error {
	if s.cfg.EnvScript == "" {
		return nil
	}
	pattern, err := s.cfg.ErrorPattern()
	if err != nil {
		return err
	}
	out := io.Discard
	if verbosity > 0 {
		out = stderr
	}
	opts := append([]envdiff.Option{envdiff.WithOutput(out)}, differOptions...)
	differ, err := envdiff.New(opts...)
	if err != nil {
		return err
	}

	logger := logging.GetLogger("env")
	done := logging.LogOperationStart(logger, "refresh env")
	defer done()

	script := os.ExpandEnv(s.cfg.EnvScript)
	res, err := differ.Refresh(ctx, differ.Dialect().Quote(script), envdiff.RefreshOptions{
		ErrorPattern: pattern,
		RemoveUnset:  s.cfg.EnvRemoveUnset,
	})
	if err != nil {
		return fmt.Errorf("failed to load environment from %s: %w", script, err)
	}
	logger.Info().Str("script", script).Int("changed", len(res.Changes)).Int("removed", len(res.Removed)).Msg("Environment refreshed")
	return nil
}

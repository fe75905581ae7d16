package internal

import (
	"fmt"

	"github.com/goplus/cmkit/internal/cmake"
	"github.com/spf13/cobra"
)

var (
	buildPreset     string
	buildJobs       int
	buildCleanFirst bool
)

var buildCmd = &cobra.Command{
	Use:   "build [targets...]",
	Short: "Build the selected targets",
	Long: `Build compiles the given targets, or the targets chosen with
'cmkit select targets' when none are given, using the selected build preset.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildPreset, "preset", "p", "", "Build preset, remembered for later runs")
	buildCmd.Flags().IntVarP(&buildJobs, "jobs", "j", 0, "Parallel jobs (default from config)")
	buildCmd.Flags().BoolVar(&buildCleanFirst, "clean-first", false, "Build the clean target first")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	if buildPreset != "" {
		s.ctx.BuildPreset = buildPreset
		if err := s.save(); err != nil {
			return err
		}
	}
	targets := args
	if len(targets) == 0 {
		targets = s.ctx.Targets
	}
	return s.build(cmd, targets, buildCleanFirst)
}

func (s *session) build(cmd *cobra.Command, targets []string, cleanFirst bool) error {
	driver, err := s.toolchain(cmd)
	if err != nil {
		return err
	}
	opts := cmake.BuildOptions{
		Preset:     s.ctx.BuildPresetOrDefault(),
		Targets:    targets,
		Jobs:       s.jobs(),
		CleanFirst: cleanFirst,
	}
	if err := driver.Build(cmd.Context(), opts); err != nil {
		return fmt.Errorf("failed to build: %w", err)
	}
	return nil
}

// jobs is -j, falling back to the configured default.
func (s *session) jobs() int {
	if buildJobs != 0 {
		return buildJobs
	}
	return s.cfg.Jobs
}

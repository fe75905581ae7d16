package internal

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goplus/cmkit/internal/cmake"
	"github.com/spf13/cobra"
)

// coverageFlagVars get --coverage for every language cmake may compile.
var coverageFlagVars = []string{
	"CMAKE_C_FLAGS",
	"CMAKE_CXX_FLAGS",
	"CMAKE_EXE_LINKER_FLAGS",
	"CMAKE_SHARED_LINKER_FLAGS",
}

const coverageFlag = "--coverage"

var coverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Build with coverage instrumentation, run the tests and report",
	Long: `Coverage configures the selected preset into a separate <build dir>-coverage
tree with --coverage appended to the compiler and linker flags, builds it,
runs ctest there and renders a report with the configured coverage tool.
The preset's own build tree is left untouched.`,
	Args: cobra.NoArgs,
	RunE: runCoverage,
}

func init() {
	rootCmd.AddCommand(coverageCmd)
}

func runCoverage(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	binaryDir, err := s.binaryDir()
	if err != nil {
		return err
	}
	cache, err := cmake.ReadCache(binaryDir)
	if err != nil {
		return err
	}
	covDir := binaryDir + "-coverage"

	if err := s.configure(cmd, coverageDefines(cache), "-B", covDir); err != nil {
		return err
	}
	driver, err := s.toolchain(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if err := driver.Build(ctx, cmake.BuildOptions{BinaryDir: covDir, Targets: s.ctx.Targets, Jobs: s.jobs()}); err != nil {
		return fmt.Errorf("failed to build: %w", err)
	}
	if err := driver.TestDir(ctx, covDir, s.ctx.TestArgs...); err != nil {
		return fmt.Errorf("tests failed: %w", err)
	}

	output := s.cfg.Coverage.Output
	if !filepath.IsAbs(output) {
		output = filepath.Join(s.sourceDir, output)
	}
	if err := driver.Coverage(ctx, s.cfg.Coverage.Tool, covDir, output); err != nil {
		return fmt.Errorf("failed to render coverage: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Coverage report written to %s\n", output)
	return nil
}

// coverageDefines appends --coverage to the flags found in the preset's
// build cache.
func coverageDefines(cache map[string]string) []string {
	defines := []string{"CMKIT_COVERAGE:BOOL=ON"}
	for _, name := range coverageFlagVars {
		flags := strings.Fields(cache[name])
		if !slices.Contains(flags, coverageFlag) {
			flags = append(flags, coverageFlag)
		}
		defines = append(defines, name+":STRING="+strings.Join(flags, " "))
	}
	return defines
}

package internal

import (
	"fmt"

	"github.com/spf13/cobra"
)

var testPreset string

var testCmd = &cobra.Command{
	Use:   "test [-- ctest-args...]",
	Short: "Run the tests with ctest",
	Long: `Test runs ctest with the selected test preset. Arguments after "--" are
passed to ctest and remembered; without them the remembered ones are used.`,
	RunE: runTest,
}

func init() {
	testCmd.Flags().StringVarP(&testPreset, "preset", "p", "", "Test preset, remembered for later runs")
	rootCmd.AddCommand(testCmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	changed := false
	if testPreset != "" {
		s.ctx.TestPreset = testPreset
		changed = true
	}
	if cmd.ArgsLenAtDash() >= 0 {
		s.ctx.TestArgs = args[cmd.ArgsLenAtDash():]
		changed = true
	} else if len(args) > 0 {
		return fmt.Errorf("ctest arguments must follow \"--\"")
	}
	if changed {
		if err := s.save(); err != nil {
			return err
		}
	}
	return s.test(cmd)
}

func (s *session) test(cmd *cobra.Command) error {
	driver, err := s.toolchain(cmd)
	if err != nil {
		return err
	}
	if err := driver.Test(cmd.Context(), s.ctx.TestPresetOrDefault(), s.ctx.TestArgs...); err != nil {
		return fmt.Errorf("tests failed: %w", err)
	}
	return nil
}

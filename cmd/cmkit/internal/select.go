package internal

import (
	"fmt"
	"strings"

	"github.com/goplus/cmkit/internal/projctx"
	"github.com/spf13/cobra"
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Remember presets, targets and arguments for later runs",
}

var selectPresetCmd = &cobra.Command{
	Use:       "preset <configure|build|test|package> <name>",
	Short:     "Select a preset",
	Args:      cobra.ExactArgs(2),
	ValidArgs: projctx.Kinds,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, name := args[0], args[1]
		return updateContext(cmd, func(c *projctx.Context) error {
			if !c.SetPreset(kind, name) {
				return fmt.Errorf("unknown preset kind %q, want one of %v", kind, projctx.Kinds)
			}
			return nil
		}, "Selected %s preset %s", kind, name)
	},
}

var selectTargetsCmd = &cobra.Command{
	Use:   "targets [targets...]",
	Short: "Select the build targets (none builds the default target)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateContext(cmd, func(c *projctx.Context) error {
			c.Targets = nil
			c.AddTargets(args...)
			return nil
		}, "Selected targets: %s", describeList(args))
	},
}

var selectLaunchCmd = &cobra.Command{
	Use:   "launch <target> [-- args...]",
	Short: "Select the target 'cmkit run' executes and its arguments",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, launchArgs, err := splitDashArgs(cmd, args)
		if err != nil {
			return err
		}
		return updateContext(cmd, func(c *projctx.Context) error {
			c.LaunchTarget = target
			c.LaunchArgs = launchArgs
			return nil
		}, "Selected launch target %s %s", target, describeList(launchArgs))
	},
}

var selectTestArgsCmd = &cobra.Command{
	Use:   "test-args [-- args...]",
	Short: "Select the arguments passed to ctest",
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateContext(cmd, func(c *projctx.Context) error {
			c.TestArgs = args
			return nil
		}, "Selected test arguments: %s", describeList(args))
	},
}

func init() {
	selectCmd.AddCommand(selectPresetCmd, selectTargetsCmd, selectLaunchCmd, selectTestArgsCmd)
	rootCmd.AddCommand(selectCmd)
}

// updateContext applies fn to the project context, saves it and prints a
// confirmation.
func updateContext(cmd *cobra.Command, fn func(c *projctx.Context) error, format string, a ...any) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	if _, err := s.store.Update(fn); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), format+"\n", a...)
	return nil
}

// splitDashArgs splits "<target> -- args..." into the target and the args.
func splitDashArgs(cmd *cobra.Command, args []string) (string, []string, error) {
	dash := cmd.ArgsLenAtDash()
	switch {
	case dash < 0 && len(args) == 1:
		return args[0], nil, nil
	case dash == 1:
		return args[0], args[1:], nil
	}
	return "", nil, fmt.Errorf("expected <target> [-- args...], got %q", strings.Join(args, " "))
}

func describeList(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, " ")
}

package internal

import (
	"fmt"
	"strings"

	"github.com/goplus/cmkit/internal/projctx"
	"github.com/spf13/cobra"
)

var optionCmd = &cobra.Command{
	Use:   "option <NAME> [on|off]",
	Short: "Toggle or set a boolean build option",
	Long: `Option flips a boolean cache entry passed to every later configure as
-D<NAME>:BOOL=ON/OFF, or sets it when on/off is given.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runOption,
}

func init() {
	rootCmd.AddCommand(optionCmd)
}

func runOption(cmd *cobra.Command, args []string) error {
	name := args[0]
	var value *bool
	if len(args) == 2 {
		v, err := parseOnOff(args[1])
		if err != nil {
			return err
		}
		value = &v
	}

	var now bool
	err := updateContext(cmd, func(c *projctx.Context) error {
		if value != nil {
			c.SetOption(name, *value)
			now = *value
		} else {
			now = c.ToggleOption(name)
		}
		return nil
	}, "Option %s", name)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", name, onOff(now))
	return nil
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid option value %q, want on or off", s)
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}

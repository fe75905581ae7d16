package internal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/goplus/cmkit/internal/envdiff"
	"github.com/spf13/cobra"
)

var (
	envErrorPattern string
	envRemoveUnset  bool
	envEval         bool
	envPathVars     []string
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Inspect environment setup scripts",
}

var envRefreshCmd = &cobra.Command{
	Use:   "refresh <script>",
	Short: "Show what sourcing a setup script changes in the environment",
	Long: `Refresh sources script in a child shell and reports every variable it
adds or changes. Path-like variables (PATH, INCLUDE, LIB, LIBPATH) are
deduplicated.

With --eval the changes are printed as shell statements, so the calling shell
can adopt them:

  eval "$(cmkit env refresh --eval ./setup.sh)"`,
	Args: cobra.ExactArgs(1),
	RunE: runEnvRefresh,
}

func init() {
	f := envRefreshCmd.Flags()
	f.StringVar(&envErrorPattern, "error-pattern", "", "Abort when a line printed by the script matches this regexp")
	f.BoolVar(&envRemoveUnset, "remove-unset", false, "Also report variables the script removed")
	f.BoolVar(&envEval, "eval", false, "Print statements for the calling shell to evaluate")
	f.StringSliceVar(&envPathVars, "path-var", nil, "Extra path-like variables to deduplicate")
	envCmd.AddCommand(envRefreshCmd)
	rootCmd.AddCommand(envCmd)
}

func runEnvRefresh(cmd *cobra.Command, args []string) error {
	var pattern *regexp.Regexp
	if envErrorPattern != "" {
		re, err := regexp.Compile(envErrorPattern)
		if err != nil {
			return fmt.Errorf("invalid --error-pattern: %w", err)
		}
		pattern = re
	}

	out := cmd.OutOrStdout()
	report := out
	if envEval {
		report = io.Discard
	}
	opts := []envdiff.Option{envdiff.WithOutput(report), envdiff.WithPathVars(envPathVars...)}
	differ, err := envdiff.New(append(opts, differOptions...)...)
	if err != nil {
		return err
	}

	script := differ.Dialect().Quote(os.ExpandEnv(args[0]))
	res, err := differ.Refresh(cmd.Context(), script, envdiff.RefreshOptions{
		ErrorPattern: pattern,
		RemoveUnset:  envRemoveUnset,
	})
	var scriptErr *envdiff.ScriptError
	if errors.As(err, &scriptErr) {
		return fmt.Errorf("%s reported errors:\n%s", args[0], scriptErr.Error())
	}
	if err != nil {
		return err
	}
	if envEval {
		writeEval(out, differ.Dialect(), res)
	} else if len(res.Changes) == 0 && len(res.Removed) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No changes")
	}
	return nil
}

// writeEval prints res as statements the dialect's shell can evaluate.
func writeEval(w io.Writer, dialect envdiff.Dialect, res *envdiff.Result) {
	if _, ok := dialect.(envdiff.Windows); ok {
		for _, c := range res.Changes {
			fmt.Fprintf(w, "set \"%s=%s\"\n", c.Name, c.Value)
		}
		for _, name := range res.Removed {
			fmt.Fprintf(w, "set %s=\n", name)
		}
		return
	}
	for _, c := range res.Changes {
		fmt.Fprintf(w, "export %s=%s\n", c.Name, dialect.Quote(c.Value))
	}
	for _, name := range res.Removed {
		fmt.Fprintf(w, "unset %s\n", name)
	}
}

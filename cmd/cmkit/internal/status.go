package internal

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/goplus/cmkit/internal/projctx"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the remembered selections",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	printStatus(cmd.OutOrStdout(), s)
	return nil
}

func printStatus(w io.Writer, s *session) {
	key := color.New(color.FgCyan).SprintFunc()
	row := func(name, value string) {
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(w, "%s %s\n", key(fmt.Sprintf("%-17s", name+":")), value)
	}

	c := s.ctx
	row("source dir", s.sourceDir)
	row("context file", s.store.Path())
	for _, kind := range projctx.Kinds {
		row(kind+" preset", c.Preset(kind))
	}
	if c.ConfigurePreset != "" {
		row("binary dir", s.cfg.BinaryDir(s.sourceDir, c.ConfigurePreset))
	}
	row("targets", strings.Join(c.Targets, " "))
	row("launch target", c.LaunchTarget)
	row("launch args", strings.Join(c.LaunchArgs, " "))
	row("test args", strings.Join(c.TestArgs, " "))
	row("env script", s.cfg.EnvScript)

	var opts []string
	for _, name := range c.OptionNames() {
		opts = append(opts, name+"="+onOff(c.Options[name]))
	}
	row("options", strings.Join(opts, " "))
}

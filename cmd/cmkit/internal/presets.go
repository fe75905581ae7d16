package internal

import (
	"fmt"
	"slices"

	"github.com/fatih/color"
	"github.com/goplus/cmkit/internal/projctx"
	"github.com/spf13/cobra"
)

var presetsCmd = &cobra.Command{
	Use:       "presets [configure|build|test|package]",
	Short:     "List the presets cmake knows for this project",
	Long:      `Presets lists the presets of one kind (configure by default) and marks the selected one.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: projctx.Kinds,
	RunE:      runPresets,
}

func init() {
	rootCmd.AddCommand(presetsCmd)
}

func runPresets(cmd *cobra.Command, args []string) error {
	kind := projctx.KindConfigure
	if len(args) > 0 {
		kind = args[0]
	}
	if !slices.Contains(projctx.Kinds, kind) {
		return fmt.Errorf("unknown preset kind %q, want one of %v", kind, projctx.Kinds)
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	driver, err := s.toolchain(cmd)
	if err != nil {
		return err
	}
	presets, err := driver.ListPresets(cmd.Context(), kind)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(presets) == 0 {
		fmt.Fprintf(out, "No %s presets\n", kind)
		return nil
	}
	selected := s.ctx.Preset(kind)
	current := color.New(color.FgGreen, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()
	for _, p := range presets {
		line := "  " + p.Name
		if p.Name == selected {
			line = current("* " + p.Name)
		}
		if p.DisplayName != "" {
			line += " " + dim(p.DisplayName)
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

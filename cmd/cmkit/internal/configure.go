package internal

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	configurePreset  string
	configureDefines []string
	configureFresh   bool
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Configure the project with the selected preset",
	Long: `Configure runs cmake with the selected configure preset. Options toggled
with 'cmkit option' are passed as -D<NAME>:BOOL=ON/OFF.`,
	Args: cobra.NoArgs,
	RunE: runConfigure,
}

func init() {
	configureCmd.Flags().StringVarP(&configurePreset, "preset", "p", "", "Configure preset, remembered for later runs")
	configureCmd.Flags().StringArrayVarP(&configureDefines, "define", "D", nil, "Extra cache entry KEY[:TYPE]=VALUE")
	configureCmd.Flags().BoolVar(&configureFresh, "fresh", false, "Configure a fresh build tree, removing any existing cache")
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	if configurePreset != "" {
		s.ctx.ConfigurePreset = configurePreset
		if err := s.save(); err != nil {
			return err
		}
	}
	var extra []string
	if configureFresh {
		extra = append(extra, "--fresh")
	}
	return s.configure(cmd, configureDefines, extra...)
}

// configure applies the remembered options and defines, then runs cmake
// with the configure preset and extra.
func (s *session) configure(cmd *cobra.Command, defines []string, extra ...string) error {
	driver, err := s.toolchain(cmd)
	if err != nil {
		return err
	}
	if err := driver.CheckVersion(cmd.Context(), s.cfg.CMake.MinVersion); err != nil {
		return err
	}
	for _, name := range s.ctx.OptionNames() {
		driver.DefineBool(name, s.ctx.Options[name])
	}
	for _, def := range defines {
		if err := driver.DefineRaw(def); err != nil {
			return err
		}
	}
	if err := driver.Configure(cmd.Context(), s.ctx.ConfigurePreset, extra...); err != nil {
		return fmt.Errorf("failed to configure: %w", err)
	}
	return nil
}

package internal

import (
	"fmt"

	"github.com/spf13/cobra"
)

var packPreset string

var packCmd = &cobra.Command{
	Use:   "pack",
	Short: "Package the project with cpack",
	Long: `Pack runs cpack with the selected package preset, or with the CPack
configuration generated in the build tree when no package preset is selected.`,
	Args: cobra.NoArgs,
	RunE: runPack,
}

func init() {
	packCmd.Flags().StringVarP(&packPreset, "preset", "p", "", "Package preset, remembered for later runs")
	rootCmd.AddCommand(packCmd)
}

func runPack(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	if packPreset != "" {
		s.ctx.PackagePreset = packPreset
		if err := s.save(); err != nil {
			return err
		}
	}

	var binaryDir string
	if s.ctx.PackagePreset == "" {
		if binaryDir, err = s.binaryDir(); err != nil {
			return err
		}
	}
	driver, err := s.toolchain(cmd)
	if err != nil {
		return err
	}
	if err := driver.Pack(cmd.Context(), s.ctx.PackagePreset, binaryDir); err != nil {
		return fmt.Errorf("failed to package: %w", err)
	}
	return nil
}

package internal

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var installPrefix string

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the build tree of the selected preset",
	Long:  `Install runs cmake --install on the binary directory of the selected configure preset.`,
	Args:  cobra.NoArgs,
	RunE:  runInstall,
}

func init() {
	installCmd.Flags().StringVar(&installPrefix, "prefix", "", "Override the install prefix")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	binaryDir, err := s.binaryDir()
	if err != nil {
		return err
	}

	// Resolve the prefix before cmake sees it; it runs from the source dir.
	prefix := installPrefix
	if prefix != "" {
		if prefix, err = filepath.Abs(prefix); err != nil {
			return fmt.Errorf("failed to resolve prefix: %w", err)
		}
	}

	driver, err := s.toolchain(cmd)
	if err != nil {
		return err
	}
	if err := driver.Install(cmd.Context(), binaryDir, prefix); err != nil {
		return fmt.Errorf("failed to install: %w", err)
	}
	return nil
}

package internal

import (
	"fmt"
	"os"

	"github.com/goplus/cmkit/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	verbosity  int
	sourceDir  string
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "cmkit",
	Short: "cmkit drives CMake presets from the command line",
	Long: `cmkit wraps the CMake configure/build/test/install/package workflow,
remembering the selected presets, targets and arguments between runs. It can
source a toolchain setup script before each step and import the environment
it produces.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(verbosity)
		log.Debug().Str("command", cmd.Name()).Msg("Command started")
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().StringVarP(&sourceDir, "source-dir", "S", ".", "Project source directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Additional config file")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	logging.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

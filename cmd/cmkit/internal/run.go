package internal

import (
	"fmt"
	"sort"

	"github.com/goplus/cmkit/internal/cmake"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	runTarget  string
	runEnvFile []string
	runNoBuild bool
)

var runCmd = &cobra.Command{
	Use:   "run [-- args...]",
	Short: "Build and run the launch target",
	Long: `Run builds the launch target and executes it. Arguments after "--" replace
the remembered launch arguments; without them the remembered ones are used.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runTarget, "target", "t", "", "Launch target, remembered for later runs")
	runCmd.Flags().StringArrayVar(&runEnvFile, "env-file", nil, "Dotenv file with extra variables for the program")
	runCmd.Flags().BoolVar(&runNoBuild, "no-build", false, "Run without building first")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	if runTarget != "" {
		s.ctx.LaunchTarget = runTarget
	}
	if cmd.ArgsLenAtDash() >= 0 {
		s.ctx.LaunchArgs = args[cmd.ArgsLenAtDash():]
	} else if len(args) > 0 {
		return fmt.Errorf("program arguments must follow \"--\"")
	}
	if s.ctx.LaunchTarget == "" {
		return fmt.Errorf("no launch target selected, use --target or 'cmkit select launch <target>'")
	}
	if err := s.save(); err != nil {
		return err
	}

	env, err := loadEnvFiles(runEnvFile)
	if err != nil {
		return err
	}
	binaryDir, err := s.binaryDir()
	if err != nil {
		return err
	}
	if !runNoBuild {
		if err := s.build(cmd, []string{s.ctx.LaunchTarget}, false); err != nil {
			return err
		}
	}
	driver, err := s.toolchain(cmd)
	if err != nil {
		return err
	}
	exe, err := cmake.FindExecutable(binaryDir, s.ctx.LaunchTarget)
	if err != nil {
		return err
	}
	return driver.Launch(cmd.Context(), exe, s.ctx.LaunchArgs, env)
}

// loadEnvFiles reads dotenv files into NAME=VALUE pairs sorted by name.
// Later files win.
func loadEnvFiles(files []string) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	vars, err := godotenv.Read(files...)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}
	env := make([]string, 0, len(vars))
	for k, v := range vars {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env, nil
}

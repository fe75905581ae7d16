package envdiff

import (
	"context"

	"golang.org/x/sys/execabs"
)

// Runner executes an Invocation and returns its combined stdout and stderr.
type Runner interface {
	Run(ctx context.Context, inv Invocation) ([]byte, error)
}

// ExecRunner runs invocations as child processes. Stdin is not connected,
// so a script that reads from it sees EOF instead of hanging.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, inv Invocation) ([]byte, error) {
	cmd := execabs.CommandContext(ctx, inv.Path, inv.Args...)
	cmd.Env = inv.Env
	setCmdLine(cmd, inv.CmdLine)
	return cmd.CombinedOutput()
}

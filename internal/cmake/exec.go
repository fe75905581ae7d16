package cmake

import (
	"bytes"
	"context"
	"io"

	"golang.org/x/sys/execabs"
)

// Cmd is one toolchain invocation.
type Cmd struct {
	Name string
	Args []string
	Dir  string
	// Env is appended to the current process environment.
	Env    []string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Executor runs toolchain commands.
type Executor interface {
	Run(ctx context.Context, c Cmd) error
	Output(ctx context.Context, c Cmd) ([]byte, error)
}

// execExecutor runs commands as child processes of cmkit, so they inherit
// the environment as refreshed by envdiff.
type execExecutor struct{}

func (execExecutor) command(ctx context.Context, c Cmd) *execabs.Cmd {
	cmd := execabs.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}
	cmd.Stdin = c.Stdin
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	return cmd
}

func (e execExecutor) Run(ctx context.Context, c Cmd) error {
	return e.command(ctx, c).Run()
}

func (e execExecutor) Output(ctx context.Context, c Cmd) ([]byte, error) {
	var stdout bytes.Buffer
	c.Stdout = &stdout
	err := e.command(ctx, c).Run()
	return stdout.Bytes(), err
}

package probe

import (
	"bytes"
	"context"
	"os/exec"
	"time"
)

// RunOptions adjusts one command invocation.
type RunOptions struct {
	// Env replaces the child environment when non-nil.
	Env []string
}

// RunResult holds everything the command wrote.
type RunResult struct {
	Stdout []byte
	Stderr []byte
}

// Runner starts external commands. Tests substitute a fake so no interpreter
// is spawned.
type Runner interface {
	Run(ctx context.Context, command string, args []string, opts RunOptions) (RunResult, error)
}

// waitDelay bounds how long Run waits for output pipes after the context
// kills the process, in case a grandchild still holds them.
const waitDelay = time.Second

// CmdRunner runs commands with os/exec and captures their output.
type CmdRunner struct{}

func (CmdRunner) Run(ctx context.Context, command string, args []string, opts RunOptions) (RunResult, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	if opts.Env != nil {
		cmd.Env = opts.Env
	}
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return RunResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}, err
}

var _ Runner = CmdRunner{}

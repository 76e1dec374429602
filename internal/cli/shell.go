package cli

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"pysel/internal/activation"
	"pysel/internal/shellenv"
)

func newShellCmd() *cobra.Command {
	var opts activateOptions
	cmd := &cobra.Command{
		Use:   "shell [VERSION]",
		Short: "Start a subshell with the best matching distribution active",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, args, &opts)
		},
	}
	opts.filter.register(cmd)
	cmd.Flags().StringVar(&opts.home, "home", "", "Set PYTHONHOME to this directory")
	cmd.Flags().BoolVar(&opts.noUserBase, "no-user-base", false, "Leave PYTHONUSERBASE alone")
	return cmd
}

// subshell returns the interactive shell to start and the shell kind whose
// prompt variable it reads.
func subshell() (string, shellenv.Shell) {
	if runtime.GOOS == "windows" {
		if comspec := os.Getenv("COMSPEC"); comspec != "" {
			return comspec, shellenv.Cmd
		}
		return "cmd.exe", shellenv.Cmd
	}
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh, shellenv.Posix
	}
	return "/bin/sh", shellenv.Posix
}

func runShell(cmd *cobra.Command, args []string, opts *activateOptions) error {
	s, err := loadSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	filter, err := opts.filter.resolve(cmd, args, s.cfg.Defaults)
	if err != nil {
		return err
	}

	program, kind := subshell()
	// The child inherits this process's environment, so activate in place.
	if p, ok := os.LookupEnv(shellenv.PromptVar); ok {
		_ = os.Unsetenv(shellenv.PromptVar)
		_ = os.Setenv(promptVariable(kind), p)
	}
	m, err := activation.Shared(s.managerConfig(activation.OSEnv{}, kind))
	if err != nil {
		return corruptState(err)
	}
	svc, err := s.service(cmd, m)
	if err != nil {
		return err
	}

	home := opts.home
	if !cmd.Flags().Changed("home") {
		home = s.cfg.Activation.Home
	}
	ctx := commandContext(cmd)
	sel, err := svc.Activate(ctx, filter, activation.Options{
		Home:       home,
		NoUserBase: opts.noUserBase || !s.cfg.Activation.UserBaseEnabled(),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Starting %s with %s active; exit to return.\n", program, sel.Distribution.DisplayName())

	child := exec.CommandContext(ctx, program)
	child.Env = os.Environ()
	child.Stdin = cmd.InOrStdin()
	child.Stdout = cmd.OutOrStdout()
	child.Stderr = cmd.ErrOrStderr()
	runErr := child.Run()

	if err := m.Deactivate(ctx); err != nil {
		s.logger.Warn("deactivate", "err", err)
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		// The shell's exit status is the user's business.
		return nil
	}
	if runErr != nil {
		return fmt.Errorf("run %s: %w", program, runErr)
	}
	return nil
}

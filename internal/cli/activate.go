package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"pysel/internal/activation"
	"pysel/internal/distribution"
	"pysel/internal/tui"
)

type activateOptions struct {
	filter      filterFlags
	home        string
	noUserBase  bool
	shell       string
	interactive bool
}

func newActivateCmd() *cobra.Command {
	var opts activateOptions
	cmd := &cobra.Command{
		Use:   "activate [VERSION]",
		Short: "Print a script that activates the best matching distribution",
		Long: "Print a script that activates the best matching distribution in the calling shell.\n" +
			"Use the wrapper from `pysel init` so the script is evaluated for you.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActivate(cmd, args, &opts)
		},
	}
	opts.filter.register(cmd)
	cmd.Flags().StringVar(&opts.home, "home", "", "Set PYTHONHOME to this directory")
	cmd.Flags().BoolVar(&opts.noUserBase, "no-user-base", false, "Leave PYTHONUSERBASE alone")
	cmd.Flags().StringVar(&opts.shell, "shell", "", "Shell to emit for: posix, powershell or cmd")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "Choose interactively when several distributions match")
	return cmd
}

func runActivate(cmd *cobra.Command, args []string, opts *activateOptions) error {
	s, err := loadSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	filter, err := opts.filter.resolve(cmd, args, s.cfg.Defaults)
	if err != nil {
		return err
	}
	sh, err := s.shell(opts.shell)
	if err != nil {
		return err
	}

	env := shellEnv(sh)
	before := env.Snapshot()
	m, err := s.manager(env, sh)
	if err != nil {
		return err
	}
	svc, err := s.service(cmd, m)
	if err != nil {
		return err
	}
	if opts.interactive && tui.IsTerminal(cmd.InOrStdin()) {
		svc.Chooser = func(ctx context.Context, ranked []distribution.Distribution) (distribution.Distribution, error) {
			return tui.Choose(ctx, cmd.InOrStdin(), cmd.ErrOrStderr(), "Select a Python distribution", ranked)
		}
	}

	home := opts.home
	if !cmd.Flags().Changed("home") {
		home = s.cfg.Activation.Home
	}
	noUserBase := opts.noUserBase || !s.cfg.Activation.UserBaseEnabled()

	sel, err := svc.Activate(commandContext(cmd), filter, activation.Options{Home: home, NoUserBase: noUserBase})
	if err != nil {
		return err
	}
	if err := s.emitScript(cmd.OutOrStdout(), sh, before, env); err != nil {
		return err
	}

	errOut := cmd.ErrOrStderr()
	if sel.Ambiguous() && svc.Chooser == nil {
		fmt.Fprintf(errOut, "%d distributions match %s; using the first. Narrow the filter or pass -i to choose.\n", sel.Matches, filter)
	}
	nested := ""
	if m.Nested() {
		nested = " (conda environment " + m.State().NestedName + ")"
	}
	fmt.Fprintf(errOut, "Activated %s at %s%s\n", sel.Distribution.DisplayName(), sel.Distribution.InstallPath, nested)
	return nil
}

func newDeactivateCmd() *cobra.Command {
	var shellFlag string
	cmd := &cobra.Command{
		Use:   "deactivate",
		Short: "Print a script that restores the environment from before activation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDeactivate(cmd, shellFlag)
		},
	}
	cmd.Flags().StringVar(&shellFlag, "shell", "", "Shell to emit for: posix, powershell or cmd")
	return cmd
}

func runDeactivate(cmd *cobra.Command, shellFlag string) error {
	s, err := loadSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	sh, err := s.shell(shellFlag)
	if err != nil {
		return err
	}

	env := shellEnv(sh)
	before := env.Snapshot()
	m, err := s.manager(env, sh)
	if err != nil {
		return err
	}
	sel, wasActive := m.Selection()
	if err := m.Deactivate(commandContext(cmd)); err != nil {
		return err
	}
	if err := s.emitScript(cmd.OutOrStdout(), sh, before, env); err != nil {
		return err
	}
	if wasActive {
		fmt.Fprintf(cmd.ErrOrStderr(), "Deactivated %s\n", sel.DisplayName())
	} else {
		fmt.Fprintln(cmd.ErrOrStderr(), "No distribution is active")
	}
	return nil
}

func newCurrentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show the active distribution",
		Args:  cobra.NoArgs,
		RunE:  runCurrent,
	}
}

func runCurrent(cmd *cobra.Command, _ []string) error {
	s, err := loadSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	sh, err := s.shell("")
	if err != nil {
		return err
	}
	m, err := s.manager(shellEnv(sh), sh)
	if err != nil {
		return err
	}
	sel, ok := m.Selection()
	out := cmd.OutOrStdout()
	if outputJSON {
		var payload any
		if ok {
			payload = sel
		}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}
	if !ok {
		return fmt.Errorf("no distribution is active")
	}
	fmt.Fprintf(out, "%s\n%s\n", sel.DisplayName(), sel.InstallPath)
	return nil
}

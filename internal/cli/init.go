package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"pysel/internal/shellenv"
)

func newInitCmd() *cobra.Command {
	shells := make([]string, 0, len(shellenv.Shells))
	for _, sh := range shellenv.Shells {
		shells = append(shells, string(sh))
	}
	return &cobra.Command{
		Use:       "init [" + strings.Join(shells, "|") + "]",
		Short:     "Print the shell function that lets activate and deactivate change your shell",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: shells,
		RunE:      runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	var sh shellenv.Shell
	if len(args) > 0 {
		parsed, err := shellenv.ParseShell(args[0])
		if err != nil {
			return err
		}
		sh = parsed
	} else {
		sh = shellenv.Detect(os.LookupEnv)
	}

	exe, err := os.Executable()
	if err != nil {
		exe = "pysel"
	}
	script, err := shellenv.Init(sh, exe)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), script)
	return nil
}

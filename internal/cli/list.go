package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"pysel/internal/distribution"
	"pysel/internal/tui"
)

type listEntry struct {
	distribution.Distribution
	Active bool `json:"active"`
}

func newListCmd() *cobra.Command {
	var ff filterFlags
	var plain bool
	cmd := &cobra.Command{
		Use:     "list [VERSION]",
		Aliases: []string{"ls"},
		Short:   "List installed Python distributions, best match first",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, args, &ff, plain)
		},
	}
	ff.register(cmd)
	cmd.Flags().BoolVar(&plain, "plain", false, "Disable colours")
	return cmd
}

func runList(cmd *cobra.Command, args []string, ff *filterFlags, plain bool) error {
	s, err := loadSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	filter, err := ff.resolve(cmd, args, s.cfg.Defaults)
	if err != nil {
		return err
	}

	sh, err := s.shell("")
	if err != nil {
		return err
	}
	m, err := s.manager(shellEnv(sh), sh)
	if err != nil {
		return err
	}
	svc, err := s.service(cmd, m)
	if err != nil {
		return err
	}

	ranked, err := svc.List(commandContext(cmd), filter)
	if err != nil {
		return err
	}
	activeKey := ""
	if sel, ok := m.Selection(); ok {
		activeKey = sel.Key()
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		entries := make([]listEntry, 0, len(ranked))
		for _, d := range ranked {
			entries = append(entries, listEntry{Distribution: d, Active: d.Key() == activeKey})
		}
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if len(ranked) == 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "No Python distributions match %s\n", filter)
		return nil
	}
	return tui.RenderTable(out, ranked, activeKey, tui.DetectMode(out, plain, false) == tui.ModeTUI)
}

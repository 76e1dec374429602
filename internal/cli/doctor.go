package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"pysel/internal/activation"
	"pysel/internal/config"
	"pysel/internal/distribution"
	"pysel/internal/paths"
	"pysel/internal/shellenv"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, discovery and the shell session",
		Args:  cobra.NoArgs,
		RunE:  runDoctor,
	}
}

type healthCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warning", "error"
	Summary string `json:"summary"`
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	pp, err := paths.Resolve(configPath)
	if err != nil {
		return err
	}

	var checks []healthCheck

	cfg, cfgErr := config.Load(pp.ConfigFile)
	configCheck := checkConfig(cfg, cfgErr)
	checks = append(checks, configCheck)

	if configCheck.Status == "error" {
		// Discovery runs on the configuration.
		return writeDoctorResult(cmd, pp.ConfigFile, checks)
	}

	s, err := loadSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	checks = append(checks, checkSources(s))

	var found []distribution.Distribution
	if d, err := s.discoverer(cmd.ErrOrStderr()); err == nil {
		found = d.Discover(commandContext(cmd))
	}
	checks = append(checks, checkInterpreters(found))

	state, hasState := os.LookupEnv(stateVar)
	checks = append(checks, checkActivation(state, hasState))

	sh, shErr := s.shell("")
	checks = append(checks, checkShell(sh, shErr))

	return writeDoctorResult(cmd, pp.ConfigFile, checks)
}

func checkConfig(cfg config.Config, cfgErr error) healthCheck {
	if cfgErr != nil {
		return healthCheck{Name: "Config", Status: "error", Summary: cfgErr.Error()}
	}

	var warnings, errors int
	for _, v := range cfg.Validate() {
		switch v.Level {
		case "warning":
			warnings++
		case "error":
			errors++
		}
	}

	summary := fmt.Sprintf("log level %s, probe timeout %s", cfg.Log.Level, cfg.Probe.Timeout)
	if errors > 0 {
		return healthCheck{Name: "Config", Status: "error", Summary: fmt.Sprintf("%s; %d errors", summary, errors)}
	}
	if warnings > 0 {
		return healthCheck{Name: "Config", Status: "warning", Summary: fmt.Sprintf("%s; %d warnings", summary, warnings)}
	}
	return healthCheck{Name: "Config", Status: "ok", Summary: summary}
}

func checkSources(s *session) healthCheck {
	var parts []string
	if s.cfg.Discovery.NativeRegistryEnabled() {
		parts = append(parts, "native registry")
	}
	if n := len(s.cfg.Discovery.RegistryFiles); n > 0 {
		parts = append(parts, fmt.Sprintf("%d registry files", n))
	}
	if s.cfg.Discovery.ArcGISEnabled() {
		parts = append(parts, "ArcGIS")
	}
	if _, err := s.source(); err != nil {
		return healthCheck{Name: "Sources", Status: "error", Summary: err.Error()}
	}
	if len(parts) == 0 {
		return healthCheck{Name: "Sources", Status: "warning", Summary: "every source is disabled"}
	}
	return healthCheck{Name: "Sources", Status: "ok", Summary: joinComma(parts)}
}

// checkInterpreters warns when one install directory is registered under
// more than one root or tag.
func checkInterpreters(found []distribution.Distribution) healthCheck {
	if len(found) == 0 {
		return healthCheck{Name: "Pythons", Status: "warning", Summary: "no installed distributions found"}
	}
	seen := make(map[string]int, len(found))
	var dirs []string
	for _, d := range found {
		dir := filepath.Clean(d.InstallPath)
		if runtime.GOOS == "windows" {
			dir = strings.ToLower(dir)
		}
		if seen[dir]++; seen[dir] == 2 {
			dirs = append(dirs, d.InstallPath)
		}
	}
	summary := fmt.Sprintf("%d found", len(found))
	if len(dirs) > 0 {
		return healthCheck{
			Name:    "Pythons",
			Status:  "warning",
			Summary: fmt.Sprintf("%s, registered more than once: %s", summary, joinComma(dirs)),
		}
	}
	return healthCheck{Name: "Pythons", Status: "ok", Summary: summary}
}

func checkActivation(encoded string, present bool) healthCheck {
	if !present {
		return healthCheck{Name: "Session", Status: "ok", Summary: "nothing active"}
	}
	st, err := activation.DecodeState(encoded)
	if err != nil {
		return healthCheck{Name: "Session", Status: "error", Summary: fmt.Sprintf("%s is corrupt: %v", stateVar, err)}
	}
	if !st.Active || st.Selection == nil {
		return healthCheck{Name: "Session", Status: "ok", Summary: "nothing active"}
	}
	summary := st.Selection.DisplayName() + " active"
	if st.Nested {
		summary += ", conda environment " + st.NestedName
	}
	return healthCheck{Name: "Session", Status: "ok", Summary: summary}
}

func checkShell(sh shellenv.Shell, err error) healthCheck {
	if err != nil {
		return healthCheck{Name: "Shell", Status: "error", Summary: err.Error()}
	}
	return healthCheck{Name: "Shell", Status: "ok", Summary: fmt.Sprintf("%s (run `pysel init %s` in your profile)", sh, sh)}
}

func writeDoctorResult(cmd *cobra.Command, configFile string, checks []healthCheck) error {
	if outputJSON {
		data, err := json.MarshalIndent(checks, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	bold := lipgloss.NewStyle().Bold(true).Inline(true)
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Inline(true)
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Inline(true)
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Inline(true)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, bold.Render("PYSEL HEALTH:")+" "+configFile)

	for _, c := range checks {
		var statusStr string
		switch c.Status {
		case "ok":
			statusStr = green.Render("OK")
		case "warning":
			statusStr = yellow.Render("WARN")
		case "error":
			statusStr = red.Render("ERROR")
		}
		fmt.Fprintf(out, "  %-12s %s    %s\n", c.Name+":", statusStr, c.Summary)
	}

	return nil
}

func joinComma(items []string) string {
	if len(items) == 0 {
		return ""
	}
	result := items[0]
	for _, item := range items[1:] {
		result += ", " + item
	}
	return result
}

// Package shellenv turns environment changes into scripts a shell can
// evaluate, and prints the wrapper functions that do the evaluating.
package shellenv

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

type Shell string

const (
	Posix      Shell = "posix"
	PowerShell Shell = "powershell"
	Cmd        Shell = "cmd"
)

// Shells lists the supported shells.
var Shells = []Shell{Posix, PowerShell, Cmd}

// ParseShell accepts a shell kind or a common shell binary name.
func ParseShell(name string) (Shell, error) {
	switch strings.ToLower(strings.TrimSuffix(strings.TrimSpace(name), ".exe")) {
	case "posix", "sh", "bash", "zsh", "dash", "ksh":
		return Posix, nil
	case "powershell", "pwsh", "ps":
		return PowerShell, nil
	case "cmd":
		return Cmd, nil
	}
	return "", fmt.Errorf("unsupported shell %q (want posix, powershell or cmd)", name)
}

// Detect guesses the calling shell from its environment.
func Detect(lookup func(string) (string, bool)) Shell {
	if v, ok := lookup("SHELL"); ok && v != "" {
		return Posix
	}
	if runtime.GOOS != "windows" {
		return Posix
	}
	if v, ok := lookup("PSModulePath"); ok && v != "" {
		return PowerShell
	}
	return Cmd
}

// Change is one variable difference between two environments.
type Change struct {
	Name  string
	Value string
	Unset bool
}

// Diff returns the changes that turn before into after, ordered by name.
func Diff(before, after map[string]string) []Change {
	var out []Change
	for name, value := range after {
		if old, ok := before[name]; !ok || old != value {
			out = append(out, Change{Name: name, Value: value})
		}
	}
	for name := range before {
		if _, ok := after[name]; !ok {
			out = append(out, Change{Name: name, Unset: true})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Script renders changes for the given shell.
func Script(sh Shell, changes []Change) (string, error) {
	var b strings.Builder
	for _, c := range changes {
		if !nameAllowed(sh, c.Name) {
			return "", fmt.Errorf("cannot export variable %q", c.Name)
		}
		var line string
		switch sh {
		case Posix:
			if c.Unset {
				line = "unset " + c.Name
				break
			}
			q, err := syntax.Quote(c.Value, syntax.LangPOSIX)
			if err != nil {
				return "", fmt.Errorf("quote %s: %w", c.Name, err)
			}
			line = "export " + c.Name + "=" + q
		case PowerShell:
			if c.Unset {
				line = "Remove-Item -LiteralPath " + psQuote("Env:"+c.Name) + " -ErrorAction SilentlyContinue"
				break
			}
			line = "${env:" + c.Name + "} = " + psQuote(c.Value)
		case Cmd:
			if strings.ContainsAny(c.Value, "\r\n") {
				return "", fmt.Errorf("cmd cannot hold a multi-line value in %s", c.Name)
			}
			line = `set "` + c.Name + "=" + c.Value + `"`
			if c.Unset {
				line = `set "` + c.Name + `="`
			}
		default:
			return "", fmt.Errorf("unsupported shell %q", sh)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// validName rejects names no shell can assign, such as the per-drive
// "=C:" entries Windows keeps.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9' && i > 0:
		case r == '(' || r == ')':
			// ProgramFiles(x86) and friends.
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func nameAllowed(sh Shell, name string) bool {
	if !validName(name) {
		return false
	}
	return sh != Posix || !strings.ContainsAny(name, "()")
}

// Exportable drops changes to names shells cannot assign. The second result
// lists what was dropped.
func Exportable(sh Shell, changes []Change) ([]Change, []string) {
	var keep []Change
	var dropped []string
	for _, c := range changes {
		if !nameAllowed(sh, c.Name) {
			dropped = append(dropped, c.Name)
			continue
		}
		keep = append(keep, c)
	}
	return keep, dropped
}

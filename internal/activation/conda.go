package activation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"

	"pysel/internal/logx"
	"pysel/internal/probe"
)

// CondaVariables are backed up before a nested activation. The activation
// script may touch more; those are backed up as they are applied.
var CondaVariables = []string{
	"CONDA_EXE",
	"CONDA_PREFIX",
	"CONDA_DEFAULT_ENV",
	"CONDA_PROMPT_MODIFIER",
	"CONDA_SHLVL",
	"CONDA_PYTHON_EXE",
	"_CE_M",
	"_CE_CONDA",
	"_CONDA_ROOT",
	"_CONDA_EXE",
}

// NestedRequest describes an installation that carries its own environment
// manager.
type NestedRequest struct {
	Executable string
	Module     string
	Prefix     string
	Environ    []string
}

// Assignment is one variable change requested by a nested activation.
type Assignment struct {
	Name  string
	Value string
	Unset bool
}

// NestedActivator loads an installation's own environment manager and
// reports the variable changes its activation makes.
type NestedActivator interface {
	Activate(ctx context.Context, req NestedRequest) ([]Assignment, error)
	Deactivate(ctx context.Context) error
}

// CondaDialect selects which of conda's shell integrations is asked for the
// activation script.
type CondaDialect string

const (
	// CondaPosix prints a posix script on stdout.
	CondaPosix CondaDialect = "posix"
	// CondaCmd writes a batch file and prints its path.
	CondaCmd CondaDialect = "cmd.exe"
)

// DefaultCondaDialect is cmd.exe on Windows and posix elsewhere.
func DefaultCondaDialect() CondaDialect {
	if runtime.GOOS == "windows" {
		return CondaCmd
	}
	return CondaPosix
}

// Conda asks conda for its activation script and interprets the variable
// assignments in it without running a shell.
type Conda struct {
	Runner  probe.Runner
	Timeout time.Duration
	Logger  *log.Logger
	// Dialect defaults to DefaultCondaDialect.
	Dialect CondaDialect
}

func (c *Conda) Activate(ctx context.Context, req NestedRequest) ([]Assignment, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = probe.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	runner := c.Runner
	if runner == nil {
		runner = probe.CmdRunner{}
	}
	dialect := c.Dialect
	if dialect == "" {
		dialect = DefaultCondaDialect()
	}
	logger := logx.OrDiscard(c.Logger)
	logger.Debug("conda activate", "exe", req.Executable, "prefix", req.Prefix, "dialect", dialect)

	args := []string{"shell." + string(dialect), "activate", req.Prefix}
	result, err := runner.Run(ctx, req.Executable, args, probe.RunOptions{Env: req.Environ})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("conda activate: timed out after %s", timeout)
		}
		msg := strings.TrimSpace(string(result.Stderr))
		if msg != "" {
			return nil, fmt.Errorf("conda activate: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("conda activate: %w", err)
	}

	if dialect == CondaCmd {
		return readCmdScript(strings.TrimSpace(string(result.Stdout)), logger)
	}
	return ParseAssignments(string(result.Stdout), req.Environ, logger)
}

// readCmdScript parses and removes the batch file conda wrote.
func readCmdScript(path string, logger *log.Logger) ([]Assignment, error) {
	if path == "" {
		return nil, errors.New("conda activate: no script path on stdout")
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("remove conda script", "path", path, "err", err)
		}
	}()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("conda activate: %w", err)
	}
	return ParseCmdAssignments(string(data), logger), nil
}

// ParseCmdAssignments extracts SET commands from a cmd.exe batch script.
// Conda writes values fully expanded, either as @SET "NAME=VALUE" or, to
// clear a variable, as @SET NAME=. Other commands, such as calls to
// activate.d scripts, are skipped.
func ParseCmdAssignments(script string, logger *log.Logger) []Assignment {
	logger = logx.OrDiscard(logger)
	var out []Assignment
	for _, line := range strings.Split(script, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "@")
		if line == "" {
			continue
		}
		verb, rest, _ := strings.Cut(line, " ")
		if !strings.EqualFold(verb, "SET") {
			logger.Debug("skipping command", "cmd", verb)
			continue
		}
		rest = strings.TrimSpace(rest)
		if len(rest) >= 2 && rest[0] == '"' && rest[len(rest)-1] == '"' {
			rest = rest[1 : len(rest)-1]
		}
		name, value, ok := strings.Cut(rest, "=")
		if !ok || name == "" || strings.HasPrefix(name, "/") {
			logger.Debug("skipping set", "line", line)
			continue
		}
		if value == "" {
			out = append(out, Assignment{Name: name, Unset: true})
			continue
		}
		out = append(out, Assignment{Name: name, Value: value})
	}
	return out
}

// Deactivate has nothing to unload: every variable conda set is rolled back
// by the Manager.
func (c *Conda) Deactivate(context.Context) error { return nil }

// ParseAssignments extracts exports, plain assignments and unsets from a
// posix script. Values are expanded against environ updated with the
// earlier assignments. Other commands, such as sourcing activate.d
// scripts, are skipped.
func ParseAssignments(script string, environ []string, logger *log.Logger) ([]Assignment, error) {
	logger = logx.OrDiscard(logger)
	file, err := syntax.NewParser().Parse(strings.NewReader(script), "activate")
	if err != nil {
		return nil, fmt.Errorf("parse activation script: %w", err)
	}

	env := NewMapEnv(environ)
	var out []Assignment

	assign := func(a *syntax.Assign) {
		if a.Name == nil {
			return
		}
		name := a.Name.Value
		value := ""
		if a.Naked {
			v, ok := env.LookupEnv(name)
			if !ok {
				return
			}
			value = v
		} else if a.Value != nil {
			cfg := &expand.Config{Env: expand.ListEnviron(env.Environ()...)}
			v, err := expand.Literal(cfg, a.Value)
			if err != nil {
				logger.Warn("skipping assignment", "name", name, "err", err)
				return
			}
			value = v
		}
		_ = env.Setenv(name, value)
		out = append(out, Assignment{Name: name, Value: value})
	}

	for _, stmt := range file.Stmts {
		switch cmd := stmt.Cmd.(type) {
		case *syntax.DeclClause:
			if cmd.Variant == nil || cmd.Variant.Value != "export" {
				continue
			}
			for _, a := range cmd.Args {
				assign(a)
			}
		case *syntax.CallExpr:
			if len(cmd.Args) == 0 {
				for _, a := range cmd.Assigns {
					assign(a)
				}
				continue
			}
			if cmd.Args[0].Lit() != "unset" {
				logger.Debug("skipping command", "cmd", cmd.Args[0].Lit())
				continue
			}
			for _, w := range cmd.Args[1:] {
				name := w.Lit()
				if name == "-f" {
					break
				}
				if name == "" || strings.HasPrefix(name, "-") {
					continue
				}
				_ = env.Unsetenv(name)
				out = append(out, Assignment{Name: name, Unset: true})
			}
		}
	}
	return out, nil
}

var _ NestedActivator = (*Conda)(nil)

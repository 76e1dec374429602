// Package probe asks an interpreter about itself by running short inline
// queries with a bounded timeout.
package probe

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"pysel/internal/logx"
)

// DefaultTimeout bounds every interpreter invocation.
const DefaultTimeout = 10 * time.Second

// Platform is the joint answer of the platform query.
type Platform struct {
	Bits    int
	Version string
}

// Interpreter queries interpreter metadata.
type Interpreter interface {
	QueryVersion(ctx context.Context, exe string) (string, error)
	QueryPlatform(ctx context.Context, exe string) (Platform, error)
	// QueryUserScriptsDir returns the per-user scripts directory as seen with
	// the given environment.
	QueryUserScriptsDir(ctx context.Context, exe string, environ []string) (string, error)
}

const (
	versionScript     = `import sys; print("%d.%d.%d" % sys.version_info[:3])`
	platformScript    = `import struct, sys; print(struct.calcsize("P") * 8, "%d.%d.%d" % sys.version_info[:3])`
	userScriptsScript = `import os, sysconfig; s = sysconfig.get_preferred_scheme("user") if hasattr(sysconfig, "get_preferred_scheme") else os.name + "_user"; print(sysconfig.get_path("scripts", s))`
)

// isolatedFlags ignore PYTHON* variables and the user site directory so a
// broken user environment cannot change the answer.
var isolatedFlags = []string{"-E", "-s"}

var versionPattern = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+$`)

// Exec runs the real interpreter.
type Exec struct {
	Runner  Runner
	Timeout time.Duration
	Logger  *log.Logger
}

// NewExec returns a probe using CmdRunner and the given timeout.
func NewExec(timeout time.Duration, logger *log.Logger) *Exec {
	return &Exec{Runner: CmdRunner{}, Timeout: timeout, Logger: logger}
}

func (e *Exec) run(ctx context.Context, exe string, args []string, environ []string) (string, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	runner := e.Runner
	if runner == nil {
		runner = CmdRunner{}
	}
	logger := logx.OrDiscard(e.Logger)
	logger.Debug("probe", "exe", exe, "args", strings.Join(args, " "))

	result, err := runner.Run(ctx, exe, args, RunOptions{Env: environ})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%s: timed out after %s", exe, timeout)
		}
		stderr := firstLine(strings.TrimSpace(string(result.Stderr)))
		if stderr != "" {
			return "", fmt.Errorf("%s: %w: %s", exe, err, stderr)
		}
		return "", fmt.Errorf("%s: %w", exe, err)
	}
	return firstLine(strings.TrimSpace(string(result.Stdout))), nil
}

func (e *Exec) QueryVersion(ctx context.Context, exe string) (string, error) {
	out, err := e.run(ctx, exe, append(append([]string{}, isolatedFlags...), "-c", versionScript), nil)
	if err != nil {
		return "", err
	}
	return ParseVersion(out)
}

func (e *Exec) QueryPlatform(ctx context.Context, exe string) (Platform, error) {
	out, err := e.run(ctx, exe, append(append([]string{}, isolatedFlags...), "-c", platformScript), nil)
	if err != nil {
		return Platform{}, err
	}
	return ParsePlatform(out)
}

func (e *Exec) QueryUserScriptsDir(ctx context.Context, exe string, environ []string) (string, error) {
	out, err := e.run(ctx, exe, []string{"-s", "-c", userScriptsScript}, environ)
	if err != nil {
		return "", err
	}
	if out == "" || out == "None" {
		return "", errors.New("interpreter reported no user scripts directory")
	}
	return out, nil
}

var _ Interpreter = (*Exec)(nil)

// ParseVersion validates a major.minor.micro answer.
func ParseVersion(out string) (string, error) {
	v := strings.TrimSpace(out)
	if !versionPattern.MatchString(v) {
		return "", fmt.Errorf("unexpected version output %q", out)
	}
	return v, nil
}

// ParsePlatform parses "<bits> <major.minor.micro>".
func ParsePlatform(out string) (Platform, error) {
	fields := strings.Fields(out)
	if len(fields) != 2 {
		return Platform{}, fmt.Errorf("unexpected platform output %q", out)
	}
	bits, err := strconv.Atoi(fields[0])
	if err != nil || (bits != 32 && bits != 64) {
		return Platform{}, fmt.Errorf("unexpected pointer width %q", fields[0])
	}
	version, err := ParseVersion(fields[1])
	if err != nil {
		return Platform{}, err
	}
	return Platform{Bits: bits, Version: version}, nil
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return strings.TrimRight(text[:idx], "\r")
	}
	return text
}

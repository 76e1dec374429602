package activation

import (
	"os"
	"runtime"
	"sort"
	"strings"
)

// Env is the variable table an activation mutates. The Manager is the only
// writer; everything else reads it through Environ.
type Env interface {
	LookupEnv(key string) (string, bool)
	Setenv(key, value string) error
	Unsetenv(key string) error
	Environ() []string
}

// OSEnv is the environment of the running process.
type OSEnv struct{}

func (OSEnv) LookupEnv(key string) (string, bool) { return os.LookupEnv(key) }

func (OSEnv) Setenv(key, value string) error { return os.Setenv(key, value) }

func (OSEnv) Unsetenv(key string) error { return os.Unsetenv(key) }

func (OSEnv) Environ() []string { return os.Environ() }

var _ Env = OSEnv{}

// MapEnv is a detached copy of an environment. Names compare
// case-insensitively on Windows, matching the host's rules.
type MapEnv struct {
	vars map[string]string
	fold bool
}

// NewMapEnv builds a MapEnv from KEY=VALUE pairs.
func NewMapEnv(environ []string) *MapEnv {
	e := &MapEnv{vars: make(map[string]string, len(environ)), fold: runtime.GOOS == "windows"}
	for _, kv := range environ {
		name, value, ok := splitPair(kv)
		if !ok {
			continue
		}
		_ = e.Setenv(name, value)
	}
	return e
}

// splitPair splits KEY=VALUE. Windows keeps per-drive entries such as
// "=C:=C:\dir" whose name starts with '='.
func splitPair(kv string) (string, string, bool) {
	if kv == "" {
		return "", "", false
	}
	idx := strings.IndexByte(kv[1:], '=')
	if idx < 0 {
		return "", "", false
	}
	idx++
	return kv[:idx], kv[idx+1:], true
}

func (e *MapEnv) key(name string) string {
	if !e.fold {
		return name
	}
	if _, ok := e.vars[name]; ok {
		return name
	}
	for k := range e.vars {
		if strings.EqualFold(k, name) {
			return k
		}
	}
	return name
}

func (e *MapEnv) LookupEnv(key string) (string, bool) {
	v, ok := e.vars[e.key(key)]
	return v, ok
}

func (e *MapEnv) Setenv(key, value string) error {
	e.vars[e.key(key)] = value
	return nil
}

func (e *MapEnv) Unsetenv(key string) error {
	delete(e.vars, e.key(key))
	return nil
}

// Environ returns the variables sorted by name.
func (e *MapEnv) Environ() []string {
	names := make([]string, 0, len(e.vars))
	for k := range e.vars {
		names = append(names, k)
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, k := range names {
		out = append(out, k+"="+e.vars[k])
	}
	return out
}

// Snapshot returns a copy of the variables.
func (e *MapEnv) Snapshot() map[string]string {
	out := make(map[string]string, len(e.vars))
	for k, v := range e.vars {
		out[k] = v
	}
	return out
}

var _ Env = (*MapEnv)(nil)

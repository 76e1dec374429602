// Package activation switches the environment to one interpreter
// installation and back.
package activation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"pysel/internal/distribution"
	"pysel/internal/logx"
	"pysel/internal/paths"
	"pysel/internal/probe"
)

// Variables the activation owns outright.
const (
	PathVar     = "PATH"
	HomeVar     = "PYTHONHOME"
	UserBaseVar = "PYTHONUSERBASE"
)

// Options tune a single activation.
type Options struct {
	// Home is exported as PYTHONHOME when set; otherwise PYTHONHOME is
	// removed for the duration of the activation.
	Home string
	// NoUserBase leaves PYTHONUSERBASE untouched.
	NoUserBase bool
}

// Config wires a Manager. Zero fields get host defaults.
type Config struct {
	Env     Env
	Probe   probe.Interpreter
	Layout  paths.Layout
	AppData string
	Nested  NestedActivator
	Prompt  PromptHook
	Hooks   []DeactivateHook
	// StateVar, when set, names a variable the encoded State is written to
	// so a later process can resume the activation.
	StateVar string
	Logger   *log.Logger
}

// Manager owns the activation state. At most one distribution is active per
// Manager.
type Manager struct {
	env      Env
	probe    probe.Interpreter
	layout   paths.Layout
	appData  string
	nested   NestedActivator
	prompt   PromptHook
	hooks    []DeactivateHook
	stateVar string
	logger   *log.Logger

	state State
}

// New builds a Manager, resuming any activation recorded in StateVar.
func New(cfg Config) (*Manager, error) {
	m := &Manager{
		env:      cfg.Env,
		probe:    cfg.Probe,
		layout:   cfg.Layout,
		appData:  cfg.AppData,
		nested:   cfg.Nested,
		prompt:   cfg.Prompt,
		hooks:    cfg.Hooks,
		stateVar: cfg.StateVar,
		logger:   logx.OrDiscard(cfg.Logger),
		state:    newState(),
	}
	if m.env == nil {
		m.env = OSEnv{}
	}
	if m.probe == nil {
		m.probe = probe.NewExec(probe.DefaultTimeout, cfg.Logger)
	}
	if len(m.layout.Executables) == 0 {
		m.layout = paths.HostLayout()
	}
	if m.nested == nil {
		m.nested = &Conda{Logger: cfg.Logger}
	}
	if m.prompt == nil {
		m.prompt = EnvPrompt{Env: m.env, Name: DefaultPromptVariable()}
	}
	if m.hooks == nil {
		m.hooks = []DeactivateHook{VenvHook{PromptVariable: m.prompt.Variable()}}
	}

	if m.stateVar != "" {
		if encoded, ok := m.env.LookupEnv(m.stateVar); ok && encoded != "" {
			s, err := DecodeState(encoded)
			if err != nil {
				return nil, err
			}
			m.state = s
		}
	}
	return m, nil
}

// Active reports whether a distribution is active.
func (m *Manager) Active() bool { return m.state.Active }

// Nested reports whether the active distribution's own environment manager
// was activated too.
func (m *Manager) Nested() bool { return m.state.Nested }

// Selection returns the active distribution.
func (m *Manager) Selection() (distribution.Distribution, bool) {
	if !m.state.Active || m.state.Selection == nil {
		return distribution.Distribution{}, false
	}
	return *m.state.Selection, true
}

// State returns a copy of the rollback state.
func (m *Manager) State() State { return m.state.Clone() }

// UserBase is the per-distribution user base directory under appData.
func UserBase(appData string, d distribution.Distribution) string {
	return filepath.Join(appData, "Python", fmt.Sprintf("%s-%s-%d", d.VendorName(), d.Tag, int(d.Width)))
}

// Activate makes d the active distribution. An already active distribution
// is deactivated first. A failure part way through rolls back every change.
func (m *Manager) Activate(ctx context.Context, d distribution.Distribution, opts Options) error {
	if d.InstallPath == "" {
		return errors.New("activate: distribution has no install path")
	}
	if m.state.Active {
		if err := m.Deactivate(ctx); err != nil {
			return err
		}
	}

	m.state = newState()
	if err := m.apply(ctx, d, opts); err != nil {
		if rerr := m.restore(); rerr != nil {
			m.logger.Error("rollback failed", "err", rerr)
		}
		m.state = newState()
		return err
	}
	m.logger.Info("activated", "distribution", d.DisplayName(), "nested", m.state.Nested)
	return nil
}

func (m *Manager) apply(ctx context.Context, d distribution.Distribution, opts Options) error {
	scripts := filepath.Join(d.InstallPath, m.layout.ScriptsDir)
	if err := m.prependPath(d.InstallPath, scripts); err != nil {
		return err
	}

	if opts.Home != "" {
		if err := m.set(HomeVar, opts.Home); err != nil {
			return err
		}
	} else if err := m.unset(HomeVar); err != nil {
		return err
	}

	if !opts.NoUserBase && m.appData != "" {
		if err := m.set(UserBaseVar, UserBase(m.appData, d)); err != nil {
			return err
		}
	}

	if d.ExecutablePath != "" {
		dir, err := m.probe.QueryUserScriptsDir(ctx, d.ExecutablePath, m.env.Environ())
		switch {
		case err != nil:
			m.logger.Warn("user scripts directory unavailable", "exe", d.ExecutablePath, "err", err)
		case dir != "":
			if err := m.prependPath(dir); err != nil {
				return err
			}
		}
	}

	if exe, module, ok := m.layout.CondaArtifacts(d.InstallPath); ok {
		if err := m.activateNested(ctx, d, exe, module); err != nil {
			m.logger.Warn("nested activation failed; continuing without it", "err", err)
		}
	}

	m.state.Active = true
	sel := d
	m.state.Selection = &sel
	return m.persist()
}

// activateNested runs the installation's own environment manager. On
// failure every change it made is undone, so the caller can continue with a
// plain activation.
func (m *Manager) activateNested(ctx context.Context, d distribution.Distribution, exe, module string) (err error) {
	start := len(m.state.Order)
	promptWasSaved := m.state.PromptSaved
	promptChanged := false
	// Values of variables backed up before this step, as they were when it
	// began.
	var prior []namedValue
	seen := map[string]bool{}
	track := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		if _, backed := m.state.Vars[name]; backed {
			v, ok := m.env.LookupEnv(name)
			prior = append(prior, namedValue{name: name, saved: Saved{Value: v, Set: ok}})
		}
	}
	defer func() {
		if err == nil {
			return
		}
		if promptChanged {
			if perr := m.restorePrompt(); perr != nil {
				m.logger.Warn("restore prompt", "err", perr)
			}
		}
		if !promptWasSaved {
			m.state.Prompt = Saved{}
			m.state.PromptSaved = false
		}
		if rerr := m.rollback(start, prior); rerr != nil {
			m.logger.Error("nested rollback failed", "err", rerr)
		}
		m.state.NestedName = ""
	}()

	for _, name := range CondaVariables {
		track(name)
		m.backup(name)
	}
	if !m.state.PromptSaved {
		v, ok := m.prompt.Get()
		m.state.Prompt = Saved{Value: v, Set: ok}
		m.state.PromptSaved = true
	}

	bootstrap := []struct{ name, value string }{
		{"CONDA_EXE", exe},
		{"_CE_M", ""},
		{"_CE_CONDA", ""},
		{"_CONDA_ROOT", d.InstallPath},
		{"_CONDA_EXE", exe},
	}
	for _, b := range bootstrap {
		if err = m.set(b.name, b.value); err != nil {
			return err
		}
	}

	changes, err := m.nested.Activate(ctx, NestedRequest{
		Executable: exe,
		Module:     module,
		Prefix:     d.InstallPath,
		Environ:    m.env.Environ(),
	})
	if err != nil {
		return err
	}

	for _, c := range changes {
		switch {
		case c.Name == m.prompt.Variable():
			if c.Unset {
				continue
			}
			promptChanged = true
			err = m.prompt.Set(c.Value)
		case c.Unset:
			track(c.Name)
			err = m.unset(c.Name)
		default:
			track(c.Name)
			err = m.set(c.Name, c.Value)
		}
		if err != nil {
			return err
		}
		if c.Name == "CONDA_DEFAULT_ENV" && !c.Unset {
			m.state.NestedName = c.Value
		}
	}
	m.state.Nested = true
	return nil
}

type namedValue struct {
	name  string
	saved Saved
}

// rollback undoes a partial step: variables first backed up at or after
// Order[start] go back to their backup and leave the state, and the others
// in prior get their step-start values back.
func (m *Manager) rollback(start int, prior []namedValue) error {
	var errs []error
	put := func(name string, saved Saved) {
		var err error
		if saved.Set {
			err = m.env.Setenv(name, saved.Value)
		} else {
			err = m.env.Unsetenv(name)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", name, err))
		}
	}
	for i := len(m.state.Order) - 1; i >= start; i-- {
		name := m.state.Order[i]
		put(name, m.state.Vars[name])
		delete(m.state.Vars, name)
	}
	m.state.Order = m.state.Order[:start]
	for i := len(prior) - 1; i >= 0; i-- {
		put(prior[i].name, prior[i].saved)
	}
	return errors.Join(errs...)
}

// Deactivate runs the deactivate hooks and, if a distribution is active,
// restores every variable it touched. It is a no-op beyond the hooks when
// nothing is active.
func (m *Manager) Deactivate(ctx context.Context) error {
	for _, h := range m.hooks {
		if err := h.Deactivate(m.env); err != nil {
			m.logger.Warn("deactivate hook failed", "err", err)
		}
	}
	if !m.state.Active {
		return nil
	}

	if m.state.Nested {
		if err := m.nested.Deactivate(ctx); err != nil {
			m.logger.Warn("nested deactivate failed", "err", err)
		}
		if err := m.restorePrompt(); err != nil {
			return err
		}
	}

	name := ""
	if m.state.Selection != nil {
		name = m.state.Selection.DisplayName()
	}
	if err := m.restore(); err != nil {
		return err
	}
	m.state = newState()
	m.logger.Info("deactivated", "distribution", name)
	return nil
}

// restorePrompt puts back the captured prompt, or the layout's minimal
// prompt when none was captured.
func (m *Manager) restorePrompt() error {
	prompt := m.layout.DefaultPrompt
	if m.state.PromptSaved && m.state.Prompt.Set {
		prompt = m.state.Prompt.Value
	}
	if err := m.prompt.Set(prompt); err != nil {
		return fmt.Errorf("restore prompt: %w", err)
	}
	return nil
}

// restore puts back touched variables, last touched first.
func (m *Manager) restore() error {
	var errs []error
	for i := len(m.state.Order) - 1; i >= 0; i-- {
		name := m.state.Order[i]
		saved := m.state.Vars[name]
		var err error
		if saved.Set {
			err = m.env.Setenv(name, saved.Value)
		} else {
			err = m.env.Unsetenv(name)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) backup(name string) {
	if _, ok := m.state.Vars[name]; ok {
		return
	}
	v, ok := m.env.LookupEnv(name)
	m.state.Vars[name] = Saved{Value: v, Set: ok}
	m.state.Order = append(m.state.Order, name)
}

func (m *Manager) set(name, value string) error {
	m.backup(name)
	if err := m.env.Setenv(name, value); err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	return nil
}

func (m *Manager) unset(name string) error {
	m.backup(name)
	if err := m.env.Unsetenv(name); err != nil {
		return fmt.Errorf("unset %s: %w", name, err)
	}
	return nil
}

func (m *Manager) prependPath(dirs ...string) error {
	current, _ := m.env.LookupEnv(PathVar)
	parts := append([]string(nil), dirs...)
	if current != "" {
		parts = append(parts, current)
	}
	return m.set(PathVar, strings.Join(parts, string(os.PathListSeparator)))
}

// persist records the state in StateVar. The variable is backed up before
// encoding so restoring the state also removes it.
func (m *Manager) persist() error {
	if m.stateVar == "" {
		return nil
	}
	m.backup(m.stateVar)
	encoded, err := m.state.Encode()
	if err != nil {
		return err
	}
	return m.set(m.stateVar, encoded)
}

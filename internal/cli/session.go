package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"pysel/internal/activation"
	"pysel/internal/app"
	"pysel/internal/config"
	"pysel/internal/discovery"
	"pysel/internal/distribution"
	"pysel/internal/logx"
	"pysel/internal/paths"
	"pysel/internal/probe"
	"pysel/internal/registry"
	"pysel/internal/shellenv"
	"pysel/internal/tui"
)

// stateVar carries the encoded activation state between invocations in one
// shell session.
const stateVar = "PYSEL_STATE"

// session is the configuration and wiring shared by every command run.
type session struct {
	paths  paths.AppPaths
	cfg    config.Config
	layout paths.Layout
	logger *log.Logger
	closer io.Closer
}

func loadSession(cmd *cobra.Command) (*session, error) {
	pp, err := paths.Resolve(configPath)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		return nil, err
	}
	results := cfg.Validate()
	if err := config.Err(results); err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	var (
		logOut io.Writer = cmd.ErrOrStderr()
		closer io.Closer
	)
	if cfg.Log.Dir != "" {
		file, err := logx.OpenFile(cfg.Log.Dir)
		if err != nil {
			return nil, err
		}
		logOut = io.MultiWriter(logOut, file)
		closer = file
	}
	logger, err := logx.New(logOut, level)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, err
	}
	for _, r := range results {
		if r.Level == "warning" {
			logger.Warn(r.Message)
		}
	}

	return &session{
		paths:  pp,
		cfg:    cfg,
		layout: paths.HostLayout(),
		logger: logger,
		closer: closer,
	}, nil
}

// Close releases the log file, if any.
func (s *session) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func (s *session) source() (registry.Source, error) {
	var base registry.Source = registry.NewTree()
	if s.cfg.Discovery.NativeRegistryEnabled() {
		base = registry.Default()
	}
	return registry.LoadFiles(base, s.cfg.Discovery.RegistryFiles)
}

func (s *session) prober() *probe.Exec {
	return probe.NewExec(s.cfg.Probe.Timeout, s.logger)
}

// discoverer shows a spinner on errOut while probing when errOut is a
// terminal.
func (s *session) discoverer(errOut io.Writer) (app.Discoverer, error) {
	src, err := s.source()
	if err != nil {
		return nil, err
	}
	d := discovery.New(discovery.Options{
		Source:   src,
		Layout:   s.layout,
		Probe:    s.prober(),
		Registry: true,
		ArcGIS:   s.cfg.Discovery.ArcGISEnabled(),
		Logger:   s.logger,
	})
	if !verbose && tui.DetectMode(errOut, false, false) == tui.ModeTUI {
		return spinnerDiscoverer{inner: d, out: errOut}, nil
	}
	return d, nil
}

type spinnerDiscoverer struct {
	inner app.Discoverer
	out   io.Writer
}

func (s spinnerDiscoverer) Discover(ctx context.Context) []distribution.Distribution {
	sw := tui.NewStatusWriter(s.out, "Discovering Python interpreters")
	defer sw.Stop()
	return s.inner.Discover(ctx)
}

func (s *session) managerConfig(env activation.Env, sh shellenv.Shell) activation.Config {
	return activation.Config{
		Env:      env,
		Probe:    s.prober(),
		Layout:   s.layout,
		AppData:  s.paths.AppData,
		Nested:   &activation.Conda{Timeout: s.cfg.Probe.Timeout, Logger: s.logger},
		Prompt:   activation.EnvPrompt{Env: env, Name: promptVariable(sh)},
		StateVar: stateVar,
		Logger:   s.logger,
	}
}

// manager builds an activation manager over env that resumes any state
// recorded by an earlier invocation.
func (s *session) manager(env activation.Env, sh shellenv.Shell) (*activation.Manager, error) {
	m, err := activation.New(s.managerConfig(env, sh))
	if err != nil {
		return nil, corruptState(err)
	}
	return m, nil
}

func corruptState(err error) error {
	return fmt.Errorf("%s is corrupt; unset it to start over: %w", stateVar, err)
}

func (s *session) service(cmd *cobra.Command, m *activation.Manager) (*app.Service, error) {
	d, err := s.discoverer(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return &app.Service{Discoverer: d, Activator: m, Logger: s.logger}, nil
}

func (s *session) shell(flag string) (shellenv.Shell, error) {
	switch {
	case flag != "":
		return shellenv.ParseShell(flag)
	case s.cfg.Shell != "":
		return shellenv.ParseShell(s.cfg.Shell)
	}
	return shellenv.Detect(os.LookupEnv), nil
}

func promptVariable(sh shellenv.Shell) string {
	if sh == shellenv.Posix {
		return "PS1"
	}
	return "PROMPT"
}

// shellEnv copies the process environment. The wrapper passes the shell's
// unexported prompt in shellenv.PromptVar; it is moved to the prompt
// variable so activation sees it.
func shellEnv(sh shellenv.Shell) *activation.MapEnv {
	env := activation.NewMapEnv(os.Environ())
	if p, ok := env.LookupEnv(shellenv.PromptVar); ok {
		_ = env.Unsetenv(shellenv.PromptVar)
		_ = env.Setenv(promptVariable(sh), p)
	}
	return env
}

// emitScript prints the script that turns before into env's current state.
func (s *session) emitScript(w io.Writer, sh shellenv.Shell, before map[string]string, env *activation.MapEnv) error {
	changes, dropped := shellenv.Exportable(sh, shellenv.Diff(before, env.Snapshot()))
	for _, name := range dropped {
		s.logger.Debug("not exportable", "name", name)
	}
	script, err := shellenv.Script(sh, changes)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, script)
	return err
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// filterFlags are the selection flags shared by list, activate and shell.
type filterFlags struct {
	vendor  string
	tag     string
	version string
	bits    string
	scope   string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.vendor, "vendor", "", "Vendor prefix, case-insensitive (e.g. PythonCore)")
	cmd.Flags().StringVar(&f.tag, "tag", "", "Tag prefix (e.g. 3.11)")
	cmd.Flags().StringVar(&f.version, "version", "", "Reported version prefix (e.g. 3.11.4)")
	cmd.Flags().StringVar(&f.bits, "bits", "", "Platform width: 32 or 64")
	cmd.Flags().StringVar(&f.scope, "scope", "", "Registration scope: user or machine")
}

// resolve layers the command line over the configured defaults. A
// positional argument is a version prefix.
func (f *filterFlags) resolve(cmd *cobra.Command, args []string, defaults config.FilterConfig) (distribution.Filter, error) {
	filter, err := defaults.Filter()
	if err != nil {
		return distribution.Filter{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("vendor") {
		filter.Vendor = f.vendor
	}
	if flags.Changed("tag") {
		filter.Tag = f.tag
	}
	if flags.Changed("version") {
		filter.Version = f.version
	}
	if len(args) > 0 {
		if flags.Changed("version") {
			return distribution.Filter{}, fmt.Errorf("give the version either as an argument or with --version, not both")
		}
		filter.Version = args[0]
	}
	if flags.Changed("bits") {
		if filter.Width, err = distribution.ParseWidth(f.bits); err != nil {
			return distribution.Filter{}, err
		}
	}
	if flags.Changed("scope") {
		if filter.Scope, err = distribution.ParseScope(f.scope); err != nil {
			return distribution.Filter{}, err
		}
	}
	return filter, nil
}

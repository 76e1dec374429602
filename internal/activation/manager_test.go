package activation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"pysel/internal/distribution"
	"pysel/internal/paths"
	"pysel/internal/probe"
)

type fakeProbe struct {
	userScripts string
	err         error
	environ     []string
}

func (f *fakeProbe) QueryVersion(context.Context, string) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeProbe) QueryPlatform(context.Context, string) (probe.Platform, error) {
	return probe.Platform{}, errors.New("not used")
}

func (f *fakeProbe) QueryUserScriptsDir(_ context.Context, _ string, environ []string) (string, error) {
	f.environ = environ
	return f.userScripts, f.err
}

type fakeNested struct {
	changes     []Assignment
	err         error
	activated   int
	deactivated int
	req         NestedRequest
}

func (f *fakeNested) Activate(_ context.Context, req NestedRequest) ([]Assignment, error) {
	f.activated++
	f.req = req
	return f.changes, f.err
}

func (f *fakeNested) Deactivate(context.Context) error {
	f.deactivated++
	return nil
}

func baseEnv() *MapEnv {
	return NewMapEnv([]string{
		"PATH=/usr/bin:/bin",
		"PYTHONHOME=",
		"PS1=orig$ ",
		"HOME=/home/u",
	})
}

func dist(dir, tag string) distribution.Distribution {
	return distribution.Distribution{
		Vendor:          "PythonCore",
		Tag:             tag,
		InstallPath:     dir,
		ExecutablePath:  filepath.Join(dir, "bin", "python3"),
		ReportedVersion: tag + ".0",
		Width:           distribution.Width64,
		Scope:           distribution.ScopeCurrentUser,
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, nil, 0o755); err != nil {
		t.Fatal(err)
	}
}

// condaInstall creates an install directory carrying conda artifacts.
func condaInstall(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	layout := paths.PosixLayout(true)
	touch(t, filepath.Join(dir, layout.CondaExecutable))
	touch(t, filepath.Join(dir, layout.CondaModule))
	return dir
}

func newManager(t *testing.T, env Env, cfg Config) *Manager {
	t.Helper()
	cfg.Env = env
	if cfg.Probe == nil {
		cfg.Probe = &fakeProbe{}
	}
	cfg.Layout = paths.PosixLayout(true)
	if cfg.Nested == nil {
		cfg.Nested = &fakeNested{}
	}
	if cfg.AppData == "" {
		cfg.AppData = "/appdata"
	}
	m, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestActivateThenDeactivateRestoresEnvironment(t *testing.T) {
	env := baseEnv()
	before := env.Snapshot()
	m := newManager(t, env, Config{})

	d := dist("/opt/py312", "3.12")
	if err := m.Activate(context.Background(), d, Options{}); err != nil {
		t.Fatal(err)
	}

	path, _ := env.LookupEnv("PATH")
	if want := "/opt/py312:/opt/py312/bin:/usr/bin:/bin"; path != want {
		t.Fatalf("PATH = %q, want %q", path, want)
	}
	if _, ok := env.LookupEnv("PYTHONHOME"); ok {
		t.Fatal("PYTHONHOME must be removed while active")
	}
	if ub, _ := env.LookupEnv("PYTHONUSERBASE"); ub != filepath.Join("/appdata", "Python", "PythonCore-3.12-64") {
		t.Fatalf("unexpected user base %q", ub)
	}
	if sel, ok := m.Selection(); !ok || sel.Tag != "3.12" {
		t.Fatalf("unexpected selection %+v", sel)
	}

	if err := m.Deactivate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := env.Snapshot(); !reflect.DeepEqual(got, before) {
		t.Fatalf("environment not restored:\n got %v\nwant %v", got, before)
	}
	// Empty-but-set survives the round trip.
	if v, ok := env.LookupEnv("PYTHONHOME"); !ok || v != "" {
		t.Fatalf("PYTHONHOME = %q set=%v, want empty and set", v, ok)
	}
	if m.Active() {
		t.Fatal("manager still active")
	}
}

func TestActivateWithHomeAndNoUserBase(t *testing.T) {
	env := baseEnv()
	m := newManager(t, env, Config{})
	if err := m.Activate(context.Background(), dist("/opt/py", "3.11"), Options{Home: "/opt/py", NoUserBase: true}); err != nil {
		t.Fatal(err)
	}
	if v, _ := env.LookupEnv("PYTHONHOME"); v != "/opt/py" {
		t.Fatalf("PYTHONHOME = %q", v)
	}
	if _, ok := env.LookupEnv("PYTHONUSERBASE"); ok {
		t.Fatal("PYTHONUSERBASE must be left alone")
	}
}

func TestReactivateDeactivatesFirst(t *testing.T) {
	env := baseEnv()
	before := env.Snapshot()
	m := newManager(t, env, Config{})

	if err := m.Activate(context.Background(), dist("/opt/a", "3.11"), Options{}); err != nil {
		t.Fatal(err)
	}
	if err := m.Activate(context.Background(), dist("/opt/b", "3.12"), Options{}); err != nil {
		t.Fatal(err)
	}
	path, _ := env.LookupEnv("PATH")
	if strings.Contains(path, "/opt/a") {
		t.Fatalf("first activation leaked into PATH: %q", path)
	}
	if !strings.HasPrefix(path, "/opt/b:") {
		t.Fatalf("second activation missing from PATH: %q", path)
	}

	if err := m.Deactivate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := env.Snapshot(); !reflect.DeepEqual(got, before) {
		t.Fatalf("environment not restored after two activations:\n got %v\nwant %v", got, before)
	}
}

func TestDeactivateWhenInactiveIsNoop(t *testing.T) {
	env := baseEnv()
	before := env.Snapshot()
	m := newManager(t, env, Config{})
	if err := m.Deactivate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := env.Snapshot(); !reflect.DeepEqual(got, before) {
		t.Fatalf("inactive deactivate changed the environment: %v", got)
	}
}

func TestActivateRequiresInstallPath(t *testing.T) {
	env := baseEnv()
	before := env.Snapshot()
	m := newManager(t, env, Config{})
	if err := m.Activate(context.Background(), distribution.Distribution{Tag: "x"}, Options{}); err == nil {
		t.Fatal("expected an error")
	}
	if got := env.Snapshot(); !reflect.DeepEqual(got, before) {
		t.Fatalf("failed activation changed the environment: %v", got)
	}
}

func TestUserScriptsDirPrepended(t *testing.T) {
	env := baseEnv()
	fp := &fakeProbe{userScripts: "/home/u/.local/bin"}
	m := newManager(t, env, Config{Probe: fp})
	if err := m.Activate(context.Background(), dist("/opt/py", "3.12"), Options{}); err != nil {
		t.Fatal(err)
	}
	path, _ := env.LookupEnv("PATH")
	if !strings.HasPrefix(path, "/home/u/.local/bin:/opt/py:") {
		t.Fatalf("user scripts not first on PATH: %q", path)
	}
	// The query sees the environment with the user base already applied.
	found := false
	for _, kv := range fp.environ {
		if strings.HasPrefix(kv, "PYTHONUSERBASE=") {
			found = true
		}
	}
	if !found {
		t.Fatal("user scripts query did not see PYTHONUSERBASE")
	}
}

func TestUserScriptsQueryFailureIsNotFatal(t *testing.T) {
	env := baseEnv()
	m := newManager(t, env, Config{Probe: &fakeProbe{err: errors.New("boom")}})
	if err := m.Activate(context.Background(), dist("/opt/py", "3.12"), Options{}); err != nil {
		t.Fatalf("activation should proceed, got %v", err)
	}
	if !m.Active() {
		t.Fatal("expected active")
	}
}

func TestPlainInstallDoesNotNest(t *testing.T) {
	env := baseEnv()
	nested := &fakeNested{}
	m := newManager(t, env, Config{Nested: nested})
	if err := m.Activate(context.Background(), dist(t.TempDir(), "3.12"), Options{}); err != nil {
		t.Fatal(err)
	}
	if m.Nested() || nested.activated != 0 {
		t.Fatal("plain install must not trigger nested activation")
	}
	for _, name := range CondaVariables {
		if _, ok := env.LookupEnv(name); ok {
			t.Fatalf("%s set without nested activation", name)
		}
	}
	if ps1, _ := env.LookupEnv("PS1"); ps1 != "orig$ " {
		t.Fatalf("prompt changed: %q", ps1)
	}
}

func TestNestedActivationAndRollback(t *testing.T) {
	dir := condaInstall(t)
	env := baseEnv()
	env.Setenv("CONDA_PREFIX_1", "/stale")
	before := env.Snapshot()

	nested := &fakeNested{changes: []Assignment{
		{Name: "CONDA_PREFIX", Value: dir},
		{Name: "CONDA_SHLVL", Value: "1"},
		{Name: "CONDA_DEFAULT_ENV", Value: "base"},
		{Name: "PS1", Value: "(base) orig$ "},
		{Name: "CONDA_PREFIX_1", Unset: true},
	}}
	m := newManager(t, env, Config{Nested: nested})
	if err := m.Activate(context.Background(), dist(dir, "3.10"), Options{}); err != nil {
		t.Fatal(err)
	}
	if !m.Nested() {
		t.Fatal("expected nested activation")
	}
	if nested.req.Prefix != dir || !strings.HasSuffix(nested.req.Executable, filepath.Join("bin", "conda")) {
		t.Fatalf("unexpected request %+v", nested.req)
	}
	if v, _ := env.LookupEnv("CONDA_PREFIX"); v != dir {
		t.Fatalf("CONDA_PREFIX = %q", v)
	}
	if v, _ := env.LookupEnv("_CONDA_ROOT"); v != dir {
		t.Fatalf("_CONDA_ROOT = %q", v)
	}
	if v, _ := env.LookupEnv("PS1"); v != "(base) orig$ " {
		t.Fatalf("PS1 = %q", v)
	}
	if _, ok := env.LookupEnv("CONDA_PREFIX_1"); ok {
		t.Fatal("CONDA_PREFIX_1 should be unset while active")
	}

	if err := m.Deactivate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if nested.deactivated != 1 {
		t.Fatalf("nested deactivate called %d times", nested.deactivated)
	}
	if got := env.Snapshot(); !reflect.DeepEqual(got, before) {
		t.Fatalf("environment not restored:\n got %v\nwant %v", got, before)
	}
}

func TestNestedPromptFallsBackToDefault(t *testing.T) {
	dir := condaInstall(t)
	env := NewMapEnv([]string{"PATH=/usr/bin"})
	nested := &fakeNested{changes: []Assignment{{Name: "PS1", Value: "(base) "}}}
	m := newManager(t, env, Config{Nested: nested})

	if err := m.Activate(context.Background(), dist(dir, "3.10"), Options{}); err != nil {
		t.Fatal(err)
	}
	if err := m.Deactivate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if v, _ := env.LookupEnv("PS1"); v != paths.PosixLayout(true).DefaultPrompt {
		t.Fatalf("PS1 = %q, want the built-in prompt", v)
	}
}

func TestNestedFailureContinuesUnnested(t *testing.T) {
	dir := condaInstall(t)
	env := baseEnv()
	before := env.Snapshot()
	m := newManager(t, env, Config{Nested: &fakeNested{err: errors.New("conda exploded")}})

	if err := m.Activate(context.Background(), dist(dir, "3.10"), Options{}); err != nil {
		t.Fatal(err)
	}
	if !m.Active() || m.Nested() {
		t.Fatalf("expected active and not nested, got active=%v nested=%v", m.Active(), m.Nested())
	}
	for _, name := range []string{"CONDA_EXE", "_CE_M", "_CE_CONDA", "_CONDA_ROOT", "_CONDA_EXE"} {
		if v, ok := env.LookupEnv(name); ok {
			t.Errorf("%s = %q while active, want unset", name, v)
		}
		if _, ok := m.State().Vars[name]; ok {
			t.Errorf("%s still recorded in the activation state", name)
		}
	}
	if path, _ := env.LookupEnv("PATH"); !strings.HasPrefix(path, dir) {
		t.Errorf("PATH = %q, want %s first", path, dir)
	}
	if v, _ := env.LookupEnv("PS1"); v != "orig$ " {
		t.Errorf("PS1 = %q", v)
	}
	if st := m.State(); st.PromptSaved {
		t.Error("prompt still recorded after failed nested step")
	}

	if err := m.Deactivate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := env.Snapshot(); !reflect.DeepEqual(got, before) {
		t.Fatalf("environment not restored:\n got %v\nwant %v", got, before)
	}
}

// refusingEnv fails every write to one variable.
type refusingEnv struct {
	*MapEnv
	name string
}

func (e refusingEnv) Setenv(key, value string) error {
	if key == e.name {
		return errors.New("read-only variable")
	}
	return e.MapEnv.Setenv(key, value)
}

func TestNestedPartialAssignmentsRolledBack(t *testing.T) {
	dir := condaInstall(t)
	env := baseEnv()
	before := env.Snapshot()
	nested := &fakeNested{changes: []Assignment{
		{Name: "PATH", Value: "/conda/bin:/usr/bin:/bin"},
		{Name: "CONDA_PREFIX", Value: dir},
		{Name: "PS1", Value: "(base) orig$ "},
		{Name: "CONDA_EXTRA", Value: "1"},
		{Name: "LOCKED", Value: "x"},
		{Name: "CONDA_SHLVL", Value: "1"},
	}}
	m := newManager(t, refusingEnv{MapEnv: env, name: "LOCKED"}, Config{Nested: nested})

	if err := m.Activate(context.Background(), dist(dir, "3.10"), Options{}); err != nil {
		t.Fatal(err)
	}
	if m.Nested() {
		t.Fatal("nested recorded despite failing assignment")
	}
	path, _ := env.LookupEnv("PATH")
	if strings.HasPrefix(path, "/conda/bin") || !strings.HasPrefix(path, dir) {
		t.Errorf("PATH = %q, want the plain activation value", path)
	}
	for _, name := range []string{"CONDA_PREFIX", "CONDA_EXTRA", "LOCKED", "CONDA_SHLVL", "CONDA_EXE"} {
		if v, ok := env.LookupEnv(name); ok {
			t.Errorf("%s = %q after rollback", name, v)
		}
	}
	if v, _ := env.LookupEnv("PS1"); v != "orig$ " {
		t.Errorf("PS1 = %q after rollback", v)
	}
	for _, name := range m.State().Order {
		if name == "CONDA_EXTRA" || name == "LOCKED" {
			t.Errorf("%s still recorded in the activation state", name)
		}
	}

	if err := m.Deactivate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := env.Snapshot(); !reflect.DeepEqual(got, before) {
		t.Fatalf("environment not restored:\n got %v\nwant %v", got, before)
	}
}

func TestVenvHookRunsBeforeRestore(t *testing.T) {
	env := baseEnv()
	before := env.Snapshot()
	m := newManager(t, env, Config{})
	if err := m.Activate(context.Background(), dist("/opt/py", "3.12"), Options{}); err != nil {
		t.Fatal(err)
	}

	// A virtual environment layered on top of the activation.
	path, _ := env.LookupEnv("PATH")
	env.Setenv("_OLD_VIRTUAL_PATH", path)
	env.Setenv("PATH", "/proj/.venv/bin:"+path)
	env.Setenv("VIRTUAL_ENV", "/proj/.venv")
	env.Setenv("_OLD_VIRTUAL_PS1", "orig$ ")
	env.Setenv("PS1", "(.venv) orig$ ")

	if err := m.Deactivate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := env.Snapshot(); !reflect.DeepEqual(got, before) {
		t.Fatalf("environment not restored:\n got %v\nwant %v", got, before)
	}
}

func TestVenvHookWithoutActivation(t *testing.T) {
	env := NewMapEnv([]string{
		"PATH=/proj/.venv/bin:/usr/bin",
		"_OLD_VIRTUAL_PATH=/usr/bin",
		"VIRTUAL_ENV=/proj/.venv",
	})
	m := newManager(t, env, Config{})
	if err := m.Deactivate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if v, _ := env.LookupEnv("PATH"); v != "/usr/bin" {
		t.Fatalf("PATH = %q", v)
	}
	for _, name := range []string{"VIRTUAL_ENV", "_OLD_VIRTUAL_PATH"} {
		if _, ok := env.LookupEnv(name); ok {
			t.Fatalf("%s still set", name)
		}
	}
}

func TestStateVarResumesAcrossManagers(t *testing.T) {
	env := baseEnv()
	before := env.Snapshot()

	first := newManager(t, env, Config{StateVar: "PYSEL_STATE"})
	if err := first.Activate(context.Background(), dist("/opt/py", "3.12"), Options{}); err != nil {
		t.Fatal(err)
	}
	if _, ok := env.LookupEnv("PYSEL_STATE"); !ok {
		t.Fatal("state was not recorded")
	}

	second := newManager(t, env, Config{StateVar: "PYSEL_STATE"})
	sel, ok := second.Selection()
	if !ok || sel.InstallPath != "/opt/py" {
		t.Fatalf("resumed selection = %+v ok=%v", sel, ok)
	}
	if err := second.Deactivate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := env.Snapshot(); !reflect.DeepEqual(got, before) {
		t.Fatalf("environment not restored:\n got %v\nwant %v", got, before)
	}
}

func TestNewRejectsCorruptState(t *testing.T) {
	env := NewMapEnv([]string{"PYSEL_STATE=!!not-base64!!"})
	if _, err := New(Config{Env: env, StateVar: "PYSEL_STATE", Layout: paths.PosixLayout(true)}); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestStateEncodeKeepsUnsetDistinctFromEmpty(t *testing.T) {
	s := newState()
	s.Active = true
	s.Vars["EMPTY"] = Saved{Value: "", Set: true}
	s.Vars["MISSING"] = Saved{}
	s.Order = []string{"EMPTY", "MISSING"}
	d := dist("/opt/py", "3.12")
	s.Selection = &d

	encoded, err := s.Encode()
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeState(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Vars["EMPTY"].Set || got.Vars["MISSING"].Set {
		t.Fatalf("set flags lost: %+v", got.Vars)
	}
	if got.Selection == nil || got.Selection.Key() != d.Key() {
		t.Fatalf("selection lost: %+v", got.Selection)
	}
}

package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, nil, 0o755); err != nil {
		t.Fatal(err)
	}
}

func TestResolveConfigOverride(t *testing.T) {
	custom := filepath.Join(t.TempDir(), "custom.yaml")
	pp, err := Resolve(custom)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if pp.ConfigFile != custom {
		t.Fatalf("expected config file %s, got %s", custom, pp.ConfigFile)
	}
	if pp.AppData == "" {
		t.Fatal("expected app data dir")
	}
}

func TestFindExecutablePreferenceOrder(t *testing.T) {
	dir := t.TempDir()
	layout := PosixLayout(true)

	if _, ok := layout.FindExecutable(dir); ok {
		t.Fatal("expected no executable in empty dir")
	}

	touch(t, filepath.Join(dir, "bin", "python"))
	touch(t, filepath.Join(dir, "bin", "python3"))
	got, ok := layout.FindExecutable(dir)
	if !ok {
		t.Fatal("expected executable")
	}
	if got != filepath.Join(dir, "bin", "python3") {
		t.Fatalf("expected bin/python3 to win, got %s", got)
	}
}

func TestFindExecutableIgnoresDirectories(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "python.exe"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, ok := WindowsLayout(true).FindExecutable(dir); ok {
		t.Fatal("a directory must not count as an executable")
	}
}

func TestCondaArtifacts(t *testing.T) {
	dir := t.TempDir()
	layout := WindowsLayout(true)

	touch(t, filepath.Join(dir, "Scripts", "conda.exe"))
	if _, _, ok := layout.CondaArtifacts(dir); ok {
		t.Fatal("module missing, expected not ok")
	}

	touch(t, filepath.Join(dir, "shell", "condabin", "Conda.psm1"))
	exe, module, ok := layout.CondaArtifacts(dir)
	if !ok {
		t.Fatal("expected both artifacts")
	}
	if exe != filepath.Join(dir, "Scripts", "conda.exe") || module != filepath.Join(dir, "shell", "condabin", "Conda.psm1") {
		t.Fatalf("unexpected artifacts %s %s", exe, module)
	}
}

func TestDirAndFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	touch(t, file)

	if ok, err := DirExists(dir); err != nil || !ok {
		t.Fatalf("DirExists(%s) = %v, %v", dir, ok, err)
	}
	if ok, err := FileExists(dir); err != nil || ok {
		t.Fatalf("FileExists(dir) = %v, %v", ok, err)
	}
	if ok, err := FileExists(filepath.Join(dir, "missing")); err != nil || ok {
		t.Fatalf("FileExists(missing) = %v, %v", ok, err)
	}
}

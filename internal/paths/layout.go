package paths

import (
	"math/bits"
	"os"
	"path/filepath"
	"runtime"
)

// Layout describes where things live inside an interpreter installation on
// this kind of host.
type Layout struct {
	// Executables are candidate interpreter paths relative to the install
	// directory, in preference order.
	Executables []string
	// ScriptsDir is the console entry point directory.
	ScriptsDir string
	// CondaExecutable and CondaModule are the artifacts that mark an
	// installation as carrying its own conda environment manager.
	CondaExecutable string
	CondaModule     string
	// DefaultPrompt is restored when no prompt was captured before a nested
	// activation.
	DefaultPrompt string
	// Is64BitHost is true when the operating system is 64-bit, even if this
	// process is not.
	Is64BitHost bool
}

// HostLayout returns the layout for the running operating system.
func HostLayout() Layout {
	if runtime.GOOS == "windows" {
		return WindowsLayout(is64BitHost())
	}
	return PosixLayout(is64BitHost())
}

// WindowsLayout matches the python.org and conda installers on Windows.
func WindowsLayout(is64 bool) Layout {
	return Layout{
		Executables:     []string{"python.exe"},
		ScriptsDir:      "Scripts",
		CondaExecutable: filepath.Join("Scripts", "conda.exe"),
		CondaModule:     filepath.Join("shell", "condabin", "Conda.psm1"),
		DefaultPrompt:   "$P$G",
		Is64BitHost:     is64,
	}
}

// PosixLayout matches prefix-style installations.
func PosixLayout(is64 bool) Layout {
	return Layout{
		Executables: []string{
			"python3",
			"python",
			filepath.Join("bin", "python3"),
			filepath.Join("bin", "python"),
		},
		ScriptsDir:      "bin",
		CondaExecutable: filepath.Join("bin", "conda"),
		CondaModule:     filepath.Join("etc", "profile.d", "conda.sh"),
		DefaultPrompt:   `\w\$ `,
		Is64BitHost:     is64,
	}
}

// FindExecutable returns the first layout executable present under dir.
func (l Layout) FindExecutable(dir string) (string, bool) {
	for _, rel := range l.Executables {
		candidate := filepath.Join(dir, rel)
		if IsFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// CondaArtifacts returns the nested manager executable and script module
// for an installation, and whether both exist.
func (l Layout) CondaArtifacts(dir string) (exe, module string, ok bool) {
	if l.CondaExecutable == "" || l.CondaModule == "" {
		return "", "", false
	}
	exe = filepath.Join(dir, l.CondaExecutable)
	module = filepath.Join(dir, l.CondaModule)
	return exe, module, IsFile(exe) && IsFile(module)
}

func is64BitHost() bool {
	if bits.UintSize == 64 {
		return true
	}
	// A 32-bit process on 64-bit Windows sees the native architecture here.
	return runtime.GOOS == "windows" && os.Getenv("PROCESSOR_ARCHITEW6432") != ""
}

package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "pysel"

// AppPaths captures canonical locations used by pysel.
type AppPaths struct {
	ConfigDir  string
	ConfigFile string
	// AppData is the per-user base directory that namespaced
	// PYTHONUSERBASE directories are created under.
	AppData string
}

// Resolve determines pysel's locations. A non-empty configFlag overrides the
// config file location.
func Resolve(configFlag string) (AppPaths, error) {
	appData, err := AppDataDir()
	if err != nil {
		return AppPaths{}, err
	}
	dir := filepath.Join(appData, appName)

	file := filepath.Join(dir, "config.yaml")
	if configFlag != "" {
		file, err = filepath.Abs(configFlag)
		if err != nil {
			return AppPaths{}, fmt.Errorf("resolve config path: %w", err)
		}
	}

	return AppPaths{
		ConfigDir:  dir,
		ConfigFile: file,
		AppData:    appData,
	}, nil
}

// AppDataDir returns %APPDATA% when set, otherwise the platform's per-user
// configuration directory.
func AppDataDir() (string, error) {
	if runtime.GOOS == "windows" {
		if dir := os.Getenv("APPDATA"); dir != "" {
			return dir, nil
		}
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("detect user config dir: %w", err)
	}
	return dir, nil
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

// IsFile is FileExists without the error, for probes where an unreadable
// path counts as missing.
func IsFile(path string) bool {
	ok, err := FileExists(path)
	return err == nil && ok
}

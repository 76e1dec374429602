//go:build windows

package registry

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sys/windows/registry"
)

// Windows reads the live system registry.
type Windows struct{}

// Default returns the system registry.
func Default() Source {
	return Windows{}
}

func (Windows) open(path string) (registry.Key, error) {
	parts := Split(path)
	if len(parts) == 0 {
		return 0, fmt.Errorf("empty key path: %w", ErrNotFound)
	}
	var root registry.Key
	switch strings.ToUpper(parts[0]) {
	case "HKEY_CURRENT_USER", "HKCU":
		root = registry.CURRENT_USER
	case "HKEY_LOCAL_MACHINE", "HKLM":
		root = registry.LOCAL_MACHINE
	case "HKEY_USERS", "HKU":
		root = registry.USERS
	default:
		return 0, fmt.Errorf("unknown hive %q: %w", parts[0], ErrNotFound)
	}
	k, err := registry.OpenKey(root, strings.Join(parts[1:], `\`), registry.QUERY_VALUE|registry.ENUMERATE_SUB_KEYS)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return 0, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	return k, nil
}

func (w Windows) ListChildren(path string) ([]string, error) {
	k, err := w.open(path)
	if err != nil {
		return nil, err
	}
	defer k.Close()
	names, err := k.ReadSubKeyNames(-1)
	if err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", path, err)
	}
	return names, nil
}

func (w Windows) ReadValue(path, name string) (string, bool, error) {
	k, err := w.open(path)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	defer k.Close()
	v, valtype, err := k.GetStringValue(name)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read %s\\%s: %w", path, name, err)
	}
	if valtype == registry.EXPAND_SZ {
		if expanded, err := registry.ExpandString(v); err == nil {
			v = expanded
		}
	}
	return v, true, nil
}

var _ Source = Windows{}

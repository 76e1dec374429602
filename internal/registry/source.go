// Package registry abstracts the hierarchical registration store that Python
// installers write to. On Windows this is the system registry; elsewhere an
// equivalent tree can be loaded from YAML files.
package registry

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a key path does not exist.
var ErrNotFound = errors.New("registry key not found")

// Source is a read-only view of a registration tree. Paths are
// backslash-separated and start with a hive name such as
// HKEY_CURRENT_USER.
type Source interface {
	// ListChildren returns the names of the direct subkeys of path.
	ListChildren(path string) ([]string, error)
	// ReadValue returns the named value of the key at path. The empty name
	// selects the key's default value. ok is false when the key or value is
	// absent.
	ReadValue(path, name string) (value string, ok bool, err error)
}

// Join builds a key path from its elements.
func Join(elem ...string) string {
	parts := make([]string, 0, len(elem))
	for _, e := range elem {
		e = strings.Trim(e, `\/`)
		if e != "" {
			parts = append(parts, e)
		}
	}
	return strings.Join(parts, `\`)
}

// Split breaks a key path into its components. Forward slashes are accepted
// as separators so paths can be written portably in config files.
func Split(path string) []string {
	fields := strings.FieldsFunc(path, func(r rune) bool { return r == '\\' || r == '/' })
	return fields
}

// Multi consults several sources in order. ReadValue returns the first
// value found and ListChildren returns the union of all children.
type Multi []Source

func (m Multi) ListChildren(path string) ([]string, error) {
	var (
		names []string
		seen  = map[string]bool{}
		found bool
	)
	for _, src := range m {
		children, err := src.ListChildren(path)
		if err != nil {
			continue
		}
		found = true
		for _, c := range children {
			key := strings.ToLower(c)
			if seen[key] {
				continue
			}
			seen[key] = true
			names = append(names, c)
		}
	}
	if !found {
		return nil, ErrNotFound
	}
	return names, nil
}

func (m Multi) ReadValue(path, name string) (string, bool, error) {
	var firstErr error
	for _, src := range m {
		v, ok, err := src.ReadValue(path, name)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			return v, true, nil
		}
	}
	return "", false, firstErr
}

var _ Source = Multi(nil)

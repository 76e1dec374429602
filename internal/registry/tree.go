package registry

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Key is one node of an in-memory registration tree.
type Key struct {
	Values map[string]string `yaml:"values,omitempty"`
	Keys   map[string]*Key   `yaml:"keys,omitempty"`
}

func (k *Key) child(name string) *Key {
	if k == nil {
		return nil
	}
	if c, ok := k.Keys[name]; ok {
		return c
	}
	for n, c := range k.Keys {
		if strings.EqualFold(n, name) {
			return c
		}
	}
	return nil
}

func (k *Key) value(name string) (string, bool) {
	if k == nil {
		return "", false
	}
	if v, ok := k.Values[name]; ok {
		return v, true
	}
	for n, v := range k.Values {
		if strings.EqualFold(n, name) {
			return v, true
		}
	}
	return "", false
}

// Tree is an in-memory Source. Name lookups are case-insensitive like the
// Windows registry.
type Tree struct {
	root *Key
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{root: &Key{}}
}

// Mount places key at path, creating intermediate keys. An existing key at
// path is replaced.
func (t *Tree) Mount(path string, key *Key) {
	parts := Split(path)
	if len(parts) == 0 {
		t.root = key
		return
	}
	node := t.root
	for _, p := range parts[:len(parts)-1] {
		next := node.child(p)
		if next == nil {
			next = &Key{}
			if node.Keys == nil {
				node.Keys = map[string]*Key{}
			}
			node.Keys[p] = next
		}
		node = next
	}
	last := parts[len(parts)-1]
	if existing := node.child(last); existing != nil {
		for n := range node.Keys {
			if strings.EqualFold(n, last) {
				delete(node.Keys, n)
			}
		}
	}
	if node.Keys == nil {
		node.Keys = map[string]*Key{}
	}
	node.Keys[last] = key
}

// SetValue writes a value, creating keys along the way.
func (t *Tree) SetValue(path, name, value string) {
	node := t.lookup(path)
	if node == nil {
		node = &Key{}
		t.Mount(path, node)
	}
	if node.Values == nil {
		node.Values = map[string]string{}
	}
	node.Values[name] = value
}

func (t *Tree) lookup(path string) *Key {
	node := t.root
	for _, p := range Split(path) {
		node = node.child(p)
		if node == nil {
			return nil
		}
	}
	return node
}

func (t *Tree) ListChildren(path string) ([]string, error) {
	node := t.lookup(path)
	if node == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	names := make([]string, 0, len(node.Keys))
	for n := range node.Keys {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return strings.ToLower(names[i]) < strings.ToLower(names[j]) })
	return names, nil
}

func (t *Tree) ReadValue(path, name string) (string, bool, error) {
	v, ok := t.lookup(path).value(name)
	return v, ok, nil
}

var _ Source = (*Tree)(nil)

// LoadFile reads a YAML document whose top-level keys are key paths and whose
// values are Key nodes, and mounts each one into a new tree:
//
//	HKEY_CURRENT_USER\Software\Python:
//	  keys:
//	    PythonCore:
//	      keys:
//	        "3.12":
//	          keys:
//	            InstallPath:
//	              values:
//	                "": /opt/python/3.12
func LoadFile(path string) (*Tree, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry file: %w", err)
	}
	return Parse(contents)
}

// Parse builds a tree from the YAML layout described in LoadFile.
func Parse(contents []byte) (*Tree, error) {
	var doc map[string]*Key
	if err := yaml.Unmarshal(contents, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal registry file: %w", err)
	}
	t := NewTree()
	mounts := make([]string, 0, len(doc))
	for p := range doc {
		mounts = append(mounts, p)
	}
	// Shorter paths first so nested mounts are not clobbered by their parents.
	sort.Slice(mounts, func(i, j int) bool { return len(Split(mounts[i])) < len(Split(mounts[j])) })
	for _, p := range mounts {
		key := doc[p]
		if key == nil {
			key = &Key{}
		}
		t.Mount(p, key)
	}
	return t, nil
}

// LoadFiles loads every file and chains them behind base. Missing files are
// skipped.
func LoadFiles(base Source, files []string) (Source, error) {
	sources := Multi{}
	if base != nil {
		sources = append(sources, base)
	}
	for _, f := range files {
		tree, err := LoadFile(f)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		sources = append(sources, tree)
	}
	if len(sources) == 1 {
		return sources[0], nil
	}
	return sources, nil
}

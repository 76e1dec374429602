//go:build !windows

package registry

// Default returns an empty tree. Hosts without a system registry describe
// their installations through registry files instead.
func Default() Source {
	return NewTree()
}

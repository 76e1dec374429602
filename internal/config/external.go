package config

import "path/filepath"

// resolveExternalPath returns path as-is if absolute, otherwise joins it with baseDir.
func resolveExternalPath(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// resolveRegistryFiles makes every registry file path absolute relative to
// the directory holding the config file.
func (c *Config) resolveRegistryFiles(baseDir string) {
	for i, p := range c.Discovery.RegistryFiles {
		c.Discovery.RegistryFiles[i] = resolveExternalPath(baseDir, p)
	}
}

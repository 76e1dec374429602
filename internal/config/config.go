package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"pysel/internal/distribution"
)

// Config captures user preferences for discovery and activation.
type Config struct {
	Version    int              `yaml:"version"`
	Log        LogConfig        `yaml:"log"`
	Probe      ProbeConfig      `yaml:"probe"`
	Discovery  DiscoveryConfig  `yaml:"discovery"`
	Activation ActivationConfig `yaml:"activation"`
	Defaults   FilterConfig     `yaml:"defaults"`
	// Shell overrides shell detection for activate and deactivate output.
	Shell string `yaml:"shell"`
}

// LogConfig sets the log level: debug, info, warn or error. When Dir is set
// each run also writes its log to a timestamped file there.
type LogConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// ProbeConfig bounds interpreter queries.
type ProbeConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// DiscoveryConfig selects registration sources.
type DiscoveryConfig struct {
	NativeRegistry *bool `yaml:"native_registry,omitempty"`
	ArcGIS         *bool `yaml:"arcgis,omitempty"`
	// RegistryFiles are YAML registration trees layered over the native
	// registry. Relative paths resolve against the config file directory.
	RegistryFiles []string `yaml:"registry_files"`
}

// NativeRegistryEnabled reports whether the host registry is scanned.
func (d DiscoveryConfig) NativeRegistryEnabled() bool {
	return d.NativeRegistry == nil || *d.NativeRegistry
}

// ArcGISEnabled reports whether the ArcGIS Pro registration is scanned.
func (d DiscoveryConfig) ArcGISEnabled() bool {
	return d.ArcGIS == nil || *d.ArcGIS
}

// ActivationConfig holds defaults for activation options.
type ActivationConfig struct {
	UserBase *bool  `yaml:"user_base,omitempty"`
	Home     string `yaml:"home"`
}

// UserBaseEnabled reports whether PYTHONUSERBASE is set on activation.
func (a ActivationConfig) UserBaseEnabled() bool {
	return a.UserBase == nil || *a.UserBase
}

// FilterConfig is the filter applied when the command line gives none.
type FilterConfig struct {
	Vendor  string `yaml:"vendor"`
	Tag     string `yaml:"tag"`
	Version string `yaml:"version"`
	Bits    int    `yaml:"bits"`
	Scope   string `yaml:"scope"`
}

// Filter converts the configured values.
func (f FilterConfig) Filter() (distribution.Filter, error) {
	width, err := distribution.ParseWidth(fmt.Sprint(f.Bits))
	if err != nil {
		return distribution.Filter{}, err
	}
	scope, err := distribution.ParseScope(f.Scope)
	if err != nil {
		return distribution.Filter{}, err
	}
	return distribution.Filter{
		Vendor:  f.Vendor,
		Tag:     f.Tag,
		Version: f.Version,
		Width:   width,
		Scope:   scope,
	}, nil
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Version: 1,
		Log:     LogConfig{Level: "info"},
		Probe:   ProbeConfig{Timeout: 10 * time.Second},
		Discovery: DiscoveryConfig{
			NativeRegistry: boolPtr(true),
			ArcGIS:         boolPtr(true),
		},
		Activation: ActivationConfig{
			UserBase: boolPtr(true),
		},
	}
}

// Load reads the YAML configuration from disk if it exists, otherwise returns
// the default configuration.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	cfg.resolveRegistryFiles(filepath.Dir(path))
	if cfg.Log.Dir != "" {
		cfg.Log.Dir = resolveExternalPath(filepath.Dir(path), cfg.Log.Dir)
	}
	return cfg, nil
}

// ApplyDefaults fills fields the YAML left empty.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.Version == 0 {
		c.Version = defaults.Version
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Probe.Timeout == 0 {
		c.Probe.Timeout = defaults.Probe.Timeout
	}
	if c.Discovery.NativeRegistry == nil {
		c.Discovery.NativeRegistry = boolPtr(true)
	}
	if c.Discovery.ArcGIS == nil {
		c.Discovery.ArcGIS = boolPtr(true)
	}
	if c.Activation.UserBase == nil {
		c.Activation.UserBase = boolPtr(true)
	}
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}

func boolPtr(v bool) *bool {
	return &v
}

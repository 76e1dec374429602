// Package discovery enumerates candidate interpreter installations and turns
// them into ranked-ready distributions.
package discovery

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"pysel/internal/distribution"
	"pysel/internal/logx"
	"pysel/internal/paths"
	"pysel/internal/registry"
)

// LauncherVendor registers the py.exe launcher, not an interpreter.
const LauncherVendor = "PyLauncher"

// RawCandidate is what a scanner found before the interpreter was asked
// anything.
type RawCandidate struct {
	Vendor            string
	VendorDisplayName string
	Tag               string
	TagDisplayName    string
	InstallPath       string
	ExecutablePath    string
	Width             distribution.Width
	Scope             distribution.Scope
	Source            distribution.Source
	// NeedsPlatform asks the normalizer to take the width from the
	// interpreter rather than trusting Width.
	NeedsPlatform bool
}

// Scanner yields candidates from one kind of source. A scanner never fails
// as a whole; unreadable entries are skipped.
type Scanner interface {
	Name() string
	Scan(ctx context.Context) []RawCandidate
}

// Root is one registration tree to walk.
type Root struct {
	Path     string
	Scope    distribution.Scope
	Emulated bool
}

// Roots returns the registration roots for a host. The Wow6432Node roots only
// exist on 64-bit hosts.
func Roots(is64BitHost bool) []Root {
	roots := []Root{
		{Path: `HKEY_CURRENT_USER\Software\Python`, Scope: distribution.ScopeCurrentUser},
		{Path: `HKEY_LOCAL_MACHINE\Software\Python`, Scope: distribution.ScopeAllUsers},
	}
	if is64BitHost {
		roots = append(roots,
			Root{Path: `HKEY_CURRENT_USER\Software\Wow6432Node\Python`, Scope: distribution.ScopeCurrentUser, Emulated: true},
			Root{Path: `HKEY_LOCAL_MACHINE\Software\Wow6432Node\Python`, Scope: distribution.ScopeAllUsers, Emulated: true},
		)
	}
	return roots
}

// Width derives the platform width of entries under this root.
func (r Root) Width(is64BitHost bool) distribution.Width {
	if is64BitHost && !r.Emulated {
		return distribution.Width64
	}
	return distribution.Width32
}

// RegistryScanner walks Company\Tag\InstallPath registrations.
type RegistryScanner struct {
	Source      registry.Source
	Is64BitHost bool
	Logger      *log.Logger
}

func (s *RegistryScanner) Name() string { return "registry" }

func (s *RegistryScanner) Scan(ctx context.Context) []RawCandidate {
	logger := logx.OrDiscard(s.Logger)
	var out []RawCandidate
	for _, root := range Roots(s.Is64BitHost) {
		if ctx.Err() != nil {
			return out
		}
		vendors, err := s.Source.ListChildren(root.Path)
		if err != nil {
			logger.Debug("skip root", "root", root.Path, "err", err)
			continue
		}
		for _, vendor := range vendors {
			if strings.EqualFold(vendor, LauncherVendor) {
				continue
			}
			out = append(out, s.scanVendor(root, vendor, logger)...)
		}
	}
	return out
}

func (s *RegistryScanner) scanVendor(root Root, vendor string, logger *log.Logger) []RawCandidate {
	vendorPath := registry.Join(root.Path, vendor)
	tags, err := s.Source.ListChildren(vendorPath)
	if err != nil {
		logger.Debug("skip vendor", "key", vendorPath, "err", err)
		return nil
	}
	vendorDisplay, _, _ := s.Source.ReadValue(vendorPath, "DisplayName")

	var out []RawCandidate
	for _, tag := range tags {
		tagPath := registry.Join(vendorPath, tag)
		installKey := registry.Join(tagPath, "InstallPath")
		installPath, ok, err := s.Source.ReadValue(installKey, "")
		if err != nil || !ok || strings.TrimSpace(installPath) == "" {
			logger.Debug("skip tag without install location", "key", tagPath, "err", err)
			continue
		}
		exePath, _, _ := s.Source.ReadValue(installKey, "ExecutablePath")
		tagDisplay, _, _ := s.Source.ReadValue(tagPath, "DisplayName")

		out = append(out, RawCandidate{
			Vendor:            vendor,
			VendorDisplayName: vendorDisplay,
			Tag:               tag,
			TagDisplayName:    tagDisplay,
			InstallPath:       filepath.Clean(strings.TrimSpace(installPath)),
			ExecutablePath:    strings.TrimSpace(exePath),
			Width:             root.Width(s.Is64BitHost),
			Scope:             root.Scope,
			Source:            distribution.SourceRegistry,
		})
	}
	return out
}

// ArcGIS Pro registers its bundled conda environment outside the standard
// Python tree.
const (
	ArcGISVendor      = "Esri"
	ArcGISDisplayName = "ArcGIS Pro"
	ArcGISKey         = `HKEY_LOCAL_MACHINE\SOFTWARE\ESRI\ArcGISPro`
)

// ArcGISScanner finds the ArcGIS Pro conda environment.
type ArcGISScanner struct {
	Source registry.Source
	Layout paths.Layout
	Logger *log.Logger
}

func (s *ArcGISScanner) Name() string { return "arcgis" }

func (s *ArcGISScanner) Scan(ctx context.Context) []RawCandidate {
	logger := logx.OrDiscard(s.Logger)
	if ctx.Err() != nil {
		return nil
	}
	root, ok, err := s.Source.ReadValue(ArcGISKey, "PythonCondaRoot")
	if err != nil || !ok || strings.TrimSpace(root) == "" {
		logger.Debug("arcgis not registered", "err", err)
		return nil
	}
	env, ok, err := s.Source.ReadValue(ArcGISKey, "PythonCondaEnv")
	if err != nil || !ok || strings.TrimSpace(env) == "" {
		logger.Debug("arcgis conda env not registered", "err", err)
		return nil
	}
	root, env = strings.TrimSpace(root), strings.TrimSpace(env)

	installPath := env
	if !filepath.IsAbs(env) {
		installPath = filepath.Join(root, "envs", env)
	}
	exe, found := s.Layout.FindExecutable(installPath)
	if !found {
		logger.Debug("arcgis environment has no interpreter", "path", installPath)
		return nil
	}

	return []RawCandidate{{
		Vendor:            ArcGISVendor,
		VendorDisplayName: ArcGISDisplayName,
		Tag:               filepath.Base(env),
		InstallPath:       filepath.Clean(installPath),
		ExecutablePath:    exe,
		Scope:             distribution.ScopeAllUsers,
		Source:            distribution.SourceArcGIS,
		NeedsPlatform:     true,
	}}
}

package distribution

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"pysel/internal/paths"
)

// DefaultVendor is the company key used by the reference CPython installers.
// Distributions from this vendor always rank ahead of every other vendor.
const DefaultVendor = "PythonCore"

// Scope records who a distribution was registered for.
type Scope string

const (
	ScopeAny         Scope = ""
	ScopeCurrentUser Scope = "CurrentUser"
	ScopeAllUsers    Scope = "AllUsers"
)

// ParseScope accepts the canonical names plus the short forms "user" and
// "machine". The empty string means any scope.
func ParseScope(value string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return ScopeAny, nil
	case "user", "currentuser", "current-user":
		return ScopeCurrentUser, nil
	case "machine", "allusers", "all-users", "system":
		return ScopeAllUsers, nil
	default:
		return ScopeAny, fmt.Errorf("unknown scope %q (want user or machine)", value)
	}
}

// Width is the pointer width of an interpreter build.
type Width int

const (
	WidthAny Width = 0
	Width32  Width = 32
	Width64  Width = 64
)

// ParseWidth accepts "32", "64", "32bit", "64-bit" and the empty string.
func ParseWidth(value string) (Width, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	v = strings.TrimSuffix(strings.TrimSuffix(v, "bit"), "-")
	if v == "" || v == "0" {
		return WidthAny, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return WidthAny, fmt.Errorf("invalid platform width %q", value)
	}
	switch Width(n) {
	case Width32, Width64:
		return Width(n), nil
	}
	return WidthAny, fmt.Errorf("invalid platform width %q (want 32 or 64)", value)
}

func (w Width) String() string {
	if w == WidthAny {
		return "any"
	}
	return fmt.Sprintf("%d-bit", int(w))
}

// Source names the scanner that produced a distribution.
type Source string

const (
	SourceRegistry Source = "registry"
	SourceArcGIS   Source = "arcgis"
)

// Distribution is one activatable interpreter installation.
type Distribution struct {
	Vendor            string `json:"vendor"`
	VendorDisplayName string `json:"vendor_display_name,omitempty"`
	Tag               string `json:"tag"`
	TagDisplayName    string `json:"tag_display_name,omitempty"`
	InstallPath       string `json:"install_path"`
	ExecutablePath    string `json:"executable_path"`
	ReportedVersion   string `json:"version"`
	Width             Width  `json:"bits"`
	Scope             Scope  `json:"scope"`
	Source            Source `json:"source,omitempty"`
}

// ScriptsDirName is the subdirectory of an installation holding console
// entry points.
func ScriptsDirName() string {
	return paths.HostLayout().ScriptsDir
}

// ScriptsPath returns the scripts directory inside the installation.
func (d Distribution) ScriptsPath() string {
	if d.InstallPath == "" {
		return ""
	}
	return filepath.Join(d.InstallPath, ScriptsDirName())
}

// VendorName returns the display name for the vendor, falling back to the key.
func (d Distribution) VendorName() string {
	if d.VendorDisplayName != "" {
		return d.VendorDisplayName
	}
	return d.Vendor
}

// TagName returns the display name for the tag, falling back to the key.
func (d Distribution) TagName() string {
	if d.TagDisplayName != "" {
		return d.TagDisplayName
	}
	return d.Tag
}

// DisplayName is the human readable label shown in listings.
func (d Distribution) DisplayName() string {
	if d.TagDisplayName != "" {
		return d.TagDisplayName
	}
	return fmt.Sprintf("%s %s (%s)", d.VendorName(), d.Tag, d.Width)
}

// IsDefaultVendor reports whether the distribution belongs to DefaultVendor.
func (d Distribution) IsDefaultVendor() bool {
	return d.Vendor == DefaultVendor
}

// Key identifies the distribution within one scope and source.
func (d Distribution) Key() string {
	return fmt.Sprintf("%s/%s/%s/%d", d.Scope, d.Vendor, d.Tag, int(d.Width))
}

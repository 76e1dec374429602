package distribution

import (
	"fmt"
	"sort"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// Filter narrows a candidate set. Zero-valued fields match everything and all
// set fields must match.
type Filter struct {
	Vendor  string `json:"vendor,omitempty"`
	Tag     string `json:"tag,omitempty"`
	Version string `json:"version,omitempty"`
	Width   Width  `json:"bits,omitempty"`
	Scope   Scope  `json:"scope,omitempty"`
}

// Match reports whether d satisfies every set field. Vendor is a
// case-insensitive prefix, Tag and Version are prefixes, Width and Scope are
// exact.
func (f Filter) Match(d Distribution) bool {
	if f.Vendor != "" && !strings.HasPrefix(strings.ToLower(d.Vendor), strings.ToLower(f.Vendor)) {
		return false
	}
	if f.Tag != "" && !strings.HasPrefix(d.Tag, f.Tag) {
		return false
	}
	if f.Version != "" && !strings.HasPrefix(d.ReportedVersion, f.Version) {
		return false
	}
	if f.Width != WidthAny && d.Width != f.Width {
		return false
	}
	if f.Scope != ScopeAny && d.Scope != f.Scope {
		return false
	}
	return true
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// String renders the requested values, e.g. "vendor=Py version=3.11".
func (f Filter) String() string {
	var parts []string
	if f.Vendor != "" {
		parts = append(parts, "vendor="+f.Vendor)
	}
	if f.Tag != "" {
		parts = append(parts, "tag="+f.Tag)
	}
	if f.Version != "" {
		parts = append(parts, "version="+f.Version)
	}
	if f.Width != WidthAny {
		parts = append(parts, fmt.Sprintf("bits=%d", int(f.Width)))
	}
	if f.Scope != ScopeAny {
		parts = append(parts, "scope="+string(f.Scope))
	}
	if len(parts) == 0 {
		return "(any)"
	}
	return strings.Join(parts, " ")
}

// Rank filters ds and orders the result: current-user before all-users,
// vendor ascending, version descending, 64-bit before 32-bit, tag ascending.
// Vendor and tag compare case-insensitively.
// DefaultVendor entries are then moved ahead of all others, keeping their
// relative order. The input slice is not modified.
func Rank(ds []Distribution, f Filter) []Distribution {
	matched := make([]Distribution, 0, len(ds))
	for _, d := range ds {
		if f.Match(d) {
			matched = append(matched, d)
		}
	}

	parsed := make(map[string]*goversion.Version, len(matched))
	for _, d := range matched {
		if _, ok := parsed[d.ReportedVersion]; ok {
			continue
		}
		v, err := goversion.NewVersion(d.ReportedVersion)
		if err != nil {
			parsed[d.ReportedVersion] = nil
			continue
		}
		parsed[d.ReportedVersion] = v
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return less(matched[i], matched[j], parsed)
	})

	out := make([]Distribution, 0, len(matched))
	for _, d := range matched {
		if d.IsDefaultVendor() {
			out = append(out, d)
		}
	}
	for _, d := range matched {
		if !d.IsDefaultVendor() {
			out = append(out, d)
		}
	}
	return out
}

func less(a, b Distribution, parsed map[string]*goversion.Version) bool {
	if ra, rb := scopeRank(a.Scope), scopeRank(b.Scope); ra != rb {
		return ra < rb
	}
	if c := compareFold(a.Vendor, b.Vendor); c != 0 {
		return c < 0
	}
	if c := compareVersions(a.ReportedVersion, b.ReportedVersion, parsed); c != 0 {
		return c > 0
	}
	if a.Width != b.Width {
		return a.Width > b.Width
	}
	return compareFold(a.Tag, b.Tag) < 0
}

// compareFold orders case-insensitively, like registry key names, and falls
// back to byte order so the result stays total.
func compareFold(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func scopeRank(s Scope) int {
	switch s {
	case ScopeCurrentUser:
		return 0
	case ScopeAllUsers:
		return 1
	default:
		return 2
	}
}

// compareVersions orders semantically. Unparseable versions sort below any
// parseable one and fall back to string order among themselves.
func compareVersions(a, b string, parsed map[string]*goversion.Version) int {
	va, vb := parsed[a], parsed[b]
	switch {
	case va != nil && vb != nil:
		return va.Compare(vb)
	case va != nil:
		return 1
	case vb != nil:
		return -1
	}
	return strings.Compare(a, b)
}

// CompareVersions compares two reported versions semantically.
func CompareVersions(a, b string) int {
	parsed := map[string]*goversion.Version{}
	for _, s := range []string{a, b} {
		if v, err := goversion.NewVersion(s); err == nil {
			parsed[s] = v
		}
	}
	return compareVersions(a, b, parsed)
}

package distribution

import (
	"strings"
	"testing"
)

func dist(vendor, tag, version string, width Width, scope Scope) Distribution {
	return Distribution{
		Vendor:          vendor,
		Tag:             tag,
		ReportedVersion: version,
		Width:           width,
		Scope:           scope,
		InstallPath:     "/opt/" + vendor + "/" + tag,
		ExecutablePath:  "/opt/" + vendor + "/" + tag + "/python",
	}
}

func rankingFixture() []Distribution {
	return []Distribution{
		dist("PythonCore", "3.9", "3.9.13", Width64, ScopeAllUsers),
		dist("Acme", "a27", "2.7.18", Width64, ScopeAllUsers),
		dist("Zeta", "z311", "3.11.4", Width64, ScopeAllUsers),
		dist("PythonCore", "3.11-32", "3.11.4", Width32, ScopeCurrentUser),
		dist("Acme", "a311-32", "3.11.4", Width32, ScopeAllUsers),
		dist("Zeta", "z39", "3.9.13", Width64, ScopeCurrentUser),
		dist("Acme", "a311", "3.11.4", Width64, ScopeAllUsers),
		dist("PythonCore", "3.11", "3.11.4", Width64, ScopeCurrentUser),
	}
}

func tags(ds []Distribution) string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Tag
	}
	return strings.Join(out, ",")
}

func TestRankOrdering(t *testing.T) {
	got := Rank(rankingFixture(), Filter{})
	want := "3.11,3.11-32,3.9,z39,a311,a311-32,a27,z311"
	if tags(got) != want {
		t.Fatalf("unexpected order\n got: %s\nwant: %s", tags(got), want)
	}
}

func TestRankDeterministicRegardlessOfInputOrder(t *testing.T) {
	fixture := rankingFixture()
	reversed := make([]Distribution, len(fixture))
	for i, d := range fixture {
		reversed[len(fixture)-1-i] = d
	}
	a := tags(Rank(fixture, Filter{}))
	b := tags(Rank(reversed, Filter{}))
	if a != b {
		t.Fatalf("ranking depends on input order: %s vs %s", a, b)
	}
}

func TestRankDefaultVendorFirstEvenWhenAlphabeticallyLater(t *testing.T) {
	ds := []Distribution{
		dist("Anaconda", "x", "3.12.1", Width64, ScopeCurrentUser),
		dist("PythonCore", "3.8", "3.8.10", Width32, ScopeAllUsers),
	}
	got := Rank(ds, Filter{})
	if got[0].Vendor != DefaultVendor {
		t.Fatalf("expected %s first, got %s", DefaultVendor, got[0].Vendor)
	}
}

func TestRankSemanticVersionOrder(t *testing.T) {
	ds := []Distribution{
		dist("PythonCore", "3.9", "3.9.1", Width64, ScopeAllUsers),
		dist("PythonCore", "3.10", "3.10.0", Width64, ScopeAllUsers),
		dist("PythonCore", "broken", "unknown", Width64, ScopeAllUsers),
		dist("PythonCore", "3.11", "3.11.0", Width64, ScopeAllUsers),
	}
	got := tags(Rank(ds, Filter{}))
	if got != "3.11,3.10,3.9,broken" {
		t.Fatalf("unexpected order %s", got)
	}
}

func TestRankVendorAndTagIgnoreCase(t *testing.T) {
	ds := []Distribution{
		dist("Zeta", "b", "3.12.1", Width64, ScopeAllUsers),
		dist("acme", "B", "3.12.1", Width64, ScopeAllUsers),
		dist("acme", "a", "3.12.1", Width64, ScopeAllUsers),
		dist("ACME", "c", "3.12.1", Width64, ScopeAllUsers),
	}
	var vendors []string
	for _, d := range Rank(ds, Filter{}) {
		vendors = append(vendors, d.Vendor+"/"+d.Tag)
	}
	if got := strings.Join(vendors, ","); got != "ACME/c,acme/a,acme/B,Zeta/b" {
		t.Fatalf("unexpected order %s", got)
	}
}

func TestRankDoesNotModifyInput(t *testing.T) {
	fixture := rankingFixture()
	before := tags(fixture)
	Rank(fixture, Filter{})
	if tags(fixture) != before {
		t.Fatal("Rank reordered its input")
	}
}

func TestFilterPrefixSemantics(t *testing.T) {
	ds := []Distribution{
		dist("PythonCore", "3.9", "3.9.1", Width64, ScopeAllUsers),
		dist("PythonCore", "3.11", "3.11.0", Width64, ScopeAllUsers),
		dist("PythonCore", "2.7", "2.7.18", Width32, ScopeAllUsers),
	}

	tests := []struct {
		name   string
		filter Filter
		want   string
	}{
		{"vendor prefix", Filter{Vendor: "Py"}, "3.11,3.9,2.7"},
		{"vendor case-insensitive", Filter{Vendor: "python"}, "3.11,3.9,2.7"},
		{"vendor infix does not match", Filter{Vendor: "ython"}, ""},
		{"version major", Filter{Version: "3"}, "3.11,3.9"},
		{"version minor", Filter{Version: "3.9"}, "3.9"},
		{"tag prefix", Filter{Tag: "2"}, "2.7"},
		{"width exact", Filter{Width: Width32}, "2.7"},
		{"scope exact", Filter{Scope: ScopeCurrentUser}, ""},
		{"combined", Filter{Vendor: "py", Version: "3", Width: Width64}, "3.11,3.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tags(Rank(ds, tt.filter))
			if got != tt.want {
				t.Fatalf("filter %s: got %q, want %q", tt.filter, got, tt.want)
			}
		})
	}
}

func TestFilterString(t *testing.T) {
	if got := (Filter{}).String(); got != "(any)" {
		t.Fatalf("expected (any), got %q", got)
	}
	f := Filter{Vendor: "Py", Version: "9.9", Width: Width64, Scope: ScopeAllUsers}
	want := "vendor=Py version=9.9 bits=64 scope=AllUsers"
	if got := f.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

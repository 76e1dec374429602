package activation

import (
	"reflect"
	"runtime"
	"testing"
)

func TestMapEnvParsesPairs(t *testing.T) {
	env := NewMapEnv([]string{"A=1", "B=", "=C:=C:\\work", "junk", "D=x=y"})
	if v, ok := env.LookupEnv("B"); !ok || v != "" {
		t.Fatalf("B = %q set=%v", v, ok)
	}
	if v, _ := env.LookupEnv("D"); v != "x=y" {
		t.Fatalf("D = %q", v)
	}
	if v, _ := env.LookupEnv("=C:"); v != `C:\work` {
		t.Fatalf("drive entry = %q", v)
	}
	if _, ok := env.LookupEnv("junk"); ok {
		t.Fatal("entry without '=' must be ignored")
	}
	want := []string{"=C:=C:\\work", "A=1", "B=", "D=x=y"}
	if got := env.Environ(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Environ() = %v, want %v", got, want)
	}
}

func TestMapEnvCaseFolding(t *testing.T) {
	env := NewMapEnv([]string{"Path=/usr/bin"})
	_ = env.Setenv("PATH", "/opt/bin")
	got := env.Snapshot()
	if runtime.GOOS == "windows" {
		if len(got) != 1 || got["Path"] != "/opt/bin" {
			t.Fatalf("expected the original name to be updated, got %v", got)
		}
		return
	}
	if len(got) != 2 {
		t.Fatalf("names are case-sensitive here, got %v", got)
	}
}

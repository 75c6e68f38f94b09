package naming

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestCheckModel(t *testing.T) {
	if err := CheckModel("chains"); err != nil {
		t.Fatalf("valid model rejected: %v", err)
	}
	for _, bad := range []string{"", "a/b", `a\b`, "../chains"} {
		if err := CheckModel(bad); err == nil {
			t.Fatalf("model %q accepted", bad)
		}
	}
}

func TestSpinFileNames(t *testing.T) {
	if got := SpinFile("chains"); got != "chains.spn" {
		t.Fatalf("SpinFile = %s", got)
	}
	// Offsets are 0-based even though the checker selects the same
	// trail with a 1-based -t flag.
	if got := SpinFileAt("chains", 0); got != "chains-0.spn" {
		t.Fatalf("SpinFileAt(0) = %s", got)
	}
	if got := SpinFileAt("chains", 2); got != "chains-2.spn" {
		t.Fatalf("SpinFileAt(2) = %s", got)
	}
}

func TestTrailSourceGlob(t *testing.T) {
	if got := TrailSourceGlob("chains", true); got != "tr-chains.c" {
		t.Fatalf("single = %s", got)
	}
	if got := TrailSourceGlob("chains", false); got != "tr-chains-*.c" {
		t.Fatalf("plural = %s", got)
	}
}

func TestExpand(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"chains1.trail", "chains2.trail", "other.trail", "chains.pml"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := Expand(dir, TrailGlob("chains"))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"chains1.trail", "chains2.trail"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Expand = %v, want %v", got, want)
	}
}

func TestTestSourceGlobs(t *testing.T) {
	got := TestSourceGlobs("chains")
	want := []string{"tr-chains*.c", "tr-chains*.h", "tc-chains*.c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("TestSourceGlobs = %v", got)
	}
	build := BuildSourceGlobs("chains")
	wantBuild := []string{"tr-chains*.c", "tc-chains*.c"}
	if !reflect.DeepEqual(build, wantBuild) {
		t.Fatalf("BuildSourceGlobs = %v", build)
	}
}

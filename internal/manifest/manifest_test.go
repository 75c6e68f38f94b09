package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const sampleManifest = `SPDX-License-Identifier: CC-BY-SA-4.0 OR BSD-2-Clause
build-type: test-program
cflags: []
enabled-by: true
source:
- testsuites/validation/ts-model-0.c
- testsuites/validation/tc-chains-0.c
stlib: []
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model-0.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadReadsSources(t *testing.T) {
	path := writeManifest(t, sampleManifest)
	m, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"testsuites/validation/tc-chains-0.c",
		"testsuites/validation/ts-model-0.c",
	}
	if got := m.Sources.Sorted(); !reflect.DeepEqual(got, want) {
		t.Fatalf("sources = %v, want %v", got, want)
	}
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"absent", ""},
		{"malformed", ":\n  - ["},
		{"no source key", "build-type: test-program\n"},
		{"source not a list", "source: alone\n"},
	}
	for _, tc := range cases {
		var path string
		if tc.name == "absent" {
			path = filepath.Join(t.TempDir(), "missing.yml")
		} else {
			path = writeManifest(t, tc.content)
		}
		_, err := Load(path)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("%s: expected ParseError, got %v", tc.name, err)
		}
	}
}

func TestMergeSourcesIdempotent(t *testing.T) {
	path := writeManifest(t, sampleManifest)
	m, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	m.MergeSources("a.c", "b.c")
	once := m.Sources.Sorted()
	m.MergeSources("a.c", "b.c")
	if got := m.Sources.Sorted(); !reflect.DeepEqual(got, once) {
		t.Fatalf("second merge changed sources: %v vs %v", got, once)
	}
}

func TestMergeSourcesOrderInsensitive(t *testing.T) {
	left := NewSourceSet()
	left.Add("a.c", "b.c")
	left.Add("c.c")
	right := NewSourceSet()
	right.Add("c.c", "b.c")
	right.Add("a.c")
	if !reflect.DeepEqual(left.Sorted(), right.Sorted()) {
		t.Fatalf("order matters: %v vs %v", left.Sorted(), right.Sorted())
	}
}

func TestResetSources(t *testing.T) {
	path := writeManifest(t, sampleManifest)
	m, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	m.MergeSources("tr-x.c", "tc-y.c")
	m.ResetSources("testsuites/validation/ts-model-0.c")
	want := []string{"testsuites/validation/ts-model-0.c"}
	if got := m.Sources.Sorted(); !reflect.DeepEqual(got, want) {
		t.Fatalf("reset = %v, want %v", got, want)
	}
}

func TestSaveSortsAndKeepsSiblings(t *testing.T) {
	path := writeManifest(t, sampleManifest)
	m, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	m.MergeSources("testsuites/validation/aa-first.c", "testsuites/validation/tc-chains-0.c")
	if err := m.Save(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, sibling := range []string{"build-type: test-program", "enabled-by: true", "cflags: []", "stlib: []"} {
		if !strings.Contains(out, sibling) {
			t.Fatalf("sibling key %q lost:\n%s", sibling, out)
		}
	}
	reloaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"testsuites/validation/aa-first.c",
		"testsuites/validation/tc-chains-0.c",
		"testsuites/validation/ts-model-0.c",
	}
	if got := reloaded.Sources.Sorted(); !reflect.DeepEqual(got, want) {
		t.Fatalf("reloaded = %v, want %v", got, want)
	}
	// Sorted in the file itself, too.
	if strings.Index(out, "aa-first.c") > strings.Index(out, "tc-chains-0.c") {
		t.Fatalf("source list not sorted on disk:\n%s", out)
	}
}

func TestSaveRoundTripStable(t *testing.T) {
	path := writeManifest(t, sampleManifest)
	m, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Save(path); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	m2, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := m2.Save(path); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Fatalf("save not stable:\n%s\nvs\n%s", first, second)
	}
}

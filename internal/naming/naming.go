// Package naming defines the file naming rules shared by every stage of
// the test-generation pipeline. A model identifier is the stem of all of
// its input and generated files; the checker and the generator control
// the suffixes, so most rules are glob patterns rather than exact names.
package naming

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Pan is the checker's compiled verifier binary, left in the working
// directory after a run.
const Pan = "pan"

// CheckModel rejects identifiers that are empty or would escape the
// working directory when joined with a suffix.
func CheckModel(model string) error {
	if model == "" {
		return fmt.Errorf("model name is empty")
	}
	if strings.ContainsAny(model, `/\`) || model != filepath.Base(model) {
		return fmt.Errorf("model name %q must not contain path separators", model)
	}
	return nil
}

// ModelFile returns the model description file name.
func ModelFile(model string) string { return model + ".pml" }

// TrailGlob matches every counterexample trail the checker wrote for the
// model. The number of matches decides singular vs plural naming below.
func TrailGlob(model string) string { return model + "*.trail" }

// SpinGlob matches every trail summary for the model.
func SpinGlob(model string) string { return model + "*.spn" }

// SpinFile is the summary name when the model produced exactly one trail.
func SpinFile(model string) string { return model + ".spn" }

// SpinFileAt is the summary name for one of several trails. offset is
// 0-based, while the checker replays the same trail with the 1-based
// selector -t<offset+1>.
func SpinFileAt(model string, offset int) string {
	return fmt.Sprintf("%s-%d.spn", model, offset)
}

// TestSourceGlobs matches every file the generator emits for the model:
// trail runners, their headers, and test cases.
func TestSourceGlobs(model string) []string {
	return []string{
		"tr-" + model + "*.c",
		"tr-" + model + "*.h",
		"tc-" + model + "*.c",
	}
}

// BuildSourceGlobs matches the subset of generated files that are tracked
// as build sources in the manifest. Headers are not build sources.
func BuildSourceGlobs(model string) []string {
	return []string{
		"tr-" + model + "*.c",
		"tc-" + model + "*.c",
	}
}

// TrailSourceGlob matches the generated trail-runner sources. The shape
// depends on how many trails exist: an unindexed tr-<m>.c for a single
// trail, indexed tr-<m>-<i>.c files otherwise.
func TrailSourceGlob(model string, single bool) string {
	if single {
		return "tr-" + model + ".c"
	}
	return "tr-" + model + "-*.c"
}

// Expand globs pattern inside dir and returns the matching base names,
// sorted.
func Expand(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, filepath.Base(m))
	}
	return names, nil
}

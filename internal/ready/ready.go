// Package ready checks that a model's input files are all present before
// generation is allowed to start. Existence is the whole check; file
// contents are the checker's and the generator's problem.
package ready

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Input is one required per-model file together with the message printed
// when it is missing.
type Input struct {
	Name  string
	Cause string
}

// Inputs returns the five files a model needs before generation can run.
func Inputs(model string) []Input {
	return []Input{
		{Name: model + ".pml", Cause: "model description file missing"},
		{Name: model + "-pre.h", Cause: "preconditions file missing"},
		{Name: model + "-post.h", Cause: "postconditions file missing"},
		{Name: model + "-run.h", Cause: "run file missing"},
		{Name: model + "-rfn.yml", Cause: "refinement file missing"},
	}
}

// MissingInputError lists every absent input for a model, not just the
// first one found.
type MissingInputError struct {
	Model   string
	Missing []Input
}

func (e *MissingInputError) Error() string {
	causes := make([]string, 0, len(e.Missing))
	for _, in := range e.Missing {
		causes = append(causes, fmt.Sprintf("%s (%s)", in.Cause, in.Name))
	}
	return fmt.Sprintf("model %s is not ready: %s", e.Model, strings.Join(causes, "; "))
}

// Validate stats all required inputs for model inside dir and returns a
// MissingInputError naming each absent file. It never short-circuits, so
// one failed run reports every problem at once.
func Validate(dir, model string) error {
	var missing []Input
	for _, in := range Inputs(model) {
		if _, err := os.Stat(filepath.Join(dir, in.Name)); err != nil {
			missing = append(missing, in)
		}
	}
	if len(missing) > 0 {
		return &MissingInputError{Model: model, Missing: missing}
	}
	return nil
}

// Package cleaner removes a model's generated artifacts from the working
// directory. The build manifest is deliberately untouched: its entries
// only ever shrink through an explicit reset.
package cleaner

import (
	"fmt"
	"os"
	"path/filepath"

	"testbuilder/internal/naming"
)

// Clean deletes the checker's pan binary (if present), the model's trail
// files, its trail summaries, and the generated trail-runner sources.
//
// Whether the trail-runner source is the unindexed tr-<m>.c or the
// indexed tr-<m>-*.c set is decided by the trail-file count observed now,
// not the count at generation time. If trails were already partially
// removed, the choice can diverge from what was generated and leave
// indexed sources behind; the returned list shows what actually went.
func Clean(dir, model string) ([]string, error) {
	if err := naming.CheckModel(model); err != nil {
		return nil, err
	}

	var targets []string
	if _, err := os.Stat(filepath.Join(dir, naming.Pan)); err == nil {
		targets = append(targets, naming.Pan)
	}

	trails, err := naming.Expand(dir, naming.TrailGlob(model))
	if err != nil {
		return nil, err
	}
	targets = append(targets, trails...)

	summaries, err := naming.Expand(dir, naming.SpinGlob(model))
	if err != nil {
		return nil, err
	}
	targets = append(targets, summaries...)

	sources, err := naming.Expand(dir, naming.TrailSourceGlob(model, len(trails) == 1))
	if err != nil {
		return nil, err
	}
	targets = append(targets, sources...)

	var removed []string
	for _, name := range targets {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return removed, fmt.Errorf("remove %s: %w", name, err)
		}
		removed = append(removed, name)
	}
	return removed, nil
}

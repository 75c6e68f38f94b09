// Package syncer moves freshly generated test sources into the target
// tree and records them in the build manifest.
package syncer

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"testbuilder/internal/manifest"
	"testbuilder/internal/naming"
)

// Syncer replaces a model's artifacts in the target tree with the set
// currently present in the working directory.
type Syncer struct {
	// Dir is the working directory holding the generated files.
	Dir string
	// TargetDir is the validation test tree receiving them.
	TargetDir string
	// ManifestPath is the build manifest to update.
	ManifestPath string
	// ManifestPrefix is prepended to each tracked file name to form the
	// target-tree-relative manifest entry.
	ManifestPrefix string
}

// Result describes one synchronization.
type Result struct {
	Removed []string
	Copied  []string
	Tracked []string
}

// Sync removes the model's stale artifacts from the target tree, copies
// the freshly generated set in, and merges the copied .c sources into the
// manifest (headers are copied but never tracked as build sources).
//
// There is no rollback: a failure partway leaves the target tree and the
// manifest partially updated, and re-running converges to the same end
// state. Manifest entries are only ever added here; removing stale files
// does not remove their entries.
func (s Syncer) Sync(model string) (Result, error) {
	if err := naming.CheckModel(model); err != nil {
		return Result{}, err
	}
	var res Result

	for _, pattern := range naming.TestSourceGlobs(model) {
		stale, err := naming.Expand(s.TargetDir, pattern)
		if err != nil {
			return res, err
		}
		for _, name := range stale {
			if err := os.Remove(filepath.Join(s.TargetDir, name)); err != nil {
				return res, fmt.Errorf("remove stale %s: %w", name, err)
			}
			res.Removed = append(res.Removed, name)
		}
	}

	for _, pattern := range naming.TestSourceGlobs(model) {
		fresh, err := naming.Expand(s.Dir, pattern)
		if err != nil {
			return res, err
		}
		for _, name := range fresh {
			if err := copyFile(filepath.Join(s.Dir, name), filepath.Join(s.TargetDir, name)); err != nil {
				return res, err
			}
			res.Copied = append(res.Copied, name)
		}
	}

	m, err := manifest.Load(s.ManifestPath)
	if err != nil {
		return res, err
	}
	for _, pattern := range naming.BuildSourceGlobs(model) {
		tracked, err := naming.Expand(s.Dir, pattern)
		if err != nil {
			return res, err
		}
		for _, name := range tracked {
			res.Tracked = append(res.Tracked, path.Join(s.ManifestPrefix, name))
		}
	}
	m.MergeSources(res.Tracked...)
	if err := m.Save(s.ManifestPath); err != nil {
		return res, err
	}
	return res, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copy %s: %w", filepath.Base(src), err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("copy %s: %w", filepath.Base(src), err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", filepath.Base(src), err)
	}
	return out.Close()
}

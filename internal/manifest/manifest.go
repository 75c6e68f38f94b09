// Package manifest reads and writes the build manifest: a YAML document
// whose "source" key holds the list of test sources for one built
// configuration. The source list behaves as an ordered set (unique,
// sorted on save); every other key round-trips untouched.
//
// The manifest file carries no inter-process lock. Concurrent pipeline
// runs against the same manifest path are unsafe.
package manifest

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

const sourceKey = "source"

// ParseError reports a manifest that could not be loaded: absent file,
// invalid YAML, or a missing/malformed source list.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("manifest %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SourceSet is the manifest's source list as an explicit set: membership
// is unique and insertion order is irrelevant.
type SourceSet struct {
	members map[string]struct{}
}

// NewSourceSet returns a set seeded with paths.
func NewSourceSet(paths ...string) *SourceSet {
	s := &SourceSet{members: map[string]struct{}{}}
	s.Add(paths...)
	return s
}

// Add inserts paths, silently collapsing duplicates.
func (s *SourceSet) Add(paths ...string) {
	if s.members == nil {
		s.members = map[string]struct{}{}
	}
	for _, p := range paths {
		s.members[p] = struct{}{}
	}
}

// Has reports membership.
func (s *SourceSet) Has(path string) bool {
	_, ok := s.members[path]
	return ok
}

// Len returns the member count.
func (s *SourceSet) Len() int { return len(s.members) }

// Sorted returns the members in lexicographic order.
func (s *SourceSet) Sorted() []string {
	out := make([]string, 0, len(s.members))
	for p := range s.members {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Manifest is a loaded build manifest. Sources is the live source set;
// the rest of the document is retained as parsed and rewritten as-is.
type Manifest struct {
	Sources *SourceSet

	doc *yaml.Node
}

// Load parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	seq, err := sourceNode(&doc)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	sources := NewSourceSet()
	for _, item := range seq.Content {
		if item.Kind != yaml.ScalarNode {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("source list contains a non-scalar entry")}
		}
		sources.Add(item.Value)
	}
	return &Manifest{Sources: sources, doc: &doc}, nil
}

// MergeSources unions paths into the source set. Re-merging the same
// paths is a no-op, so synchronization is idempotent.
func (m *Manifest) MergeSources(paths ...string) {
	m.Sources.Add(paths...)
}

// ResetSources discards every tracked source and replaces the list with
// the single baseline path.
func (m *Manifest) ResetSources(baseline string) {
	m.Sources = NewSourceSet(baseline)
}

// Save rewrites the manifest at path with the source list sorted and
// deduplicated and all other keys as loaded.
func (m *Manifest) Save(path string) error {
	seq, err := sourceNode(m.doc)
	if err != nil {
		return &ParseError{Path: path, Err: err}
	}
	seq.Style = 0
	seq.Content = seq.Content[:0]
	for _, p := range m.Sources.Sorted() {
		seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: p})
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write manifest %s: %w", path, err)
	}
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(m.doc); err != nil {
		f.Close()
		return fmt.Errorf("write manifest %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("write manifest %s: %w", path, err)
	}
	return f.Close()
}

// sourceNode locates the sequence node holding the source list.
func sourceNode(doc *yaml.Node) (*yaml.Node, error) {
	root := doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil, fmt.Errorf("empty document")
		}
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("top level is not a mapping")
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != sourceKey {
			continue
		}
		val := root.Content[i+1]
		if val.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("source key is not a list")
		}
		return val, nil
	}
	return nil, fmt.Errorf("source key not found")
}

// Package linkset holds the internal link targets a document may point to.
//
// Every document path is stored twice: in its structural form as written in
// the structure plan ("/getting-started/install") and in the flattened file
// form used by the published site ("./getting-started-install.md").
package linkset

import (
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/li-yechao/aigne-doc-smith-sub000/internal/errors"
)

// Set is a read-only collection of allowed link targets once built.
type Set struct {
	paths map[string]struct{}
}

// New returns a set holding paths and their flattened forms.
func New(paths ...string) *Set {
	s := &Set{paths: make(map[string]struct{})}
	for _, p := range paths {
		s.Add(p)
	}
	return s
}

// Add inserts path and its flattened form. Blank paths are ignored.
func (s *Set) Add(path string) {
	path = norm.NFC.String(strings.TrimSpace(path))
	if path == "" {
		return
	}
	s.paths[path] = struct{}{}
	if flat := Flatten(path); flat != "" {
		s.paths[flat] = struct{}{}
	}
}

// Contains reports whether target, without any fragment, is allowed.
func (s *Set) Contains(target string) bool {
	if s == nil {
		return false
	}
	_, ok := s.paths[norm.NFC.String(target)]
	return ok
}

// Len returns the number of stored forms.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.paths)
}

// Paths returns every stored form in sorted order.
func (s *Set) Paths() []string {
	out := make([]string, 0, s.Len())
	if s == nil {
		return out
	}
	for p := range s.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Flatten turns a structural path into the published file name:
// "/a/b/c" and "./a/b/c.md" both become "./a-b-c.md".
func Flatten(path string) string {
	p := strings.TrimSpace(path)
	p = strings.TrimPrefix(p, "./")
	p = strings.Trim(p, "/")
	p = strings.TrimSuffix(p, ".md")
	if p == "" {
		return ""
	}
	return "./" + strings.ReplaceAll(p, "/", "-") + ".md"
}

// Document is one entry of a structure plan.
type Document struct {
	Title    string     `yaml:"title,omitempty"`
	Path     string     `yaml:"path"`
	Children []Document `yaml:"children,omitempty"`
}

// LoadStructure reads a YAML structure plan, either a top-level list of
// documents or a mapping with a "documents" list, and returns every path it
// names.
func LoadStructure(r io.Reader) (*Set, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeFileNotFound, "failed to read structure plan")
	}

	docs, err := decodePlan(data)
	if err != nil {
		return nil, err
	}

	s := New()
	var walk func([]Document)
	walk = func(docs []Document) {
		for _, d := range docs {
			s.Add(d.Path)
			walk(d.Children)
		}
	}
	walk(docs)
	return s, nil
}

// LoadStructureFile is LoadStructure for a file on disk.
func LoadStructureFile(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapIO(err, errors.ErrCodeFileNotFound, "failed to open structure plan").
			WithContext("path", path)
	}
	defer f.Close()
	return LoadStructure(f)
}

func decodePlan(data []byte) ([]Document, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, invalidPlan(err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	root := node.Content[0]
	var docs []Document
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&docs); err != nil {
			return nil, invalidPlan(err)
		}
	case yaml.MappingNode:
		var plan struct {
			Documents []Document `yaml:"documents"`
		}
		if err := root.Decode(&plan); err != nil {
			return nil, invalidPlan(err)
		}
		docs = plan.Documents
	default:
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, "structure plan must be a list of documents")
	}
	return docs, nil
}

func invalidPlan(err error) error {
	return errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "invalid structure plan")
}

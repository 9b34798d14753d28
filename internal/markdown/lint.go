package markdown

import (
	"fmt"
	"sort"
	"sync"
)

// Diagnostic is one lint finding.
type Diagnostic struct {
	RuleID  string
	Name    string
	Line    int
	Message string
	Context string
}

// String formats the finding the way markdownlint does.
func (d Diagnostic) String() string {
	s := fmt.Sprintf("%s/%s %s", d.RuleID, d.Name, d.Message)
	if d.Context != "" {
		s += fmt.Sprintf(" [Context: %q]", d.Context)
	}
	return s
}

// RuleDef defines a structural lint rule.
type RuleDef struct {
	ID          string
	Name        string
	Description string
	Check       func(doc *Document) []Diagnostic
}

var registry = struct {
	mu    sync.RWMutex
	rules map[string]RuleDef
}{rules: make(map[string]RuleDef)}

// Register adds a rule. Call it from init functions.
func Register(rule RuleDef) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.rules[rule.ID] = rule
}

// Rules returns every registered rule ordered by ID.
func Rules() []RuleDef {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	rules := make([]RuleDef, 0, len(registry.rules))
	for _, r := range registry.rules {
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules
}

// RuleByID returns the rule registered under id.
func RuleByID(id string) (RuleDef, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	r, ok := registry.rules[id]
	return r, ok
}

// Lint runs the rules named in ids, or every rule when ids is empty, and
// returns their findings ordered by line. Unknown ids are ignored.
func Lint(doc *Document, ids []string) []Diagnostic {
	rules := Rules()
	if len(ids) > 0 {
		rules = rules[:0:0]
		for _, id := range ids {
			if r, ok := RuleByID(id); ok {
				rules = append(rules, r)
			}
		}
	}

	var out []Diagnostic
	for _, r := range rules {
		for _, d := range r.Check(doc) {
			d.RuleID, d.Name = r.ID, r.Name
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}

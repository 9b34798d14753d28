package checker

import "fmt"

// Diagnostic categories. The category is the leading phrase of every report
// line.
const (
	CategoryDeadLink        = "dead link"
	CategoryIncompleteCode  = "incomplete code block"
	CategorySingleLine      = "single line content"
	CategoryIncomplete      = "incomplete content"
	CategoryColumnCount     = "mismatched column count"
	CategoryDiagramSyntax   = "Mermaid syntax error"
	CategoryDiagramPattern  = "Mermaid rendering issue"
	CategoryLint            = "markdown lint issue"
	CategoryCheckingError   = "checking error"
	CategoryDiagramChecking = "Mermaid checking error"
)

// report collects diagnostics for a single CheckMarkdown call in the order
// they are found.
type report struct {
	source   string
	messages []string
}

// add appends "Found <category> in <source>[ at line <n>]: <explanation>".
// Lines below 1 are omitted.
func (r *report) add(category string, line int, format string, args ...interface{}) {
	r.messages = append(r.messages, formatFinding(category, r.source, line, fmt.Sprintf(format, args...)))
}

func formatFinding(category, source string, line int, explanation string) string {
	if line > 0 {
		return fmt.Sprintf("Found %s in %s at line %d: %s", category, source, line, explanation)
	}
	return fmt.Sprintf("Found %s in %s: %s", category, source, explanation)
}

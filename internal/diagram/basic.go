package diagram

import (
	"fmt"
	"strings"

	"github.com/li-yechao/aigne-doc-smith-sub000/internal/errors"
	"github.com/li-yechao/aigne-doc-smith-sub000/internal/mermaid"
)

var knownTypes = func() map[string]bool {
	m := make(map[string]bool)
	for _, k := range mermaid.Keywords() {
		m[k] = true
	}
	return m
}()

func emptyDiagram() error {
	return errors.NewSyntaxError(errors.ErrCodeEmptyDiagram, "Empty diagram").WithComponent("diagram")
}

// ValidateBasic is a coarse syntax check that needs no sandbox. It checks
// the diagram type keyword, bracket totals and quote parity.
func ValidateBasic(content string) error {
	if strings.TrimSpace(content) == "" {
		return emptyDiagram()
	}

	header := ""
	for _, l := range strings.Split(content, "\n") {
		l = strings.TrimSpace(l)
		if l == "" || strings.HasPrefix(l, "%%") {
			continue
		}
		header = l
		break
	}
	if !knownTypes[headerKeyword(header)] {
		return errors.NewSyntaxError(errors.ErrCodeDiagramType,
			fmt.Sprintf("Invalid or missing diagram type in %q", header)).WithComponent("diagram")
	}

	open := strings.Count(content, "[") + strings.Count(content, "{") + strings.Count(content, "(")
	closed := strings.Count(content, "]") + strings.Count(content, "}") + strings.Count(content, ")")
	if open != closed {
		return errors.NewSyntaxError(errors.ErrCodeUnmatchedBrackets,
			fmt.Sprintf("Unmatched brackets: %d opening, %d closing", open, closed)).WithComponent("diagram")
	}

	if strings.Count(content, "'")%2 != 0 {
		return errors.NewSyntaxError(errors.ErrCodeUnmatchedSingleQuote, "Unmatched single quotes").WithComponent("diagram")
	}
	if strings.Count(content, `"`)%2 != 0 {
		return errors.NewSyntaxError(errors.ErrCodeUnmatchedDoubleQuote, "Unmatched double quotes").WithComponent("diagram")
	}

	return nil
}

func headerKeyword(line string) string {
	if i := strings.IndexAny(line, " \t;"); i >= 0 {
		return line[:i]
	}
	return line
}

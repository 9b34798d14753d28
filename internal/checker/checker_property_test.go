//go:build property

package checker

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestCheckerProperties checks that scanning never fails on arbitrary input
func TestCheckerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	rowChars := pieces("|", "`", "\\", "a", " ", "-", ":")

	// Property: the tokenizer never panics and always reports at least one cell
	properties.Property("cell count is positive", prop.ForAll(
		func(line string) bool {
			cells, _ := CountCells(line)
			return cells >= 1
		},
		rowChars,
	))

	// Property: without separators a row is a single cell
	properties.Property("rows without pipes are one cell", prop.ForAll(
		func(line string) bool {
			line = strings.ReplaceAll(line, "|", "")
			cells, table := CountCells(line)
			return cells == 1 && !table
		},
		gen.AnyString(),
	))

	// Property: n plain cells between pipes count as n
	properties.Property("plain rows count their cells", prop.ForAll(
		func(n int, edges bool) bool {
			cells := make([]string, n)
			for i := range cells {
				cells[i] = fmt.Sprintf(" c%d ", i)
			}
			row := strings.Join(cells, "|")
			if edges {
				row = "|" + row + "|"
			}
			got, _ := CountCells(row)
			return got == n
		},
		gen.IntRange(2, 12),
		gen.Bool(),
	))

	// Property: every report line starts with "Found" and names the source
	properties.Property("arbitrary text yields well formed reports", prop.ForAll(
		func(text string) bool {
			msgs := newTestChecker().CheckMarkdown(context.Background(), text, "fuzz.md", Options{})
			for _, m := range msgs {
				if !strings.HasPrefix(m, "Found ") || !strings.Contains(m, " in fuzz.md") {
					return false
				}
			}
			return true
		},
		pieces("# h", "|a|b|", "|---|", "```", "```mermaid", "text.", "[x](y)", "\n", " "),
	))

	properties.TestingRun(t)
}

// pieces generates strings built from the given fragments.
func pieces(parts ...string) gopter.Gen {
	return gen.SliceOf(gen.IntRange(0, len(parts)-1)).Map(func(idx []int) string {
		var b strings.Builder
		for _, i := range idx {
			b.WriteString(parts[i])
		}
		return b.String()
	})
}

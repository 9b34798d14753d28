package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "# Guide\n" +
	"\n" +
	"See [setup](./setup.md#install) and [home](/).\n" +
	"![logo](./logo.png)\n" +
	"\n" +
	"```mermaid\n" +
	"flowchart TD\n" +
	"  A --> B\n" +
	"```\n" +
	"\n" +
	"## Usage\n" +
	"\n" +
	"Use the [api][ref].\n" +
	"\n" +
	"[ref]: ./api.md\n"

func TestParseDocument(t *testing.T) {
	doc := Parse(sample)

	require.Len(t, doc.Headings, 2)
	assert.Equal(t, Heading{Level: 1, Text: "Guide", Line: 1}, doc.Headings[0])
	assert.Equal(t, Heading{Level: 2, Text: "Usage", Line: 11}, doc.Headings[1])

	require.Len(t, doc.Links, 3)
	assert.Equal(t, Link{Text: "setup", Destination: "./setup.md#install", Line: 3}, doc.Links[0])
	assert.Equal(t, "/", doc.Links[1].Destination)
	assert.Equal(t, "./api.md", doc.Links[2].Destination)
	assert.True(t, doc.Links[2].Reference)
	assert.False(t, doc.Links[1].Reference)
	assert.Equal(t, 13, doc.Links[2].Line)

	require.Len(t, doc.CodeBlocks, 1)
	block := doc.CodeBlocks[0]
	assert.Equal(t, "mermaid", block.Language)
	assert.Equal(t, 6, block.Line)
	assert.Equal(t, 7, block.ContentLine)
	assert.Equal(t, "flowchart TD\n  A --> B\n", block.Content)

	assert.Equal(t, "./api.md", doc.References["ref"])
}

func TestParseHTML(t *testing.T) {
	doc := Parse("Text with <kbd>Ctrl</kbd> keys.\n\n<details>\n<summary>More</summary>\n</details>\n")
	require.Len(t, doc.HTML, 3)
	assert.Equal(t, HTMLFragment{Text: "<kbd>", Line: 1}, doc.HTML[0])
	assert.Equal(t, HTMLFragment{Text: "</kbd>", Line: 1}, doc.HTML[1])
	assert.Equal(t, 3, doc.HTML[2].Line)
	assert.Contains(t, doc.HTML[2].Text, "<summary>More</summary>")
}

func TestInFence(t *testing.T) {
	doc := Parse("a\n```\n| x |\n```\nb\n~~~~\nc\n")
	var fenced []int
	for i := range doc.Lines {
		if doc.InFence(i + 1) {
			fenced = append(fenced, i+1)
		}
	}
	assert.Equal(t, []int{2, 3, 4, 6, 7, 8}, fenced)
	assert.False(t, doc.InFence(0))
	assert.False(t, doc.InFence(100))
}

func TestLineAt(t *testing.T) {
	doc := Parse("ab\ncd\n\nef")
	assert.Equal(t, 1, doc.LineAt(0))
	assert.Equal(t, 1, doc.LineAt(2))
	assert.Equal(t, 2, doc.LineAt(3))
	assert.Equal(t, 4, doc.LineAt(7))
}

func TestMaskCodeSpans(t *testing.T) {
	assert.Equal(t, "a `     ` b", MaskCodeSpans("a `x | y` b"))
	assert.Equal(t, "``       `` z", MaskCodeSpans("`` a ` b `` z"))
	assert.Equal(t, "open ` only", MaskCodeSpans("open ` only"))
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, NormalizeLabel("Straße  Setup"), NormalizeLabel("STRASSE setup"))
	assert.Equal(t, NormalizeLabel("Caf\u00e9"), NormalizeLabel("Cafe\u0301"))
}

func lintIDs(diags []Diagnostic) []string {
	var ids []string
	for _, d := range diags {
		ids = append(ids, d.RuleID)
	}
	return ids
}

func TestLintRules(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		ids   []string
		lines []int
	}{
		{
			name: "clean document",
			src:  "# Title\n\nSome [link](./a.md).\n",
		},
		{
			name:  "reversed link",
			src:   "See (the docs)[./docs.md] now.\n",
			ids:   []string{"MD011"},
			lines: []int{1},
		},
		{
			name:  "indented heading",
			src:   "Intro.\n\n  ## Setup\n",
			ids:   []string{"MD023"},
			lines: []int{3},
		},
		{
			name:  "duplicate heading",
			src:   "# Setup\n\ntext\n\n## setup\n",
			ids:   []string{"MD024"},
			lines: []int{5},
		},
		{
			name:  "empty link",
			src:   "Click [here]() or [there](#).\n",
			ids:   []string{"MD042", "MD042"},
			lines: []int{1, 1},
		},
		{
			name:  "undefined reference",
			src:   "Use [api][missing] and [ok][ref].\n\n[ref]: ./ok.md\n",
			ids:   []string{"MD052"},
			lines: []int{1},
		},
		{
			name:  "unclosed details",
			src:   "<details>\n<summary>More</summary>\n\nBody text.\n",
			ids:   []string{"DS001"},
			lines: []int{1},
		},
		{
			name: "closed details",
			src:  "<details>\n<summary>More</summary>\n\nBody text.\n\n</details>\n",
		},
		{
			name:  "stray closing tag",
			src:   "Text.\n\n</div>\n",
			ids:   []string{"DS001"},
			lines: []int{3},
		},
		{
			name: "code is ignored",
			src:  "```md\n  # not a heading\n(a)[b]\n[x][nope]\n```\n\nUse `(a)[b]` inline.\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := Lint(Parse(tt.src), nil)
			assert.Equal(t, tt.ids, lintIDs(diags))
			var lines []int
			for _, d := range diags {
				lines = append(lines, d.Line)
			}
			assert.Equal(t, tt.lines, lines)
		})
	}
}

func TestLintSelectedRules(t *testing.T) {
	doc := Parse("# A\n\n# A\n\nSee (x)[y].\n")
	assert.Equal(t, []string{"MD024", "MD011"}, lintIDs(Lint(doc, nil)))
	assert.Equal(t, []string{"MD011"}, lintIDs(Lint(doc, []string{"MD011", "NOPE"})))
}

func TestDiagnosticString(t *testing.T) {
	d := Diagnostic{RuleID: "MD024", Name: "no-duplicate-heading", Message: "Multiple headings", Context: "Setup"}
	assert.Equal(t, `MD024/no-duplicate-heading Multiple headings [Context: "Setup"]`, d.String())
}

func TestRulesRegistered(t *testing.T) {
	var ids []string
	for _, r := range Rules() {
		ids = append(ids, r.ID)
		assert.NotEmpty(t, r.Description)
	}
	assert.Equal(t, []string{"DS001", "MD011", "MD023", "MD024", "MD042", "MD052"}, ids)
}

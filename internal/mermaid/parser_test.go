package mermaid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/li-yechao/aigne-doc-smith-sub000/internal/errors"
)

func TestParseValidDiagrams(t *testing.T) {
	tests := []struct {
		name    string
		content string
		kind    DiagramType
	}{
		{
			name:    "flowchart with shapes and labels",
			content: "flowchart TD\n    A[Start] --> B{Is it?}\n    B -->|Yes| C[OK]\n    B -- No --> D[End]",
			kind:    TypeFlowchart,
		},
		{
			name:    "graph with semicolons",
			content: "graph LR; A-->B; B-->C",
			kind:    TypeFlowchart,
		},
		{
			name:    "flowchart with subgraph and quoted label",
			content: "flowchart LR\n  subgraph one\n    a1[\"Load (v2)\"] --> a2\n  end\n  classDef hot fill:#f96\n  a1 & a2 --> b:::hot",
			kind:    TypeFlowchart,
		},
		{
			name:    "flowchart after front matter",
			content: "---\ntitle: Flow\n---\nflowchart LR\n  %% comment\n  A-->B",
			kind:    TypeFlowchart,
		},
		{
			name: "sequence with blocks and activation",
			content: "sequenceDiagram\n    participant Alice\n    participant Bob\n    Alice->>+Bob: Hello\n" +
				"    loop Every minute\n        Bob-->>-Alice: Hi\n    end\n    Note right of Bob: thinking",
			kind: TypeSequence,
		},
		{
			name:    "sequence alt else",
			content: "sequenceDiagram\n  alt ok\n    A->>B: yes\n  else failed\n    A->>B: no\n  end",
			kind:    TypeSequence,
		},
		{
			name:    "state diagram",
			content: "stateDiagram-v2\n[*] --> Still\nStill --> Moving : push\nstate Moving {\n  a --> b\n}\nMoving --> [*]",
			kind:    TypeState,
		},
		{
			name:    "class diagram",
			content: "classDiagram\nAnimal <|-- Duck\nclass Duck {\n  +swim()\n}\nAnimal : +int age",
			kind:    TypeClass,
		},
		{
			name:    "er diagram",
			content: "erDiagram\nCUSTOMER ||--o{ ORDER : places\nORDER {\n  string id PK\n}",
			kind:    TypeER,
		},
		{
			name:    "pie",
			content: "pie title Pets\n\"Dogs\" : 386\n\"Cats\" : 85.5",
			kind:    TypePie,
		},
		{
			name:    "gantt",
			content: "gantt\ntitle A\ndateFormat YYYY-MM-DD\nsection S\nTask one :a1, 2024-01-01, 3d",
			kind:    TypeGantt,
		},
		{
			name:    "journey",
			content: "journey\ntitle My day\nsection Work\nMake tea: 5: Me",
			kind:    TypeJourney,
		},
		{
			name:    "mindmap",
			content: "mindmap\n  root((mindmap))\n    A",
			kind:    TypeGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewParser().Parse(tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, d.Type)
			assert.Positive(t, d.Statements)
		})
	}
}

func TestParseInvalidDiagrams(t *testing.T) {
	tests := []struct {
		name    string
		content string
		line    int
	}{
		{"unknown header", "notadiagram\nA --> B", 1},
		{"bad direction", "flowchart XY\nA-->B", 1},
		{"unclosed shape", "flowchart TD\n    A[Start --> B", 2},
		{"dangling link", "flowchart TD\n    A -->", 2},
		{"unquoted parens in label", "flowchart TD\n    A[call(x)] --> B", 2},
		{"subgraph never closed", "flowchart TD\n  subgraph one\n  A-->B", 2},
		{"stray end", "flowchart TD\n  A-->B\n  end", 3},
		{"message without text", "sequenceDiagram\nAlice->>Bob hi", 2},
		{"loop never closed", "sequenceDiagram\nAlice->>Bob: hi\nloop x\nAlice->>Bob: y", 3},
		{"else outside alt", "sequenceDiagram\nelse nope", 2},
		{"inactive participant", "sequenceDiagram\ndeactivate Bob", 2},
		{"state block never closed", "stateDiagram-v2\nstate Moving {\na --> b", 2},
		{"bad transition", "stateDiagram\nA -->", 2},
		{"class body never closed", "classDiagram\nclass Duck {\n+swim()", 2},
		{"er relation without label", "erDiagram\nCUSTOMER places ORDER", 2},
		{"pie slice not a number", "pie\n\"Dogs\" : many", 2},
		{"gantt task without metadata", "gantt\nsection S\nTask without meta", 3},
		{"journey score not a number", "journey\nMake tea: lots: Me", 2},
		{"generic unclosed paren", "mindmap\n root((x)", 2},
		{"line numbers include front matter", "---\ntitle: x\n---\nflowchart LR\nA[x", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser().Parse(tt.content)
			require.Error(t, err)
			assert.True(t, errors.IsSyntax(err))
			assert.False(t, errors.IsInfrastructure(err))

			var de *errors.DocsmithError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.line, de.Line)
			assert.Contains(t, errors.Message(err), "Parse error on line")
		})
	}
}

func TestParseEmpty(t *testing.T) {
	for _, content := range []string{"", "   ", "\n\n", "%% only a comment"} {
		_, err := NewParser().Parse(content)
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeEmptyDiagram, errors.Code(err))
		assert.Equal(t, "Empty diagram", errors.Message(err))
	}
}

func TestParserReuse(t *testing.T) {
	p := NewParser()

	_, err := p.Parse("sequenceDiagram\nloop forever\nA->>B: x")
	require.Error(t, err)

	d, err := p.Parse("sequenceDiagram\nA->>B: x")
	require.NoError(t, err)
	assert.Equal(t, 2, d.Nodes)
	assert.Equal(t, 1, d.Edges)
}

func TestFlowchartCounts(t *testing.T) {
	d, err := NewParser().Parse("graph TD\nA --> B & C\nB --> D")
	require.NoError(t, err)
	assert.Equal(t, "graph", d.Keyword)
	assert.Equal(t, 4, d.Nodes)
	assert.Equal(t, 2, d.Edges)
}

func TestKeywords(t *testing.T) {
	kw := Keywords()
	assert.Contains(t, kw, "flowchart")
	assert.Contains(t, kw, "sequenceDiagram")
	assert.IsIncreasing(t, kw)
}

func TestIdentHyphen(t *testing.T) {
	sc := &scanner{src: "node-a-->b"}
	assert.Equal(t, "node-a", sc.ident())
	assert.Equal(t, "-->b", sc.rest())
}

func TestSplitStatements(t *testing.T) {
	assert.Equal(t, []string{"A-->B", " B[\"x;y\"]"}, splitStatements("A-->B; B[\"x;y\"]"))
}

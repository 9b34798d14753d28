// Package mermaid implements a grammar checker for Mermaid diagram sources.
//
// The Parser is stateful: it keeps node registries, open block stacks and
// activation counters between statements of one diagram and reuses its
// buffers between calls. It is therefore not safe for concurrent use. The
// sandbox package gives every execution unit its own Parser so that units
// never share this state.
//
// The checker covers the grammar of flowcharts, sequence, state, class, ER,
// pie, gantt and journey diagrams. Every other known diagram type is accepted
// after a header and delimiter-balance check.
package mermaid

import (
	"fmt"
	"sort"
	"strings"

	"github.com/li-yechao/aigne-doc-smith-sub000/internal/errors"
)

// DiagramType identifies the grammar a diagram is parsed with.
type DiagramType string

const (
	TypeFlowchart DiagramType = "flowchart"
	TypeSequence  DiagramType = "sequence"
	TypeState     DiagramType = "state"
	TypeClass     DiagramType = "class"
	TypeER        DiagramType = "er"
	TypePie       DiagramType = "pie"
	TypeGantt     DiagramType = "gantt"
	TypeJourney   DiagramType = "journey"
	TypeGeneric   DiagramType = "generic"
)

// keywords maps a header keyword to the grammar used for the body.
var keywords = map[string]DiagramType{
	"graph":              TypeFlowchart,
	"flowchart":          TypeFlowchart,
	"flowchart-elk":      TypeFlowchart,
	"sequenceDiagram":    TypeSequence,
	"stateDiagram":       TypeState,
	"stateDiagram-v2":    TypeState,
	"classDiagram":       TypeClass,
	"classDiagram-v2":    TypeClass,
	"erDiagram":          TypeER,
	"pie":                TypePie,
	"gantt":              TypeGantt,
	"journey":            TypeJourney,
	"gitGraph":           TypeGeneric,
	"mindmap":            TypeGeneric,
	"timeline":           TypeGeneric,
	"quadrantChart":      TypeGeneric,
	"requirementDiagram": TypeGeneric,
	"C4Context":          TypeGeneric,
	"C4Container":        TypeGeneric,
	"C4Component":        TypeGeneric,
	"C4Dynamic":          TypeGeneric,
	"C4Deployment":       TypeGeneric,
	"sankey-beta":        TypeGeneric,
	"xychart-beta":       TypeGeneric,
	"block-beta":         TypeGeneric,
	"packet-beta":        TypeGeneric,
	"architecture-beta":  TypeGeneric,
	"kanban":             TypeGeneric,
	"zenuml":             TypeGeneric,
}

// Keywords returns every diagram header keyword the parser recognises,
// sorted.
func Keywords() []string {
	out := make([]string, 0, len(keywords))
	for k := range keywords {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Diagram summarises a successfully parsed diagram.
type Diagram struct {
	Keyword    string
	Type       DiagramType
	Statements int
	Nodes      int
	Edges      int
}

// line is one source line with its 1-based number in the diagram text.
type line struct {
	num  int
	text string
}

// Parser checks Mermaid sources. The zero value is not usable; call NewParser.
type Parser struct {
	lines   []line
	nodes   map[string]struct{}
	blocks  []block
	active  map[string]int
	diagram Diagram
}

// block is an open construct waiting for its terminator.
type block struct {
	kind string
	line int
}

// NewParser creates a parser with empty state.
func NewParser() *Parser {
	return &Parser{
		nodes:  make(map[string]struct{}),
		active: make(map[string]int),
	}
}

func (p *Parser) reset() {
	p.lines = p.lines[:0]
	for k := range p.nodes {
		delete(p.nodes, k)
	}
	for k := range p.active {
		delete(p.active, k)
	}
	p.blocks = p.blocks[:0]
	p.diagram = Diagram{}
}

// Parse checks content and returns a summary, or a syntax error carrying the
// 1-based line of the first problem.
func (p *Parser) Parse(content string) (*Diagram, error) {
	p.reset()
	p.split(content)

	if len(p.lines) == 0 {
		return nil, errors.NewSyntaxError(errors.ErrCodeEmptyDiagram, "Empty diagram")
	}

	header := p.lines[0]
	keyword, rest := splitHeader(header.text)
	kind, ok := keywords[keyword]
	if !ok {
		return nil, syntaxErr(header.num, "No diagram type detected for text: %q", truncate(header.text, 40))
	}
	p.diagram.Keyword = keyword
	p.diagram.Type = kind

	var err error
	switch kind {
	case TypeFlowchart:
		err = p.parseFlowchart(header, rest)
	case TypeSequence:
		err = p.parseSequence()
	case TypeState:
		err = p.parseState()
	case TypeClass:
		err = p.parseClass()
	case TypeER:
		err = p.parseER()
	case TypePie:
		err = p.parsePie(rest)
	case TypeGantt:
		err = p.parseGantt()
	case TypeJourney:
		err = p.parseJourney()
	default:
		err = p.parseGeneric()
	}
	if err != nil {
		return nil, err
	}

	d := p.diagram
	d.Nodes = len(p.nodes)
	return &d, nil
}

// split drops YAML front matter, blank lines and %% comments or directives,
// keeping original line numbers.
func (p *Parser) split(content string) {
	raw := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")

	i := 0
	for i < len(raw) && strings.TrimSpace(raw[i]) == "" {
		i++
	}
	if i < len(raw) && strings.TrimSpace(raw[i]) == "---" {
		for j := i + 1; j < len(raw); j++ {
			if strings.TrimSpace(raw[j]) == "---" {
				i = j + 1
				break
			}
		}
	}

	for ; i < len(raw); i++ {
		text := strings.TrimSpace(raw[i])
		if text == "" || strings.HasPrefix(text, "%%") {
			continue
		}
		p.lines = append(p.lines, line{num: i + 1, text: text})
	}
}

func (p *Parser) push(kind string, num int) {
	p.blocks = append(p.blocks, block{kind: kind, line: num})
}

func (p *Parser) pop(num int, allowed ...string) (block, error) {
	if len(p.blocks) == 0 {
		return block{}, syntaxErr(num, "Unexpected 'end' without an open block")
	}
	top := p.blocks[len(p.blocks)-1]
	if len(allowed) > 0 && !contains(allowed, top.kind) {
		return block{}, syntaxErr(num, "Unexpected terminator for '%s' opened on line %d", top.kind, top.line)
	}
	p.blocks = p.blocks[:len(p.blocks)-1]
	return top, nil
}

func (p *Parser) checkClosed() error {
	if len(p.blocks) == 0 {
		return nil
	}
	top := p.blocks[len(p.blocks)-1]
	return syntaxErr(top.line, "'%s' block is never closed", top.kind)
}

func splitHeader(text string) (keyword, rest string) {
	text = strings.TrimSpace(text)
	end := strings.IndexAny(text, " \t;")
	if end < 0 {
		return text, ""
	}
	return text[:end], strings.TrimSpace(text[end:])
}

func syntaxErr(num int, format string, args ...interface{}) error {
	return errors.NewSyntaxError(errors.ErrCodeParse, fmt.Sprintf(format, args...)).
		WithLine(num).
		WithComponent("mermaid")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

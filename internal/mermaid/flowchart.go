package mermaid

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var directions = map[string]bool{"TB": true, "TD": true, "BT": true, "RL": true, "LR": true}

// shape delimiters, longest openers first.
var shapes = []struct {
	open   string
	closes []string
}{
	{"(((", []string{")))"}},
	{"((", []string{"))"}},
	{"([", []string{"])"}},
	{"[[", []string{"]]"}},
	{"[(", []string{")]"}},
	{"[/", []string{"/]", `\]`}},
	{`[\`, []string{`\]`, "/]"}},
	{"{{", []string{"}}"}},
	{"(", []string{")"}},
	{"[", []string{"]"}},
	{"{", []string{"}"}},
	{">", []string{"]"}},
}

var (
	reArrow    = regexp.MustCompile(`^(<|o|x)?(-{2,}|={2,}|-\.+-|~{3,})(>|o|x)?`)
	reTextEdge = regexp.MustCompile(`^<?(?:--|==|-\.)\s*([^|]*?)\s*(?:-{2,}[>ox]|-{3,}|={2,}>|={3,}|\.-+>|\.-+)`)
)

func (p *Parser) parseFlowchart(header line, rest string) error {
	if rest != "" {
		stmts := splitStatements(rest)
		if first := strings.TrimSpace(stmts[0]); first != "" && !directions[first] {
			return syntaxErr(header.num, "Invalid flowchart direction %q, expected one of TB, TD, BT, RL, LR", first)
		}
		for _, s := range stmts[1:] {
			if err := p.flowStatement(header.num, s); err != nil {
				return err
			}
		}
	}

	for _, ln := range p.lines[1:] {
		for _, s := range splitStatements(ln.text) {
			if err := p.flowStatement(ln.num, s); err != nil {
				return err
			}
		}
	}

	return p.checkClosed()
}

func (p *Parser) flowStatement(num int, s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	p.diagram.Statements++

	word, args := splitHeader(s)
	switch word {
	case "subgraph":
		if args == "" {
			return syntaxErr(num, "subgraph requires an id or title")
		}
		p.push("subgraph", num)
		return nil
	case "end":
		_, err := p.pop(num, "subgraph")
		return err
	case "direction":
		if !directions[args] {
			return syntaxErr(num, "Invalid direction %q", args)
		}
		return nil
	case "classDef", "class", "style", "linkStyle", "click":
		if args == "" {
			return syntaxErr(num, "'%s' requires arguments", word)
		}
		return nil
	}
	if strings.HasPrefix(word, "accTitle") || strings.HasPrefix(word, "accDescr") {
		return nil
	}

	return p.flowChain(num, s)
}

func (p *Parser) flowChain(num int, s string) error {
	sc := &scanner{src: s, num: num}
	if err := p.nodeGroup(sc); err != nil {
		return err
	}

	for {
		sc.skipSpace()
		if sc.eof() {
			return nil
		}
		if err := sc.link(); err != nil {
			return err
		}
		p.diagram.Edges++

		sc.skipSpace()
		if sc.eof() {
			return syntaxErr(num, "Expecting a node after the link in %q", truncate(s, 40))
		}
		if err := p.nodeGroup(sc); err != nil {
			return err
		}
	}
}

func (p *Parser) nodeGroup(sc *scanner) error {
	for {
		if err := p.node(sc); err != nil {
			return err
		}
		save := sc.pos
		sc.skipSpace()
		if !sc.consume("&") {
			sc.pos = save
			return nil
		}
		sc.skipSpace()
	}
}

func (p *Parser) node(sc *scanner) error {
	id := sc.ident()
	if id == "" {
		return syntaxErr(sc.num, "Expecting a node id, got %q", truncate(sc.rest(), 20))
	}
	p.nodes[id] = struct{}{}

	if err := sc.shape(id); err != nil {
		return err
	}

	if sc.consume(":::") && sc.ident() == "" {
		return syntaxErr(sc.num, "Expecting a class name after ':::' on node %s", id)
	}

	return nil
}

// scanner walks a single flowchart statement.
type scanner struct {
	src string
	pos int
	num int
}

func (sc *scanner) eof() bool { return sc.pos >= len(sc.src) }

func (sc *scanner) rest() string { return sc.src[sc.pos:] }

func (sc *scanner) skipSpace() {
	for sc.pos < len(sc.src) && (sc.src[sc.pos] == ' ' || sc.src[sc.pos] == '\t') {
		sc.pos++
	}
}

func (sc *scanner) consume(prefix string) bool {
	if strings.HasPrefix(sc.rest(), prefix) {
		sc.pos += len(prefix)
		return true
	}
	return false
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// ident reads a node id. A single '-' is part of the id only when it joins
// two identifier characters, so "a-b" is one id and "a-->b" is not.
func (sc *scanner) ident() string {
	start := sc.pos
	for sc.pos < len(sc.src) {
		r, size := utf8.DecodeRuneInString(sc.src[sc.pos:])
		if isIdentRune(r) {
			sc.pos += size
			continue
		}
		if r == '-' && sc.pos > start {
			next, _ := utf8.DecodeRuneInString(sc.src[sc.pos+1:])
			if sc.pos+1 < len(sc.src) && isIdentRune(next) {
				sc.pos++
				continue
			}
		}
		break
	}
	return sc.src[start:sc.pos]
}

func (sc *scanner) shape(id string) error {
	rest := sc.rest()
	for _, sh := range shapes {
		if !strings.HasPrefix(rest, sh.open) {
			continue
		}
		sc.pos += len(sh.open)
		return sc.label(id, sh.closes)
	}
	return nil
}

func (sc *scanner) label(id string, closes []string) error {
	rest := sc.rest()

	if strings.HasPrefix(rest, `"`) {
		end := strings.Index(rest[1:], `"`)
		if end < 0 {
			return syntaxErr(sc.num, "Unterminated string in label of node %s", id)
		}
		sc.pos += end + 2
		for _, c := range closes {
			if sc.consume(c) {
				return nil
			}
		}
		return syntaxErr(sc.num, "Expecting %q to close node %s, got %q", closes[0], id, truncate(sc.rest(), 20))
	}

	idx, width := -1, 0
	for _, c := range closes {
		if i := strings.Index(rest, c); i >= 0 && (idx < 0 || i < idx) {
			idx, width = i, len(c)
		}
	}
	if idx < 0 {
		return syntaxErr(sc.num, "Unclosed shape on node %s, expecting %q", id, closes[0])
	}

	text := rest[:idx]
	if bad := strings.IndexAny(text, `[]{}()"`); bad >= 0 {
		return syntaxErr(sc.num, "Unexpected %q in label of node %s; wrap the label in double quotes", text[bad], id)
	}
	sc.pos += idx + width
	return nil
}

// link consumes one edge operator with its optional |label|.
func (sc *scanner) link() error {
	rest := sc.rest()

	if m := reArrow.FindStringSubmatch(rest); m != nil && (m[3] != "" || len(m[2]) >= 3) {
		sc.pos += len(m[0])
		save := sc.pos
		sc.skipSpace()
		if sc.consume("|") {
			end := strings.Index(sc.rest(), "|")
			if end < 0 {
				return syntaxErr(sc.num, "Unterminated link label, expecting '|'")
			}
			sc.pos += end + 1
			return nil
		}
		sc.pos = save
		return nil
	}

	if m := reTextEdge.FindString(rest); m != "" {
		sc.pos += len(m)
		return nil
	}

	return syntaxErr(sc.num, "Expecting a link such as '-->', got %q", truncate(rest, 20))
}

// splitStatements splits on ';' outside quotes and brackets.
func splitStatements(text string) []string {
	var (
		out   []string
		depth int
		quote bool
		start int
	)
	for i := 0; i < len(text); i++ {
		switch c := text[i]; {
		case c == '"':
			quote = !quote
		case quote:
		case c == '[' || c == '(' || c == '{':
			depth++
		case c == ']' || c == ')' || c == '}':
			if depth > 0 {
				depth--
			}
		case c == ';' && depth == 0:
			out = append(out, text[start:i])
			start = i + 1
		}
	}
	return append(out, text[start:])
}

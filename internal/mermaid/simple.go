package mermaid

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reStateTransition = regexp.MustCompile(`^(\[\*\]|[\w.-]+)\s*-->\s*(\[\*\]|[\w.-]+)\s*(?::.*)?$`)
	reStateDecl       = regexp.MustCompile(`^state\s+(?:"[^"]*"\s+as\s+)?[\w.-]+(?:\s*<<(?:fork|join|choice)>>)?\s*(\{)?$`)
	reStateDesc       = regexp.MustCompile(`^[\w.-]+\s*:.*$`)
	reStateID         = regexp.MustCompile(`^[\w.-]+$`)

	reClassRelation = regexp.MustCompile(`^("[^"]*"|[\w.~<>,-]+)\s*(?:"[^"]*"\s*)?(<\|--|--\|>|<\|\.\.|\.\.\|>|\*--|--\*|o--|--o|<--|-->|<\.\.|\.\.>|--|\.\.)\s*(?:"[^"]*"\s*)?("[^"]*"|[\w.~<>,-]+)\s*(?::.*)?$`)
	reClassDecl     = regexp.MustCompile(`^class\s+[\w.~<>,-]+(?:\s*\[.*\])?(?:\s*:::\s*\w+)?\s*(\{)?$`)
	reClassMember   = regexp.MustCompile(`^[\w.~<>,-]+\s*:.*$`)

	reERRelation  = regexp.MustCompile(`^("[^"]+"|[\w-]+)\s*(\|o|\|\||\}o|\}\|)(--|\.\.)(o\||\|\||o\{|\|\{)\s*("[^"]+"|[\w-]+)\s*:\s*\S.*$`)
	reEREntity    = regexp.MustCompile(`^("[^"]+"|[\w-]+)(?:\s*\[[^\]]*\])?\s*\{$`)
	reERAttribute = regexp.MustCompile(`^[\w()\[\],-]+\s+[\w-]+(?:\s+(?:PK|FK|UK)(?:\s*,\s*(?:PK|FK|UK))*)?(?:\s+"[^"]*")?$`)

	rePieSlice = regexp.MustCompile(`^"[^"]*"\s*:\s*(-?[0-9]*\.?[0-9]+)$`)
)

func (p *Parser) parseState() error {
	for _, ln := range p.lines[1:] {
		p.diagram.Statements++
		t := ln.text
		word, _ := splitHeader(t)

		switch {
		case t == "end note":
			if _, err := p.pop(ln.num, "note"); err != nil {
				return err
			}
		case p.inside("note"):
		case t == "}":
			if _, err := p.pop(ln.num, "state"); err != nil {
				return syntaxErr(ln.num, "Unexpected '}' without an open state")
			}
		case t == "--":
			if err := p.requireOpen(ln.num, "--", "state"); err != nil {
				return err
			}
		case word == "note":
			if !strings.Contains(t, ":") {
				p.push("note", ln.num)
			}
		case word == "direction":
			if _, args := splitHeader(t); !directions[args] {
				return syntaxErr(ln.num, "Invalid direction %q", args)
			}
		case word == "classDef", word == "class", word == "style",
			strings.HasPrefix(word, "accTitle"), strings.HasPrefix(word, "accDescr"), strings.HasPrefix(word, "title"):
		case word == "state":
			m := reStateDecl.FindStringSubmatch(t)
			if m == nil {
				return syntaxErr(ln.num, "Invalid state declaration %q", truncate(t, 40))
			}
			if m[1] == "{" {
				p.push("state", ln.num)
			}
		case strings.Contains(t, "-->"):
			m := reStateTransition.FindStringSubmatch(t)
			if m == nil {
				return syntaxErr(ln.num, "Invalid transition %q, expecting 'A --> B'", truncate(t, 40))
			}
			p.nodes[m[1]] = struct{}{}
			p.nodes[m[2]] = struct{}{}
			p.diagram.Edges++
		case reStateDesc.MatchString(t), reStateID.MatchString(t):
			p.nodes[strings.TrimSpace(strings.SplitN(t, ":", 2)[0])] = struct{}{}
		default:
			return syntaxErr(ln.num, "Unrecognised statement %q", truncate(t, 40))
		}
	}
	return p.checkClosed()
}

func (p *Parser) parseClass() error {
	for _, ln := range p.lines[1:] {
		p.diagram.Statements++
		t := ln.text
		word, _ := splitHeader(t)

		if p.inside("class") {
			if t == "}" {
				if _, err := p.pop(ln.num, "class"); err != nil {
					return err
				}
			} else if strings.Contains(t, "{") {
				return syntaxErr(ln.num, "Unexpected '{' inside class body")
			}
			continue
		}

		switch {
		case t == "}":
			if _, err := p.pop(ln.num, "namespace"); err != nil {
				return syntaxErr(ln.num, "Unexpected '}' without an open class")
			}
		case word == "namespace":
			if !strings.HasSuffix(t, "{") {
				return syntaxErr(ln.num, "namespace must open a block with '{'")
			}
			p.push("namespace", ln.num)
		case word == "class":
			m := reClassDecl.FindStringSubmatch(t)
			if m == nil {
				return syntaxErr(ln.num, "Invalid class declaration %q", truncate(t, 40))
			}
			if m[1] == "{" {
				p.push("class", ln.num)
			}
		case strings.HasPrefix(t, "<<"):
			if !strings.Contains(t, ">>") {
				return syntaxErr(ln.num, "Unterminated annotation %q", truncate(t, 40))
			}
		case word == "note", word == "direction", word == "classDef", word == "cssClass", word == "style",
			word == "click", word == "link", word == "callback",
			strings.HasPrefix(word, "accTitle"), strings.HasPrefix(word, "accDescr"), strings.HasPrefix(word, "title"):
		case reClassRelation.MatchString(t):
			p.diagram.Edges++
		case reClassMember.MatchString(t):
		default:
			return syntaxErr(ln.num, "Unrecognised statement %q", truncate(t, 40))
		}
	}
	return p.checkClosed()
}

func (p *Parser) parseER() error {
	for _, ln := range p.lines[1:] {
		p.diagram.Statements++
		t := ln.text
		word, _ := splitHeader(t)

		if p.inside("entity") {
			switch {
			case t == "}":
				if _, err := p.pop(ln.num, "entity"); err != nil {
					return err
				}
			case reERAttribute.MatchString(t):
			default:
				return syntaxErr(ln.num, "Invalid attribute %q, expecting 'type name [PK|FK|UK] [\"comment\"]'", truncate(t, 40))
			}
			continue
		}

		switch {
		case word == "direction", strings.HasPrefix(word, "accTitle"), strings.HasPrefix(word, "accDescr"), strings.HasPrefix(word, "title"):
		case reEREntity.MatchString(t):
			p.push("entity", ln.num)
		case reERRelation.MatchString(t):
			m := reERRelation.FindStringSubmatch(t)
			p.nodes[m[1]] = struct{}{}
			p.nodes[m[5]] = struct{}{}
			p.diagram.Edges++
		case t == "}":
			return syntaxErr(ln.num, "Unexpected '}' without an open entity")
		case reStateID.MatchString(t):
			p.nodes[t] = struct{}{}
		default:
			return syntaxErr(ln.num, "Invalid relationship %q, expecting 'A ||--o{ B : label'", truncate(t, 40))
		}
	}
	return p.checkClosed()
}

func (p *Parser) parsePie(rest string) error {
	if rest != "" {
		word, _ := splitHeader(rest)
		if word != "showData" && word != "title" {
			return syntaxErr(p.lines[0].num, "Unexpected %q after pie", truncate(rest, 20))
		}
	}

	for _, ln := range p.lines[1:] {
		p.diagram.Statements++
		word, _ := splitHeader(ln.text)
		switch {
		case word == "title", word == "showData",
			strings.HasPrefix(word, "accTitle"), strings.HasPrefix(word, "accDescr"):
		case rePieSlice.MatchString(ln.text):
			m := rePieSlice.FindStringSubmatch(ln.text)
			if v, err := strconv.ParseFloat(m[1], 64); err != nil || v < 0 {
				return syntaxErr(ln.num, "Pie slice values must be positive numbers, got %q", m[1])
			}
			p.diagram.Nodes++
		default:
			return syntaxErr(ln.num, "Invalid pie slice %q, expecting '\"label\" : value'", truncate(ln.text, 40))
		}
	}
	return nil
}

var ganttKeywords = map[string]bool{
	"title": true, "dateFormat": true, "axisFormat": true, "tickInterval": true,
	"excludes": true, "includes": true, "todayMarker": true, "weekday": true,
	"inclusiveEndDates": true, "topAxis": true, "section": true,
}

func (p *Parser) parseGantt() error {
	for _, ln := range p.lines[1:] {
		p.diagram.Statements++
		word, _ := splitHeader(ln.text)
		switch {
		case ganttKeywords[word], strings.HasPrefix(word, "accTitle"), strings.HasPrefix(word, "accDescr"), word == "click":
		case strings.Contains(ln.text, ":"):
			task := strings.SplitN(ln.text, ":", 2)
			if strings.TrimSpace(task[0]) == "" || strings.TrimSpace(task[1]) == "" {
				return syntaxErr(ln.num, "Invalid task %q, expecting 'name : metadata'", truncate(ln.text, 40))
			}
			p.diagram.Nodes++
		default:
			return syntaxErr(ln.num, "Invalid task %q, expecting 'name : metadata'", truncate(ln.text, 40))
		}
	}
	return nil
}

func (p *Parser) parseJourney() error {
	for _, ln := range p.lines[1:] {
		p.diagram.Statements++
		word, _ := splitHeader(ln.text)
		if word == "title" || word == "section" || strings.HasPrefix(word, "accTitle") || strings.HasPrefix(word, "accDescr") {
			continue
		}
		parts := strings.Split(ln.text, ":")
		if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" {
			return syntaxErr(ln.num, "Invalid journey task %q, expecting 'task: score: actors'", truncate(ln.text, 40))
		}
		score, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || score < 0 {
			return syntaxErr(ln.num, "Journey task score must be a number, got %q", strings.TrimSpace(parts[1]))
		}
		p.diagram.Nodes++
	}
	return nil
}

// parseGeneric checks that quotes and brackets balance for grammars that are
// not modelled statement by statement.
func (p *Parser) parseGeneric() error {
	var stack []block
	pairs := map[byte]byte{')': '(', ']': '[', '}': '{'}

	for _, ln := range p.lines[1:] {
		p.diagram.Statements++
		quote := false
		for i := 0; i < len(ln.text); i++ {
			c := ln.text[i]
			switch {
			case c == '"':
				quote = !quote
			case quote:
			case c == '(' || c == '[' || c == '{':
				stack = append(stack, block{kind: string(c), line: ln.num})
			case c == ')' || c == ']' || c == '}':
				if len(stack) == 0 || stack[len(stack)-1].kind[0] != pairs[c] {
					return syntaxErr(ln.num, "Unexpected %q", string(c))
				}
				stack = stack[:len(stack)-1]
			}
		}
		if quote {
			return syntaxErr(ln.num, "Unterminated string")
		}
	}
	if len(stack) > 0 {
		top := stack[len(stack)-1]
		return syntaxErr(top.line, "Unclosed %q", top.kind)
	}
	return nil
}

func (p *Parser) inside(kind string) bool {
	return len(p.blocks) > 0 && p.blocks[len(p.blocks)-1].kind == kind
}

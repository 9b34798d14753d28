package mermaid

import (
	"regexp"
	"strings"
)

var (
	reParticipant = regexp.MustCompile(`^(?:create\s+)?(participant|actor)\s+(\S.*?)(?:\s+as\s+(.+))?$`)
	reMessage     = regexp.MustCompile(`^(.+?)\s*(<<-->>|<<->>|-->>|->>|-->|->|--x|-x|--\)|-\))\s*([+-]?)\s*(.+?)\s*:(.*)$`)
	reNote        = regexp.MustCompile(`^[Nn]ote\s+(left of|right of|over)\s+([^:]+?)\s*:(.*)$`)
)

// seqOpeners are the sequence constructs closed by "end".
var seqOpeners = map[string]bool{
	"loop": true, "alt": true, "opt": true, "par": true, "par_over": true,
	"critical": true, "break": true, "rect": true, "box": true,
}

func (p *Parser) parseSequence() error {
	for _, ln := range p.lines[1:] {
		if err := p.seqStatement(ln); err != nil {
			return err
		}
	}
	return p.checkClosed()
}

func (p *Parser) seqStatement(ln line) error {
	p.diagram.Statements++
	word, args := splitHeader(ln.text)

	switch {
	case seqOpeners[word]:
		p.push(word, ln.num)
		return nil
	case word == "end":
		_, err := p.pop(ln.num)
		return err
	case word == "else":
		return p.requireOpen(ln.num, word, "alt")
	case word == "and":
		return p.requireOpen(ln.num, word, "par", "par_over")
	case word == "option":
		return p.requireOpen(ln.num, word, "critical")
	case word == "autonumber", word == "links", word == "link", word == "properties", word == "details":
		return nil
	case strings.HasPrefix(word, "title"), strings.HasPrefix(word, "accTitle"), strings.HasPrefix(word, "accDescr"):
		return nil
	case word == "activate":
		if args == "" {
			return syntaxErr(ln.num, "activate requires a participant")
		}
		p.active[args]++
		return nil
	case word == "deactivate":
		return p.deactivate(ln.num, args)
	case word == "destroy":
		if args == "" {
			return syntaxErr(ln.num, "destroy requires a participant")
		}
		return nil
	}

	if m := reParticipant.FindStringSubmatch(ln.text); m != nil {
		p.nodes[strings.TrimSpace(m[2])] = struct{}{}
		return nil
	}

	if m := reNote.FindStringSubmatch(ln.text); m != nil {
		actors := strings.Split(m[2], ",")
		if m[1] != "over" && len(actors) > 1 {
			return syntaxErr(ln.num, "Note %s accepts a single participant", m[1])
		}
		return nil
	}

	if m := reMessage.FindStringSubmatch(ln.text); m != nil {
		from, to := strings.TrimSpace(m[1]), strings.TrimSpace(m[4])
		if strings.ContainsAny(from, "<>") || strings.ContainsAny(to, "<>") {
			return syntaxErr(ln.num, "Invalid message arrow in %q", truncate(ln.text, 40))
		}
		p.nodes[from] = struct{}{}
		p.nodes[to] = struct{}{}
		p.diagram.Edges++
		switch m[3] {
		case "+":
			p.active[to]++
		case "-":
			if err := p.deactivate(ln.num, from); err != nil {
				return err
			}
		}
		return nil
	}

	if strings.Contains(ln.text, "->") || strings.Contains(ln.text, "--") {
		return syntaxErr(ln.num, "Invalid message, expecting 'A->>B: text', got %q", truncate(ln.text, 40))
	}
	return syntaxErr(ln.num, "Unrecognised statement %q", truncate(ln.text, 40))
}

func (p *Parser) requireOpen(num int, word string, kinds ...string) error {
	for i := len(p.blocks) - 1; i >= 0; i-- {
		if contains(kinds, p.blocks[i].kind) {
			return nil
		}
	}
	return syntaxErr(num, "'%s' is only valid inside %s", word, strings.Join(kinds, "/"))
}

func (p *Parser) deactivate(num int, actor string) error {
	actor = strings.TrimSpace(actor)
	if p.active[actor] <= 0 {
		return syntaxErr(num, "Trying to inactivate an inactive participant (%s)", actor)
	}
	p.active[actor]--
	return nil
}

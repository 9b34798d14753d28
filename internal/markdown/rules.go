package markdown

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

func init() {
	Register(RuleDef{
		ID:          "MD011",
		Name:        "no-reversed-links",
		Description: "Reversed link syntax (text)[target]",
		Check:       checkReversedLinks,
	})
	Register(RuleDef{
		ID:          "MD023",
		Name:        "heading-start-left",
		Description: "Headings must start at the beginning of the line",
		Check:       checkHeadingStartLeft,
	})
	Register(RuleDef{
		ID:          "MD024",
		Name:        "no-duplicate-heading",
		Description: "Multiple headings with the same content",
		Check:       checkDuplicateHeadings,
	})
	Register(RuleDef{
		ID:          "MD042",
		Name:        "no-empty-links",
		Description: "No empty links",
		Check:       checkEmptyLinks,
	})
	Register(RuleDef{
		ID:          "MD052",
		Name:        "reference-links-images",
		Description: "Reference links and images should use a label that is defined",
		Check:       checkUndefinedReferences,
	})
	Register(RuleDef{
		ID:          "DS001",
		Name:        "unclosed-html",
		Description: "Block-level HTML elements must be closed",
		Check:       checkUnclosedHTML,
	})
}

var (
	reReversedLink = regexp.MustCompile(`(^|[^\\])\(([^()]+)\)\[([^\]^][^\]]*)\]`)
	reIndentedATX  = regexp.MustCompile(`^( {1,3})(#{1,6})(\s|$)`)
	reFullRef      = regexp.MustCompile(`(!?)\[([^\[\]]+)\]\[([^\[\]]*)\]`)
)

// proseLines calls fn for every line outside fenced code with inline code
// spans blanked out.
func proseLines(doc *Document, fn func(num int, line string)) {
	for i, l := range doc.Lines {
		if doc.InFence(i + 1) {
			continue
		}
		fn(i+1, MaskCodeSpans(l))
	}
}

// MaskCodeSpans replaces the content of backtick code spans with spaces so
// that columns are preserved.
func MaskCodeSpans(line string) string {
	b := []byte(line)
	for i := 0; i < len(b); {
		if b[i] != '`' {
			i++
			continue
		}
		n := runLength(line[i:], '`')
		closer := strings.Index(line[i+n:], strings.Repeat("`", n))
		if closer < 0 {
			i += n
			continue
		}
		end := i + n + closer
		for j := i + n; j < end; j++ {
			b[j] = ' '
		}
		i = end + n
	}
	return string(b)
}

func checkReversedLinks(doc *Document) []Diagnostic {
	var out []Diagnostic
	proseLines(doc, func(num int, line string) {
		for _, loc := range reReversedLink.FindAllStringSubmatchIndex(line, -1) {
			if loc[1] < len(line) && line[loc[1]] == '(' {
				continue
			}
			out = append(out, Diagnostic{
				Line:    num,
				Message: "Reversed link syntax",
				Context: line[loc[4]-1 : loc[1]],
			})
		}
	})
	return out
}

func checkHeadingStartLeft(doc *Document) []Diagnostic {
	var out []Diagnostic
	proseLines(doc, func(num int, line string) {
		if reIndentedATX.MatchString(line) {
			out = append(out, Diagnostic{
				Line:    num,
				Message: "Headings must start at the beginning of the line",
				Context: strings.TrimSpace(doc.Lines[num-1]),
			})
		}
	})
	return out
}

func checkDuplicateHeadings(doc *Document) []Diagnostic {
	var out []Diagnostic
	seen := make(map[string]int)
	for _, h := range doc.Headings {
		key := NormalizeLabel(h.Text)
		if key == "" {
			continue
		}
		if first, ok := seen[key]; ok {
			out = append(out, Diagnostic{
				Line:    h.Line,
				Message: fmt.Sprintf("Multiple headings with the same content (first on line %d)", first),
				Context: h.Text,
			})
			continue
		}
		seen[key] = h.Line
	}
	return out
}

func checkEmptyLinks(doc *Document) []Diagnostic {
	var out []Diagnostic
	for _, l := range doc.Links {
		dest := strings.TrimSpace(l.Destination)
		if dest == "" || dest == "#" {
			out = append(out, Diagnostic{
				Line:    l.Line,
				Message: "No empty links",
				Context: fmt.Sprintf("[%s](%s)", l.Text, l.Destination),
			})
		}
	}
	return out
}

func checkUndefinedReferences(doc *Document) []Diagnostic {
	var out []Diagnostic
	proseLines(doc, func(num int, line string) {
		for _, m := range reFullRef.FindAllStringSubmatch(line, -1) {
			label := m[3]
			if label == "" {
				label = m[2]
			}
			if strings.HasPrefix(label, "^") {
				continue
			}
			if _, ok := doc.References[NormalizeLabel(label)]; ok {
				continue
			}
			out = append(out, Diagnostic{
				Line:    num,
				Message: fmt.Sprintf("Missing link or image reference definition: %q", strings.ToLower(label)),
				Context: m[0],
			})
		}
	})
	return out
}

// blockElements are the HTML elements whose missing end tag breaks the
// layout of everything that follows.
var blockElements = map[string]bool{
	"details": true, "summary": true, "div": true, "section": true, "aside": true,
	"figure": true, "blockquote": true, "pre": true, "table": true, "thead": true,
	"tbody": true, "tr": true, "ul": true, "ol": true,
}

type openTag struct {
	name string
	line int
}

func checkUnclosedHTML(doc *Document) []Diagnostic {
	var (
		out   []Diagnostic
		stack []openTag
	)

	for _, frag := range doc.HTML {
		z := html.NewTokenizer(strings.NewReader(frag.Text))
		offset := 0
		for {
			tt := z.Next()
			if tt == html.ErrorToken {
				break
			}
			line := frag.Line + strings.Count(frag.Text[:offset], "\n")
			offset += len(z.Raw())

			name, _ := z.TagName()
			tag := string(name)
			if !blockElements[tag] {
				continue
			}

			switch tt {
			case html.StartTagToken:
				stack = append(stack, openTag{name: tag, line: line})
			case html.EndTagToken:
				i := len(stack) - 1
				for i >= 0 && stack[i].name != tag {
					i--
				}
				if i < 0 {
					out = append(out, Diagnostic{
						Line:    line,
						Message: fmt.Sprintf("Closing tag </%s> has no matching opening tag", tag),
					})
					continue
				}
				for _, t := range stack[i+1:] {
					out = append(out, unclosed(t))
				}
				stack = stack[:i]
			}
		}
	}

	for _, t := range stack {
		out = append(out, unclosed(t))
	}
	return out
}

func unclosed(t openTag) Diagnostic {
	return Diagnostic{
		Line:    t.line,
		Message: fmt.Sprintf("Element <%s> is never closed", t.name),
	}
}

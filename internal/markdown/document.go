// Package markdown parses documentation sources once into a read-only
// Document and runs structural lint rules over it.
//
// Parsing uses goldmark with the GitHub Flavored Markdown extensions. The
// Document keeps the raw lines next to the AST because several checks need
// literal text that the AST normalises away.
package markdown

import (
	"bytes"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Heading is an ATX or setext heading.
type Heading struct {
	Level int
	Text  string
	Line  int
}

// Link is a link resolved by the parser. Reference is set for the
// [text][label], [label][] and [label] forms whose destination comes from a
// definition. Images and autolinks are not included.
type Link struct {
	Text        string
	Destination string
	Line        int
	Reference   bool
}

// CodeBlock is a fenced code block. Line is the opening fence and
// ContentLine the first line of Content.
type CodeBlock struct {
	Language    string
	Content     string
	Line        int
	ContentLine int
}

// HTMLFragment is raw HTML found in block or inline position.
type HTMLFragment struct {
	Text string
	Line int
}

// Document is a parsed markdown source. It is read-only after Parse.
type Document struct {
	Source     []byte
	Lines      []string
	Root       ast.Node
	References map[string]string
	Headings   []Heading
	Links      []Link
	CodeBlocks []CodeBlock
	HTML       []HTMLFragment

	lineStarts []int
	fenced     []bool
}

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Parse parses src. It never fails on malformed markdown; goldmark accepts
// any input.
func Parse(src string) *Document {
	source := []byte(src)
	pctx := parser.NewContext()
	root := md.Parser().Parse(text.NewReader(source), parser.WithContext(pctx))

	doc := &Document{
		Source:     source,
		Lines:      splitLines(src),
		Root:       root,
		References: make(map[string]string),
	}
	doc.lineStarts = lineStarts(source)
	doc.fenced = fenceMask(doc.Lines)

	for _, ref := range pctx.References() {
		doc.References[NormalizeLabel(string(ref.Label()))] = string(ref.Destination())
	}

	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Heading:
			if v.Lines().Len() > 0 {
				doc.Headings = append(doc.Headings, Heading{
					Level: v.Level,
					Text:  plainText(v, source),
					Line:  doc.LineAt(v.Lines().At(0).Start),
				})
			}
		case *ast.Link:
			doc.Links = append(doc.Links, Link{
				Text:        plainText(v, source),
				Destination: string(v.Destination),
				Line:        doc.LineAt(nodeOffset(v)),
				Reference:   isReferenceLink(v, source),
			})
		case *ast.FencedCodeBlock:
			doc.addCodeBlock(v)
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock:
			doc.addHTMLBlock(v)
		case *ast.RawHTML:
			var b bytes.Buffer
			for i := 0; i < v.Segments.Len(); i++ {
				seg := v.Segments.At(i)
				b.Write(seg.Value(source))
			}
			if v.Segments.Len() > 0 {
				doc.HTML = append(doc.HTML, HTMLFragment{Text: b.String(), Line: doc.LineAt(v.Segments.At(0).Start)})
			}
		}
		return ast.WalkContinue, nil
	})

	return doc
}

func (d *Document) addCodeBlock(v *ast.FencedCodeBlock) {
	var b strings.Builder
	lines := v.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(d.Source))
	}

	block := CodeBlock{
		Language: strings.ToLower(string(v.Language(d.Source))),
		Content:  b.String(),
	}
	switch {
	case lines.Len() > 0:
		block.ContentLine = d.LineAt(lines.At(0).Start)
		block.Line = block.ContentLine - 1
	case v.Info != nil:
		block.Line = d.LineAt(v.Info.Segment.Start)
		block.ContentLine = block.Line + 1
	default:
		return
	}
	d.CodeBlocks = append(d.CodeBlocks, block)
}

func (d *Document) addHTMLBlock(v *ast.HTMLBlock) {
	lines := v.Lines()
	if lines.Len() == 0 {
		return
	}
	var b bytes.Buffer
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(d.Source))
	}
	if v.HasClosure() {
		b.Write(v.ClosureLine.Value(d.Source))
	}
	d.HTML = append(d.HTML, HTMLFragment{Text: b.String(), Line: d.LineAt(lines.At(0).Start)})
}

// LineAt returns the 1-based line containing byte offset off.
func (d *Document) LineAt(off int) int {
	return sort.Search(len(d.lineStarts), func(i int) bool { return d.lineStarts[i] > off })
}

// InFence reports whether the 1-based line is a fence line or inside a
// fenced code block.
func (d *Document) InFence(line int) bool {
	return line >= 1 && line <= len(d.fenced) && d.fenced[line-1]
}

// NormalizeLabel folds a heading or reference label for comparison.
func NormalizeLabel(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	return cases.Fold().String(strings.Join(strings.Fields(s), " "))
}

func splitLines(src string) []string {
	lines := strings.Split(src, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func lineStarts(src []byte) []int {
	starts := []int{0}
	for i, c := range src {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// fenceMask marks fence lines and everything between them. An unclosed fence
// runs to the end of the document.
func fenceMask(lines []string) []bool {
	mask := make([]bool, len(lines))
	marker := ""
	for i, l := range lines {
		t := strings.TrimLeft(l, " ")
		if len(l)-len(t) > 3 {
			t = ""
		}
		if marker == "" {
			if m := fenceMarker(t); m != "" {
				marker = m
				mask[i] = true
			}
			continue
		}
		mask[i] = true
		if n := runLength(t, marker[0]); n >= len(marker) && strings.TrimSpace(t[n:]) == "" {
			marker = ""
		}
	}
	return mask
}

func fenceMarker(t string) string {
	for _, c := range []byte{'`', '~'} {
		if n := runLength(t, c); n >= 3 {
			return t[:n]
		}
	}
	return ""
}

func runLength(s string, c byte) int {
	n := 0
	for n < len(s) && s[n] == c {
		n++
	}
	return n
}

func plainText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := c.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(src))
			if v.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// isReferenceLink reports whether the closing bracket of the link text is
// followed by anything but "(". Links without text are treated as inline.
func isReferenceLink(n *ast.Link, src []byte) bool {
	end := -1
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := c.(*ast.Text); ok && entering && t.Segment.Stop > end {
			end = t.Segment.Stop
		}
		return ast.WalkContinue, nil
	})
	if end < 0 {
		return false
	}
	i := bytes.IndexByte(src[end:], ']')
	if i < 0 {
		return false
	}
	next := end + i + 1
	return next >= len(src) || src[next] != '('
}

// nodeOffset returns the first source offset covered by n or, for nodes
// without text, by its nearest ancestor.
func nodeOffset(n ast.Node) int {
	for c := n; c != nil; c = c.Parent() {
		if off := firstOffset(c); off >= 0 {
			return off
		}
	}
	return 0
}

func firstOffset(n ast.Node) int {
	switch v := n.(type) {
	case *ast.Text:
		return v.Segment.Start
	case *ast.RawHTML:
		if v.Segments.Len() > 0 {
			return v.Segments.At(0).Start
		}
	}
	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		return n.Lines().At(0).Start
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if off := firstOffset(c); off >= 0 {
			return off
		}
	}
	return -1
}

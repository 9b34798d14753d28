// Package checker validates generated documentation and reports every
// defect it finds as a human readable line.
//
// CheckMarkdown never fails. Content defects become report lines, diagram
// validator outages fall back to heuristic checks, and anything unexpected is
// turned into a single "checking error" line.
package checker

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/li-yechao/aigne-doc-smith-sub000/internal/diagram"
	"github.com/li-yechao/aigne-doc-smith-sub000/internal/errors"
	"github.com/li-yechao/aigne-doc-smith-sub000/internal/logging"
	"github.com/li-yechao/aigne-doc-smith-sub000/internal/markdown"
)

// SyntaxValidator checks one diagram. *diagram.Checker implements it.
type SyntaxValidator interface {
	ValidateSyntax(ctx context.Context, content string) error
}

// Config selects which fenced blocks are diagrams and which lint rules run.
type Config struct {
	// DiagramLanguages are fence info strings treated as diagrams.
	DiagramLanguages []string
	// LintRules restricts linting to these rule ids. Empty runs every rule.
	LintRules []string
}

// DefaultConfig checks mermaid blocks and runs every registered rule.
func DefaultConfig() Config {
	return Config{DiagramLanguages: []string{"mermaid"}}
}

// Options are per-call inputs.
type Options struct {
	// AllowedLinks enables the dead link check when set.
	AllowedLinks LinkSet
}

// Checker runs all document checks.
type Checker struct {
	syntax    SyntaxValidator
	languages map[string]bool
	lintRules []string
	logger    logging.Logger
}

// NewChecker creates a document checker that validates diagrams with syntax.
func NewChecker(syntax SyntaxValidator, cfg Config, logger logging.Logger) *Checker {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if len(cfg.DiagramLanguages) == 0 {
		cfg.DiagramLanguages = DefaultConfig().DiagramLanguages
	}

	languages := make(map[string]bool, len(cfg.DiagramLanguages))
	for _, l := range cfg.DiagramLanguages {
		languages[strings.ToLower(strings.TrimSpace(l))] = true
	}

	return &Checker{
		syntax:    syntax,
		languages: languages,
		lintRules: cfg.LintRules,
		logger:    logger.WithComponent("checker"),
	}
}

// CheckMarkdown validates text and returns its diagnostics in report order:
// links, structure, diagram rendering issues, tables, diagram syntax, lint.
// source names the document in every line.
func (c *Checker) CheckMarkdown(ctx context.Context, text, source string, opts Options) (messages []string) {
	r := &report{source: source}

	defer func() {
		if p := recover(); p != nil {
			err := errors.NewInternalError(errors.ErrCodeInternalError, fmt.Sprintf("panic: %v", p), nil).
				WithContext("stack", string(debug.Stack()))
			messages = c.abort(ctx, r, err)
		}
	}()

	if err := c.check(ctx, text, opts, r); err != nil {
		return c.abort(ctx, r, err)
	}

	c.logger.Debug(ctx, "Checked document", "source", source, "findings", len(r.messages))
	return r.messages
}

func (c *Checker) abort(ctx context.Context, r *report, err error) []string {
	c.logger.Error(ctx, err, "Document check aborted", "source", r.source)
	r.add(CategoryCheckingError, 0, "%s", errors.Message(err))
	return r.messages
}

// diagramResult is the outcome of one diagram block, kept in scan order.
type diagramResult struct {
	block markdown.CodeBlock
	err   error
}

func (c *Checker) check(ctx context.Context, text string, opts Options, r *report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc := markdown.Parse(text)

	if opts.AllowedLinks != nil {
		checkLinks(doc, opts.AllowedLinks, r)
	}

	checkStructure(text, r)

	var (
		g       errgroup.Group
		results []*diagramResult
	)
	for _, block := range doc.CodeBlocks {
		if !c.languages[block.Language] {
			continue
		}

		res := &diagramResult{block: block}
		results = append(results, res)
		g.Go(func() error {
			res.err = c.validateDiagram(ctx, res.block.Content)
			return nil
		})

		for _, f := range diagram.ScanAntiPatterns(block.Content) {
			r.add(CategoryDiagramPattern, block.ContentLine+f.Line-1, "%s (%s)", f.Message, f.Rule)
		}
	}

	checkTables(doc, r)

	if err := g.Wait(); err != nil {
		return err
	}
	for _, res := range results {
		c.reportDiagram(res, r)
	}

	for _, d := range markdown.Lint(doc, c.lintRules) {
		r.add(CategoryLint, d.Line, "%s", d.String())
	}
	return nil
}

// validateDiagram runs one syntax check and turns a panic into an error so a
// single block cannot abort the document.
func (c *Checker) validateDiagram(ctx context.Context, content string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.NewInternalError(errors.ErrCodeRuntime, fmt.Sprintf("diagram check panicked: %v", p), nil)
		}
	}()
	return c.syntax.ValidateSyntax(ctx, content)
}

func (c *Checker) reportDiagram(res *diagramResult, r *report) {
	if res.err == nil {
		return
	}

	if !errors.IsSyntax(res.err) {
		c.logger.Warn(context.Background(), res.err, "Diagram check failed", "line", res.block.Line)
		r.add(CategoryDiagramChecking, res.block.Line, "%s", errors.Message(res.err))
		return
	}

	line := res.block.Line
	var de *errors.DocsmithError
	if errors.As(res.err, &de) && de.Line > 0 {
		line = res.block.ContentLine + de.Line - 1
	}
	r.add(CategoryDiagramSyntax, line, "%s", errors.Message(res.err))
}

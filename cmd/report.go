package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/li-yechao/aigne-doc-smith-sub000/internal/config"
	"github.com/li-yechao/aigne-doc-smith-sub000/internal/errors"
)

// FileReport holds the findings of one document.
type FileReport struct {
	Source   string   `json:"source" yaml:"source"`
	Findings []string `json:"findings" yaml:"findings"`
}

// Summary is the result of checking a set of documents.
type Summary struct {
	Files    int          `json:"files" yaml:"files"`
	Findings int          `json:"findings" yaml:"findings"`
	Reports  []FileReport `json:"reports" yaml:"reports"`
}

func newSummary(reports []FileReport) *Summary {
	s := &Summary{Files: len(reports), Reports: reports}
	for _, r := range reports {
		s.Findings += len(r.Findings)
	}
	return s
}

func renderSummary(w io.Writer, format string, s *Summary) error {
	switch format {
	case config.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case config.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return errors.WrapIO(err, errors.ErrCodeInternalError, "failed to write report")
		}
		return enc.Close()
	case config.FormatTable:
		return renderTable(w, s)
	default:
		return renderText(w, s)
	}
}

func renderText(w io.Writer, s *Summary) error {
	for _, r := range s.Reports {
		for _, f := range r.Findings {
			_, _ = fmt.Fprintln(w, f)
		}
	}
	_, _ = fmt.Fprintf(w, "Checked %d file(s), %d finding(s)\n", s.Files, s.Findings)
	return nil
}

func renderTable(w io.Writer, s *Summary) error {
	if s.Findings == 0 {
		_, _ = fmt.Fprintf(w, "Checked %d file(s), no findings\n", s.Files)
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"File", "#", "Finding"})
	for _, r := range s.Reports {
		for i, f := range r.Findings {
			t.AppendRow(table.Row{r.Source, i + 1, f})
		}
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d file(s)", s.Files), s.Findings, ""})
	t.Render()
	return nil
}

package checker

import (
	"strings"

	"github.com/li-yechao/aigne-doc-smith-sub000/internal/markdown"
)

// CountCells returns the number of cells in a table row and whether the row
// contains any cell separator. Pipes inside backtick code spans and escaped
// pipes do not separate cells. A leading and a trailing pipe are optional and
// not counted as separators.
func CountCells(line string) (int, bool) {
	s := strings.TrimSpace(line)

	var pipes []int
	for i := 0; i < len(s); {
		switch s[i] {
		case '\\':
			i += 2
			continue
		case '`':
			n := 1
			for i+n < len(s) && s[i+n] == '`' {
				n++
			}
			closer := strings.Index(s[i+n:], strings.Repeat("`", n))
			if closer < 0 {
				i += n
				continue
			}
			i += n + closer + n
			continue
		case '|':
			pipes = append(pipes, i)
		}
		i++
	}

	if len(pipes) == 0 {
		return 1, false
	}
	cells := len(pipes) + 1
	leading := pipes[0] == 0
	if leading {
		cells--
	}
	if last := pipes[len(pipes)-1]; last == len(s)-1 && (last != 0 || !leading) {
		cells--
	}
	return cells, true
}

// isSeparatorRow reports whether line consists only of pipes, dashes, colons
// and whitespace with at least one pipe and one dash.
func isSeparatorRow(line string) bool {
	s := strings.TrimSpace(line)
	if !strings.Contains(s, "|") || !strings.Contains(s, "-") {
		return false
	}
	for _, c := range s {
		switch c {
		case '|', '-', ':', ' ', '\t':
		default:
			return false
		}
	}
	return true
}

// rowCells returns the cell count of a header-like or data-like row at the
// 1-based line n, or false when that line is not a table row.
func rowCells(doc *markdown.Document, n int) (int, bool) {
	if n < 1 || n > len(doc.Lines) || doc.InFence(n) {
		return 0, false
	}
	line := doc.Lines[n-1]
	if strings.TrimSpace(line) == "" || isSeparatorRow(line) {
		return 0, false
	}
	return CountCells(line)
}

// checkTables compares every separator row with the header row above it and
// with the data row below it. Each separator yields at most one message: the
// data row is only checked once the separator agrees with the header.
func checkTables(doc *markdown.Document, r *report) {
	for i, line := range doc.Lines {
		n := i + 1
		if doc.InFence(n) || !isSeparatorRow(line) {
			continue
		}
		header, ok := rowCells(doc, n-1)
		if !ok {
			continue
		}

		sep, _ := CountCells(line)
		if sep != header {
			r.add(CategoryColumnCount, n,
				"separator row has %d columns but header row at line %d has %d columns",
				sep, n-1, header)
			continue
		}
		if data, ok := rowCells(doc, n+1); ok && data != sep {
			r.add(CategoryColumnCount, n+1,
				"data row has %d columns but separator at line %d defines %d columns",
				data, n, sep)
		}
	}
}

package checker

import (
	"strings"
)

// checkStructure looks for truncated output: an unterminated code fence,
// content that is a single line and prose without terminal punctuation.
// Empty text yields nothing.
func checkStructure(text string, r *report) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return
	}

	open := 0
	toggles := 0
	for i, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			toggles++
			if toggles%2 == 1 {
				open = i + 1
			}
		}
	}
	if toggles%2 == 1 {
		r.add(CategoryIncompleteCode, open, "code block opened here is never closed")
	}

	if !strings.Contains(text, "\n") {
		r.add(CategorySingleLine, 0, "content is a single line without line breaks")
	}

	if !strings.HasSuffix(trimmed, ".") && !strings.HasSuffix(trimmed, "。") {
		r.add(CategoryIncomplete, 0, "content does not end with terminal punctuation, last line is %q", lastLine(trimmed))
	}
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	const maxLastLine = 60
	if r := []rune(s); len(r) > maxLastLine {
		return "..." + string(r[len(r)-maxLastLine:])
	}
	return s
}

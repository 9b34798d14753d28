package diagram

import (
	"fmt"
	"regexp"
	"strings"
)

// Finding is one anti-pattern match. Line is 1-based within the diagram.
type Finding struct {
	Rule    string
	Line    int
	Message string
}

type antiPattern struct {
	rule        string
	description string
	re          *regexp.Regexp
	message     func(match []string) string
}

// AntiPattern describes one rendering check.
type AntiPattern struct {
	Rule        string
	Description string
}

// AntiPatterns lists the checks ScanAntiPatterns runs, in order.
func AntiPatterns() []AntiPattern {
	out := make([]AntiPattern, len(antiPatterns))
	for i, ap := range antiPatterns {
		out[i] = AntiPattern{Rule: ap.rule, Description: ap.description}
	}
	return out
}

var antiPatterns = []antiPattern{
	{
		rule:        "backtick-in-label",
		description: "Backticks inside quoted node labels",
		re:          regexp.MustCompile("\"[^\"\\n]*`[^\"\\n]*\""),
		message: func(m []string) string {
			return fmt.Sprintf("backticks inside quoted label %s are not rendered; remove them", m[0])
		},
	},
	{
		rule:        "numbered-edge-label",
		description: "Edge labels starting with a list number such as \"1.\"",
		re:          regexp.MustCompile(`(?:\|\s*"?|--\s+"?)(\d+[.)]\s+[^|"\n]*?)\s*"?(?:\||-->|---)`),
		message: func(m []string) string {
			return fmt.Sprintf("edge label %q starts with a list number, which the renderer treats as an unsupported markdown list", strings.TrimSpace(m[1]))
		},
	},
	{
		rule:        "unquoted-label-punctuation",
		description: "Node labels with unquoted punctuation (){}:;,-.",
		re:          regexp.MustCompile(`([A-Za-z0-9_-]+)\[([^\]\["(/\\>][^\]"]*)\]`),
		message: func(m []string) string {
			return fmt.Sprintf("node %s label %q contains punctuation; wrap it in double quotes like %s[\"%s\"]", m[1], m[2], m[1], m[2])
		},
	},
}

const labelPunctuation = "(){}:;,-."

// ScanAntiPatterns reports constructs that parse but break rendering. Every
// scan runs over the whole diagram and each match is reported.
func ScanAntiPatterns(content string) []Finding {
	var findings []Finding
	lines := strings.Split(content, "\n")

	for _, ap := range antiPatterns {
		for i, l := range lines {
			for _, m := range ap.re.FindAllStringSubmatch(l, -1) {
				if ap.rule == "unquoted-label-punctuation" && !strings.ContainsAny(m[2], labelPunctuation) {
					continue
				}
				findings = append(findings, Finding{
					Rule:    ap.rule,
					Line:    i + 1,
					Message: ap.message(m),
				})
			}
		}
	}

	return findings
}

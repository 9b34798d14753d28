package checker

import (
	"strings"

	"github.com/li-yechao/aigne-doc-smith-sub000/internal/markdown"
)

// LinkSet is the membership test used for internal link targets.
// *linkset.Set implements it.
type LinkSet interface {
	Contains(target string) bool
}

var externalPrefixes = []string{"http://", "https://", "mailto:"}

// checkLinks reports inline links whose path is not in allowed. Reference
// links, external targets and same-page fragments are skipped.
func checkLinks(doc *markdown.Document, allowed LinkSet, r *report) {
	for _, l := range doc.Links {
		if l.Reference {
			continue
		}
		target := strings.TrimSpace(l.Destination)
		if target == "" || strings.HasPrefix(target, "#") || isExternal(target) {
			continue
		}

		path := target
		if i := strings.IndexByte(path, '#'); i >= 0 {
			path = path[:i]
		}
		if allowed.Contains(path) {
			continue
		}
		r.add(CategoryDeadLink, l.Line,
			"[%s](%s) - link target %q is not part of the document structure, use a path from the structure plan",
			l.Text, l.Destination, path)
	}
}

func isExternal(target string) bool {
	lower := strings.ToLower(target)
	for _, p := range externalPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

package textsplitters

import (
	"regexp"
	"strings"
)

var paragraphBreak = regexp.MustCompile(`\n\s*\n+`)

// ParagraphsOf splits text on blank lines, trimming and dropping empties.
// It is the paragraph-boundary primitive the markdown segmenter falls back
// to once a document has no more heading levels left to split on.
func ParagraphsOf(text string) []string {
	raw := paragraphBreak.Split(strings.TrimSpace(text), -1)
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

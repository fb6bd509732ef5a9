package search

import (
	"fmt"
	"strings"
)

// Hint block delimiter tag. The host splices the whole block, tag
// included, ahead of the assistant context.
const (
	hintOpenTag  = "<memory-hints>"
	hintCloseTag = "</memory-hints>"
)

// FormatHints renders hits into the hint block: one bulleted line per
// hit, scores rounded to two decimals, hits kept in backend order.
// Returns "" for zero hits.
func FormatHints(hits []Hit) string {
	if len(hits) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(hintOpenTag)
	b.WriteString("\nRelated memory (most relevant first):\n")
	for _, h := range hits {
		fmt.Fprintf(&b, "- %s (%.2f): \"%s...\"\n", h.Path, h.Score, h.Preview)
	}
	b.WriteString(hintCloseTag)
	return b.String()
}

// DisabledHint is the single user-visible diagnostic: the extractor is
// categorically unavailable and no fallback exists, so the assistant can
// tell the user why no memory context appeared.
func DisabledHint() string {
	return hintOpenTag +
		"\nMemory recall is disabled: the term-extraction model is unreachable and no fallback is configured.\n" +
		hintCloseTag
}

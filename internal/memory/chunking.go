package memory

import "strings"

// Fragment is a chunk of source text with its line range.
type Fragment struct {
	Text      string
	StartLine int
	EndLine   int
}

// SplitFragments splits text into fragments at paragraph boundaries,
// keeping each under maxLen characters. Line numbers are 1-based and
// refer to the source file.
func SplitFragments(text string, maxLen int) []Fragment {
	if maxLen <= 0 {
		maxLen = 1000
	}

	lines := strings.Split(text, "\n")
	var frags []Fragment
	var current strings.Builder
	startLine := 1

	flush := func(endLine int) {
		content := strings.TrimSpace(current.String())
		if content != "" {
			frags = append(frags, Fragment{
				Text:      content,
				StartLine: startLine,
				EndLine:   endLine,
			})
		}
		current.Reset()
		startLine = endLine + 1
	}

	for i, line := range lines {
		lineNum := i + 1

		// Prefer to break at blank lines once the fragment has grown
		// past half the budget.
		if strings.TrimSpace(line) == "" && current.Len() >= maxLen/2 {
			flush(lineNum - 1)
			continue
		}

		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)

		if current.Len() >= maxLen {
			flush(lineNum)
		}
	}

	if current.Len() > 0 {
		flush(len(lines))
	}

	return frags
}

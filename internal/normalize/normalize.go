// Package normalize decides whether an inbound turn is worth a memory
// lookup and strips transport metadata from it first.
//
// Cleaning is an ordered list of named rules, each a pure text-to-text
// transformation, so every rule is independently testable and the whole
// chain stays idempotent.
package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// SkipReason explains why a turn was rejected. Empty means eligible.
type SkipReason string

const (
	SkipNone        SkipReason = ""
	SkipEmpty       SkipReason = "empty"
	SkipTooShort    SkipReason = "too_short"
	SkipCommand     SkipReason = "command"
	SkipAck         SkipReason = "acknowledgement"
	SkipCleanedAway SkipReason = "cleaned_too_short"
)

// Outcome is the result of normalizing one turn. Rejection is a value,
// not an error: callers simply produce no augmentation for skipped turns.
type Outcome struct {
	Text string
	Skip SkipReason
}

// Eligible reports whether the turn should proceed to extraction.
func (o Outcome) Eligible() bool { return o.Skip == SkipNone }

// cleanRule pairs a human-readable name with a removal pattern.
type cleanRule struct {
	name    string
	pattern *regexp.Regexp
}

// Normalizer strips metadata and applies eligibility checks.
type Normalizer struct {
	minRawLen   int
	minCleanLen int
	rules       []cleanRule
	ackPattern  *regexp.Regexp
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithMinLengths overrides the raw/cleaned minimum length thresholds.
func WithMinLengths(raw, clean int) Option {
	return func(n *Normalizer) {
		if raw > 0 {
			n.minRawLen = raw
		}
		if clean > 0 {
			n.minCleanLen = clean
		}
	}
}

// WithExtraAcks adds words to the low-information acknowledgement set.
func WithExtraAcks(words []string) Option {
	return func(n *Normalizer) {
		if len(words) == 0 {
			return
		}
		escaped := make([]string, 0, len(words))
		for _, w := range words {
			w = strings.TrimSpace(w)
			if w != "" {
				escaped = append(escaped, regexp.QuoteMeta(strings.ToLower(w)))
			}
		}
		if len(escaped) == 0 {
			return
		}
		n.ackPattern = regexp.MustCompile(
			`(?i)^(` + defaultAckWords + `|` + strings.Join(escaped, "|") + `)[\s.!?]*$`)
	}
}

// New creates a Normalizer with the default rule set.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		minRawLen:   10,
		minCleanLen: 3,
		rules:       defaultCleanRules(),
		ackPattern:  regexp.MustCompile(`(?i)^(` + defaultAckWords + `)[\s.!?]*$`),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize cleans rawText and checks eligibility. All rejection paths
// are silent no-ops for the caller: no hint, no error.
func (n *Normalizer) Normalize(rawText string) Outcome {
	if strings.TrimSpace(rawText) == "" {
		return Outcome{Skip: SkipEmpty}
	}
	if utf8.RuneCountInString(rawText) < n.minRawLen {
		return Outcome{Skip: SkipTooShort}
	}

	text := rawText
	for _, r := range n.rules {
		text = r.pattern.ReplaceAllString(text, " ")
	}
	text = collapseSpace(text)

	if utf8.RuneCountInString(text) < n.minCleanLen {
		return Outcome{Skip: SkipCleanedAway}
	}
	if strings.HasPrefix(text, "/") {
		return Outcome{Skip: SkipCommand}
	}
	if n.ackPattern.MatchString(text) {
		return Outcome{Skip: SkipAck}
	}

	return Outcome{Text: text}
}

// RuleNames returns the names of the configured cleaning rules, in order.
func (n *Normalizer) RuleNames() []string {
	names := make([]string, len(n.rules))
	for i, r := range n.rules {
		names[i] = r.name
	}
	return names
}

// defaultAckWords matches greetings and acknowledgements that carry no
// searchable content. Optional trailing punctuation is handled by the
// surrounding pattern.
const defaultAckWords = `ok|okay|k|kk|thanks|thank you|thx|ty|hello|hi|hey|yo|yes|no|yep|yeah|nope|sure|cool|nice|great|got it|good morning|good night|good evening|bye|goodbye|lol`

// defaultCleanRules returns the transport-metadata removal rules, applied
// in order. Each match is replaced with a single space and the result is
// whitespace-collapsed afterwards, which keeps the chain idempotent.
func defaultCleanRules() []cleanRule {
	return []cleanRule{
		{
			// Trailing "[message_id: abc123]" style annotations some
			// channels append to delivered messages.
			name:    "message_id_suffix",
			pattern: regexp.MustCompile(`(?i)\s*\[(?:message[_-]?id|msg[_-]?id|id)\s*:[^\]]*\]\s*$`),
		},
		{
			// Leading "[2025-03-01 10:33 Saturday]" or bare
			// "2025-03-01 Sat 10:33" timestamp prefixes.
			name:    "timestamp_prefix",
			pattern: regexp.MustCompile(`(?i)^\s*\[?\d{4}-\d{2}-\d{2}[ T]?\s*(?:\d{1,2}:\d{2}(?::\d{2})?)?\s*(?:mon(?:day)?|tue(?:sday)?|wed(?:nesday)?|thu(?:rsday)?|fri(?:day)?|sat(?:urday)?|sun(?:day)?)?\]?[:\-]?\s*`),
		},
		{
			// Whole-line bracket-delimited system injections, e.g.
			// "[System: the user attached a file]".
			name:    "system_line",
			pattern: regexp.MustCompile(`(?im)^\[(?:system|context|attachment|reminder)[^\]]*\]\s*$`),
		},
		{
			// Multi-line brace-delimited blocks the host injects, e.g.
			// "{{channel metadata ...}}" spanning several lines.
			name:    "brace_block",
			pattern: regexp.MustCompile(`(?s)\{\{.*?\}\}`),
		},
	}
}

var multiSpace = regexp.MustCompile(`[ \t]{2,}`)

// collapseSpace trims the text and squeezes runs of blanks left behind by
// rule removals.
func collapseSpace(s string) string {
	s = multiSpace.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

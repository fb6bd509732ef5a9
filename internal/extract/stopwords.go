package extract

import "strings"

// stopwords is the curated list dropped by the deterministic fallback:
// question words, articles, pronouns, auxiliary verbs, prepositions,
// conjunctions, and meta-words about the memory feature itself.
var stopwords = map[string]struct{}{
	// question words
	"what": {}, "when": {}, "where": {}, "which": {}, "who": {}, "whom": {},
	"whose": {}, "why": {}, "how": {},
	// articles and determiners
	"a": {}, "an": {}, "the": {}, "this": {}, "that": {}, "these": {},
	"those": {}, "some": {}, "any": {}, "all": {}, "every": {},
	// pronouns
	"i": {}, "me": {}, "my": {}, "mine": {}, "we": {}, "us": {}, "our": {},
	"ours": {}, "you": {}, "your": {}, "yours": {}, "he": {}, "him": {},
	"his": {}, "she": {}, "her": {}, "hers": {}, "it": {}, "its": {},
	"they": {}, "them": {}, "their": {}, "theirs": {},
	// auxiliary verbs
	"am": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {},
	"been": {}, "being": {}, "do": {}, "does": {}, "did": {}, "have": {},
	"has": {}, "had": {}, "will": {}, "would": {}, "shall": {},
	"should": {}, "can": {}, "could": {}, "may": {}, "might": {},
	"must": {},
	// prepositions
	"about": {}, "above": {}, "after": {}, "at": {}, "before": {},
	"behind": {}, "below": {}, "between": {}, "by": {}, "for": {},
	"from": {}, "in": {}, "into": {}, "of": {}, "on": {}, "over": {},
	"to": {}, "under": {}, "with": {}, "without": {},
	// conjunctions and fillers
	"and": {}, "but": {}, "or": {}, "nor": {}, "so": {}, "yet": {},
	"if": {}, "then": {}, "than": {}, "because": {}, "while": {},
	"just": {}, "please": {}, "again": {}, "still": {}, "also": {},
	"not": {}, "dont": {}, "don't": {},
	// memory feature meta-words
	"memory": {}, "memories": {}, "remember": {}, "recall": {},
	"hint": {}, "note": {}, "notes": {}, "remind": {}, "forget": {},
}

// StopwordTerms is the deterministic extraction path: lower-case, split
// on whitespace, drop stop-words and single characters, preserve order.
func StopwordTerms(text string) TermSet {
	var terms []string
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, `.,;:!?"'()[]{}`)
		if len(tok) <= 1 {
			continue
		}
		if _, skip := stopwords[tok]; skip {
			continue
		}
		terms = append(terms, tok)
	}
	if len(terms) == 0 {
		return TermSet{}
	}
	return TermSet{Terms: terms, Provenance: ProvenanceFallback}
}

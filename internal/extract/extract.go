// Package extract reduces a user message to a short list of salient
// search terms, either by asking a local model or by deterministic
// stop-word filtering when no model is reachable.
package extract

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"

	"github.com/nextlevelbuilder/preflight/internal/providers"
)

// Provenance records which path produced a term set.
type Provenance string

const (
	ProvenanceModel    Provenance = "model"
	ProvenanceFallback Provenance = "fallback"
)

// TermSet is an ordered list of extracted search terms plus where they
// came from. It feeds exactly one keyword search attempt.
type TermSet struct {
	Terms      []string
	Provenance Provenance
}

// Empty reports whether extraction produced nothing usable.
func (ts TermSet) Empty() bool { return len(ts.Terms) == 0 }

// Query joins the first maxTerms terms into a lower-cased,
// whitespace-separated keyword query.
func (ts TermSet) Query(maxTerms int) string {
	if maxTerms <= 0 {
		maxTerms = 3
	}
	terms := ts.Terms
	if len(terms) > maxTerms {
		terms = terms[:maxTerms]
	}
	return strings.ToLower(strings.Join(terms, " "))
}

// Generator is the completion call the model extractor needs. Satisfied
// by providers.OllamaClient.
type Generator interface {
	Generate(ctx context.Context, req providers.GenerateRequest) (string, error)
}

// Options configures an Extractor.
type Options struct {
	Model          string
	NumPredict     int  // generation budget, small on purpose
	MaxResponseLen int  // longer responses are treated as model rambling
	UseFallback    bool // enable the deterministic stop-word path
	RatePerMinute  int  // model call budget, 0 = unlimited
}

// Extractor tries the model path first and optionally falls back to
// stop-word filtering. Both paths are soft: a turn never fails because
// extraction did.
type Extractor struct {
	gen     Generator
	opts    Options
	limiter *rate.Limiter // nil = unlimited
}

// New creates an Extractor. gen may be nil when no model is configured.
func New(gen Generator, opts Options) *Extractor {
	if opts.NumPredict <= 0 {
		opts.NumPredict = 40
	}
	if opts.MaxResponseLen <= 0 {
		opts.MaxResponseLen = 120
	}
	e := &Extractor{gen: gen, opts: opts}
	if opts.RatePerMinute > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(float64(opts.RatePerMinute)/60.0), opts.RatePerMinute)
	}
	return e
}

// Extract returns a term set and whether any path produced one.
// ok=false means extraction is categorically unavailable for this turn.
func (e *Extractor) Extract(ctx context.Context, text string) (TermSet, bool) {
	if ts, ok := e.extractModel(ctx, text); ok {
		return ts, true
	}
	if e.opts.UseFallback {
		ts := StopwordTerms(text)
		if !ts.Empty() {
			return ts, true
		}
	}
	return TermSet{}, false
}

// extractionPrompt is the fixed few-shot instruction template. Zero
// temperature and a small num_predict keep the output reproducible.
const extractionPrompt = `Extract 2-4 short noun or topic search terms from the message. Reply with only the terms, comma-separated, nothing else.

Message: when is our flight to Toronto and which hotel did Anna book?
Terms: toronto, flight, hotel, anna

Message: remind me what we decided about the kitchen tiles budget
Terms: kitchen, tiles, budget

Message: %s
Terms:`

// extractModel issues one completion request. Any transport failure,
// non-success status, empty or oversized response yields ok=false.
func (e *Extractor) extractModel(ctx context.Context, text string) (TermSet, bool) {
	if e.gen == nil || e.opts.Model == "" {
		return TermSet{}, false
	}
	if e.limiter != nil && !e.limiter.Allow() {
		slog.Debug("extractor rate limit hit, skipping model call")
		return TermSet{}, false
	}

	resp, err := e.gen.Generate(ctx, providers.GenerateRequest{
		Model:  e.opts.Model,
		Prompt: strings.Replace(extractionPrompt, "%s", text, 1),
		Options: providers.GenerateOptions{
			NumPredict:  e.opts.NumPredict,
			Temperature: 0,
		},
	})
	if err != nil {
		slog.Debug("term extraction model unavailable", "error", err)
		return TermSet{}, false
	}

	resp = strings.TrimSpace(resp)
	if resp == "" || len(resp) > e.opts.MaxResponseLen {
		slog.Debug("term extraction response rejected", "len", len(resp))
		return TermSet{}, false
	}

	terms := splitTerms(resp)
	if len(terms) == 0 {
		return TermSet{}, false
	}
	return TermSet{Terms: terms, Provenance: ProvenanceModel}, true
}

// splitTerms parses a comma-separated model reply into clean terms.
func splitTerms(resp string) []string {
	// Models occasionally echo a label; use only the first line.
	if i := strings.IndexByte(resp, '\n'); i >= 0 {
		resp = resp[:i]
	}
	resp = strings.TrimPrefix(resp, "Terms:")

	var terms []string
	for _, part := range strings.Split(resp, ",") {
		term := strings.ToLower(strings.TrimSpace(part))
		term = strings.Trim(term, `"'.`)
		if len(term) > 1 {
			terms = append(terms, term)
		}
	}
	return terms
}

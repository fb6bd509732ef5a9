// Package search runs the keyword-then-semantic cascade over memory
// backends and formats the winning hits into a hint block.
//
// Backends are swappable strategies: the keyword backend is a fast
// lexical index, the semantic backend matches by meaning and is only
// consulted when the keyword stage finds nothing. Scores are
// backend-local and never merged or re-ranked across backends.
package search

import (
	"context"
	"log/slog"
	"time"
)

// Hit is one matched memory unit.
type Hit struct {
	Path    string  `json:"path"`
	Score   float64 `json:"score"`
	Preview string  `json:"preview,omitempty"`
}

// KeywordBackend is a fast lexical index returning ranked matches for a
// short term query, best-first.
type KeywordBackend interface {
	Search(ctx context.Context, query string, limit int) ([]Hit, error)
}

// SemanticBackend returns matches by meaning. Implementations report
// being disabled by returning zero hits, not an error.
type SemanticBackend interface {
	Search(ctx context.Context, query string, limit int, minScore float64) ([]Hit, error)
}

// Stage names which backend produced the hits of a cascade run.
type Stage string

const (
	StageKeyword  Stage = "keyword"
	StageSemantic Stage = "semantic"
	StageNone     Stage = "none"
)

// Options bounds a cascade run.
type Options struct {
	MaxResults    int     // top-K for both stages
	MinScore      float64 // semantic stage threshold
	MaxQueryChars int     // semantic query length cap
}

// Result is the outcome of one cascade run, with per-stage timings for
// the audit record.
type Result struct {
	Hits        []Hit
	Stage       Stage
	KeywordDur  time.Duration
	SemanticDur time.Duration
}

// Cascade tries the keyword backend first and falls back to semantic
// search. All backend failures degrade to zero hits; nothing here is
// fatal to the turn.
type Cascade struct {
	keyword   KeywordBackend
	semantic  SemanticBackend
	previewer *Previewer
	opts      Options
}

// NewCascade wires the two backends. Either may be nil (stage skipped).
// previewer may be nil to disable keyword-hit previews.
func NewCascade(keyword KeywordBackend, semantic SemanticBackend, previewer *Previewer, opts Options) *Cascade {
	if opts.MaxResults <= 0 {
		opts.MaxResults = 5
	}
	if opts.MaxQueryChars <= 0 {
		opts.MaxQueryChars = 200
	}
	return &Cascade{keyword: keyword, semantic: semantic, previewer: previewer, opts: opts}
}

// Run executes the cascade. termQuery feeds the keyword stage; the
// semantic fallback gets the normalized original text instead, cut to
// MaxQueryChars, because meaning-based search works better on the full
// sentence than on three bare nouns.
func (c *Cascade) Run(ctx context.Context, termQuery, normalizedText string) Result {
	var res Result
	res.Stage = StageNone

	if c.keyword != nil && termQuery != "" {
		start := time.Now()
		hits, err := c.keyword.Search(ctx, termQuery, c.opts.MaxResults)
		res.KeywordDur = time.Since(start)
		if err != nil {
			slog.Debug("keyword backend failed", "error", err)
		} else if len(hits) > 0 {
			if c.previewer != nil {
				c.previewer.Fill(ctx, hits)
			}
			res.Hits = hits
			res.Stage = StageKeyword
			return res
		}
	}

	if c.semantic != nil && normalizedText != "" {
		query := truncateRunes(normalizedText, c.opts.MaxQueryChars)
		start := time.Now()
		hits, err := c.semantic.Search(ctx, query, c.opts.MaxResults, c.opts.MinScore)
		res.SemanticDur = time.Since(start)
		if err != nil {
			slog.Debug("semantic backend failed", "error", err)
		} else if len(hits) > 0 {
			// Semantic backends already return snippet previews.
			res.Hits = hits
			res.Stage = StageSemantic
		}
	}

	return res
}

// truncateRunes cuts s to at most max runes without splitting a
// multi-byte character.
func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

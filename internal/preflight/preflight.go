// Package preflight orchestrates one memory lookup per inbound user
// turn: normalize the message, extract search terms, run the keyword →
// semantic cascade, and hand the host a hint block to prepend. Memory
// augmentation is strictly best-effort; no path in here may block or
// break the conversation.
package preflight

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/preflight/internal/audit"
	"github.com/nextlevelbuilder/preflight/internal/config"
	"github.com/nextlevelbuilder/preflight/internal/extract"
	"github.com/nextlevelbuilder/preflight/internal/normalize"
	"github.com/nextlevelbuilder/preflight/internal/search"
	"github.com/nextlevelbuilder/preflight/internal/tracing"
	"github.com/nextlevelbuilder/preflight/pkg/hostapi"
)

// Kind classifies the outcome of one turn.
type Kind string

const (
	// KindSkipped: the turn was not eligible (too short, command,
	// acknowledgement). Silent no-op, nothing logged.
	KindSkipped Kind = "skipped"
	// KindNoHits: searched, found nothing. Silent no-op, audited.
	KindNoHits Kind = "none"
	// KindHint: hits were found and formatted.
	KindHint Kind = "hint"
	// KindDisabled: extraction is categorically unavailable and no
	// fallback is configured; the diagnostic hint is returned so the
	// assistant can tell the user why recall produced nothing.
	KindDisabled Kind = "disabled"
)

// Result makes the orchestrator a total function: "no augmentation" and
// "augmentation produced" are distinct values, never a missing one.
type Result struct {
	Kind       Kind
	SkipReason normalize.SkipReason // set for KindSkipped
	Hint       string               // set for KindHint and KindDisabled
}

// Output converts a Result to the host hook shape.
func (r Result) Output() hostapi.HookOutput {
	return hostapi.HookOutput{PrependContext: r.Hint}
}

// SemanticFactory lazily constructs the semantic backend. It runs at
// most once per orchestrator lifetime, on the first turn that needs the
// fallback stage.
type SemanticFactory func(ctx context.Context) (search.SemanticBackend, error)

// Options carries the collaborators a host or test can override.
type Options struct {
	Keyword         search.KeywordBackend
	SemanticFactory SemanticFactory
	Generator       extract.Generator
	Previewer       *search.Previewer
	Auditor         *audit.Logger
	Tracer          *tracing.Exporter
}

// Orchestrator runs the per-turn pipeline. One instance serves the
// whole plugin lifetime; turns are handled one at a time by the host.
type Orchestrator struct {
	cfg        *config.Config
	normalizer *normalize.Normalizer
	extractor  *extract.Extractor
	keyword    search.KeywordBackend
	previewer  *search.Previewer
	auditor    *audit.Logger
	tracer     *tracing.Exporter

	semFactory SemanticFactory
	semOnce    sync.Once
	semantic   search.SemanticBackend
}

// New builds an orchestrator from config plus explicit collaborators.
func New(cfg *config.Config, opts Options) *Orchestrator {
	return &Orchestrator{
		cfg: cfg,
		normalizer: normalize.New(
			normalize.WithMinLengths(cfg.Normalizer.MinRawLen, cfg.Normalizer.MinCleanLen),
			normalize.WithExtraAcks(cfg.Normalizer.ExtraAcks),
		),
		extractor: extract.New(opts.Generator, extract.Options{
			Model:          cfg.Extractor.Model,
			NumPredict:     cfg.Extractor.NumPredict,
			MaxResponseLen: cfg.Extractor.MaxResponseLen,
			UseFallback:    cfg.Extractor.Fallback,
			RatePerMinute:  cfg.Extractor.RatePerMinute,
		}),
		keyword:    opts.Keyword,
		previewer:  opts.Previewer,
		auditor:    opts.Auditor,
		tracer:     opts.Tracer,
		semFactory: opts.SemanticFactory,
	}
}

// Run handles one turn start to finish. It never returns an error:
// every failure mode degrades to a silent no-op or the disabled
// diagnostic.
func (o *Orchestrator) Run(ctx context.Context, turn hostapi.Turn) Result {
	start := time.Now()
	turnID := uuid.New()

	norm := o.normalizer.Normalize(turn.PromptText)
	if !norm.Eligible() {
		return Result{Kind: KindSkipped, SkipReason: norm.Skip}
	}

	extractStart := time.Now()
	terms, ok := o.extractor.Extract(ctx, norm.Text)
	extractDur := time.Since(extractStart)

	if !ok {
		// No model, no fallback: surface the condition instead of
		// silently degrading.
		o.audit(audit.Record{
			ID:        turnID.String(),
			SessionID: turn.SessionID,
			Prompt:    norm.Text,
			Terms:     nil,
			Query:     "",
			Stage:     string(KindDisabled),
			ExtractMS: extractDur.Milliseconds(),
			TotalMS:   time.Since(start).Milliseconds(),
		})
		o.trace(ctx, turnID, turn.SessionID, start, time.Since(start), string(KindDisabled), []tracing.Stage{
			{Name: "extract", Start: extractStart, Dur: extractDur, Error: "extractor unavailable"},
		})
		return Result{Kind: KindDisabled, Hint: search.DisabledHint()}
	}

	query := terms.Query(o.cfg.Extractor.MaxTerms)

	cascade := search.NewCascade(o.keyword, o.semanticBackend(ctx), o.previewer, search.Options{
		MaxResults:    o.cfg.Keyword.MaxResults,
		MinScore:      o.cfg.Semantic.MinScore,
		MaxQueryChars: o.cfg.Semantic.MaxQueryChars,
	})
	res := cascade.Run(ctx, query, norm.Text)

	totalDur := time.Since(start)
	hits := make([]audit.HitRef, len(res.Hits))
	for i, h := range res.Hits {
		hits[i] = audit.HitRef{Path: h.Path, Score: h.Score}
	}
	o.audit(audit.Record{
		ID:        turnID.String(),
		SessionID: turn.SessionID,
		Prompt:    norm.Text,
		Terms:     terms.Terms,
		Query:     query,
		Fallback:  terms.Provenance == extract.ProvenanceFallback,
		Stage:     string(res.Stage),
		Hits:      hits,
		ExtractMS: extractDur.Milliseconds(),
		SearchMS:  (res.KeywordDur + res.SemanticDur).Milliseconds(),
		TotalMS:   totalDur.Milliseconds(),
	})

	stages := []tracing.Stage{
		{Name: "extract", Start: extractStart, Dur: extractDur,
			Attrs: map[string]string{"provenance": string(terms.Provenance)}},
	}
	searchStart := extractStart.Add(extractDur)
	if res.KeywordDur > 0 {
		stages = append(stages, tracing.Stage{Name: "keyword", Start: searchStart, Dur: res.KeywordDur})
	}
	if res.SemanticDur > 0 {
		stages = append(stages, tracing.Stage{Name: "semantic", Start: searchStart.Add(res.KeywordDur), Dur: res.SemanticDur})
	}

	if len(res.Hits) == 0 {
		o.trace(ctx, turnID, turn.SessionID, start, totalDur, string(KindNoHits), stages)
		return Result{Kind: KindNoHits}
	}

	o.trace(ctx, turnID, turn.SessionID, start, totalDur, string(KindHint), stages)
	return Result{Kind: KindHint, Hint: search.FormatHints(res.Hits)}
}

// semanticBackend constructs the semantic backend on first use. The
// handle is created at most once per plugin lifetime and reused; a
// failed construction leaves the stage disabled for good.
func (o *Orchestrator) semanticBackend(ctx context.Context) search.SemanticBackend {
	o.semOnce.Do(func() {
		if o.semFactory == nil || !o.cfg.Semantic.Enabled {
			return
		}
		backend, err := o.semFactory(ctx)
		if err != nil {
			slog.Warn("semantic backend unavailable", "error", err)
			return
		}
		o.semantic = backend
	})
	return o.semantic
}

func (o *Orchestrator) audit(rec audit.Record) {
	if o.auditor != nil {
		o.auditor.Write(rec)
	}
}

func (o *Orchestrator) trace(ctx context.Context, id uuid.UUID, session string, start time.Time, dur time.Duration, outcome string, stages []tracing.Stage) {
	if o.tracer == nil {
		return
	}
	o.tracer.Export(ctx, tracing.TurnTrace{
		ID:        id,
		SessionID: session,
		Start:     start,
		Dur:       dur,
		Outcome:   outcome,
		Stages:    stages,
	})
}

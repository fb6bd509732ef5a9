package preflight

import (
	"context"
	"log/slog"
	"sync"

	"github.com/nextlevelbuilder/preflight/internal/audit"
	"github.com/nextlevelbuilder/preflight/internal/config"
	"github.com/nextlevelbuilder/preflight/internal/memory"
	"github.com/nextlevelbuilder/preflight/internal/providers"
	"github.com/nextlevelbuilder/preflight/internal/search"
	"github.com/nextlevelbuilder/preflight/internal/tracing"
)

// WireOption overrides part of the default wiring.
type WireOption func(*wireOverrides)

type wireOverrides struct {
	hostSearch search.HostSearchFunc
}

// WithHostSearch selects the host-provided semantic tool instead of
// the built-in memory index. Embedding hosts that maintain their own
// memory search pass their callable here.
func WithHostSearch(fn search.HostSearchFunc) WireOption {
	return func(w *wireOverrides) { w.hostSearch = fn }
}

// NewFromConfig wires the default collaborators: an Ollama extractor,
// the qmd keyword backend, and the built-in memory index as the
// semantic fallback (unless WithHostSearch swaps it out). The returned
// shutdown func flushes and closes long-lived resources.
func NewFromConfig(ctx context.Context, cfg *config.Config, opts ...WireOption) (*Orchestrator, func(), error) {
	var ov wireOverrides
	for _, opt := range opts {
		opt(&ov)
	}
	ollama := providers.NewOllamaClient(cfg.Extractor.OllamaURL, cfg.ExtractorTimeout())

	var keyword search.KeywordBackend
	if cfg.Keyword.Command != "" {
		qmd, err := search.NewQMDBackend(cfg.Keyword.Command, cfg.KeywordTimeout(), cfg.Keyword.URIPrefix, cfg.Workspace)
		if err != nil {
			// A broken keyword config disables the stage, not the plugin.
			slog.Warn("keyword backend disabled", "error", err)
		} else {
			keyword = qmd
		}
	}

	var (
		managerMu sync.Mutex
		manager   *memory.Manager
	)
	semFactory := func(ctx context.Context) (search.SemanticBackend, error) {
		if ov.hostSearch != nil {
			return search.NewHostToolBackend(ov.hostSearch), nil
		}
		m, err := memory.NewManager(cfg.Workspace, cfg.IndexDBPath(), ollama, cfg.Semantic.EmbedModel)
		if err != nil {
			return nil, err
		}
		if err := m.Sync(ctx); err != nil {
			slog.Warn("memory index sync failed", "error", err)
		}
		managerMu.Lock()
		manager = m
		managerMu.Unlock()
		return search.NewMemoryBackend(m), nil
	}

	tracer, err := tracing.New(ctx, tracing.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		Protocol:    cfg.Tracing.Protocol,
		Insecure:    cfg.Tracing.Insecure,
		ServiceName: cfg.Tracing.ServiceName,
	})
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
		tracer = nil
	}

	o := New(cfg, Options{
		Keyword:         keyword,
		SemanticFactory: semFactory,
		Generator:       ollama,
		Previewer:       search.NewPreviewer(cfg.Workspace, cfg.Preview.MaxBytes, cfg.Preview.MaxLen, cfg.Preview.CacheSize),
		Auditor:         audit.NewLogger(cfg.AuditPath(), cfg.Audit.PromptLen),
		Tracer:          tracer,
	})

	shutdown := func() {
		managerMu.Lock()
		if manager != nil {
			manager.Close()
		}
		managerMu.Unlock()
		tracer.Shutdown(context.Background())
	}
	return o, shutdown, nil
}

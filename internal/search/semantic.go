package search

import (
	"context"

	"github.com/nextlevelbuilder/preflight/internal/memory"
	"github.com/nextlevelbuilder/preflight/pkg/hostapi"
)

// MemoryBackend serves semantic fallback queries from the built-in
// memory index.
type MemoryBackend struct {
	manager *memory.Manager
}

// NewMemoryBackend wraps a memory manager as a SemanticBackend.
func NewMemoryBackend(m *memory.Manager) *MemoryBackend {
	return &MemoryBackend{manager: m}
}

func (b *MemoryBackend) Search(ctx context.Context, query string, limit int, minScore float64) ([]Hit, error) {
	results, err := b.manager.Search(ctx, query, memory.SearchOptions{
		MaxResults: limit,
		MinScore:   minScore,
	})
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{Path: r.Path, Score: r.Score, Preview: r.Snippet}
	}
	return hits, nil
}

// HostSearchFunc is a host-provided semantic search callable (some
// hosts expose their own memory tool instead of using the built-in
// index).
type HostSearchFunc func(ctx context.Context, q hostapi.SemanticQuery) (hostapi.SemanticResponse, error)

// HostToolBackend adapts a host callable to the SemanticBackend
// interface. A disabled host tool counts as zero hits, not an error.
type HostToolBackend struct {
	search HostSearchFunc
}

// NewHostToolBackend wraps the host callable.
func NewHostToolBackend(fn HostSearchFunc) *HostToolBackend {
	return &HostToolBackend{search: fn}
}

func (b *HostToolBackend) Search(ctx context.Context, query string, limit int, minScore float64) ([]Hit, error) {
	if b.search == nil {
		return nil, nil
	}
	resp, err := b.search(ctx, hostapi.SemanticQuery{
		Query:      query,
		MaxResults: limit,
		MinScore:   minScore,
	})
	if err != nil {
		return nil, err
	}
	if resp.Disabled {
		return nil, nil
	}
	hits := make([]Hit, 0, len(resp.Results))
	for _, r := range resp.Results {
		hits = append(hits, Hit{Path: r.Path, Score: r.Score, Preview: r.Snippet})
	}
	return hits, nil
}

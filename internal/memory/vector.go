package memory

import (
	"context"
	"math"
	"sort"
)

// Embedder produces embedding vectors for texts. Satisfied by
// providers.OllamaClient.
type Embedder interface {
	Embed(ctx context.Context, model string, texts []string) ([][]float32, error)
}

// CosineSimilarity returns the cosine of the angle between two vectors,
// or 0 when dimensions mismatch or either vector is zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// vectorSearch embeds the query and ranks all stored chunks by cosine
// similarity.
func vectorSearch(ctx context.Context, store *Store, embedder Embedder, model, query string, opts SearchOptions) ([]SearchResult, error) {
	embeddings, err := embedder.Embed(ctx, model, []string{query})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, nil
	}
	queryVec := embeddings[0]

	chunks, err := store.AllChunks()
	if err != nil {
		return nil, err
	}

	type scored struct {
		chunk Chunk
		score float64
	}
	var ranked []scored
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		sim := CosineSimilarity(queryVec, c.Embedding)
		if sim > 0 && sim >= opts.MinScore {
			ranked = append(ranked, scored{chunk: c, score: sim})
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	limit := opts.MaxResults
	if limit <= 0 {
		limit = 5
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	results := make([]SearchResult, len(ranked))
	for i, r := range ranked {
		results[i] = SearchResult{
			Path:      r.chunk.Path,
			StartLine: r.chunk.StartLine,
			EndLine:   r.chunk.EndLine,
			Score:     r.score,
			Snippet:   snippet(r.chunk.Text, 300),
		}
	}
	return results, nil
}

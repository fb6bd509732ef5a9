// Package memory is the built-in semantic backend: an SQLite-backed
// index over the agent's memory files (MEMORY.md and memory/*.md) with
// FTS5 full-text search and optional embedding-based vector search.
package memory

// Chunk is a text fragment stored in the index.
type Chunk struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	StartLine int       `json:"start_line"`
	EndLine   int       `json:"end_line"`
	Hash      string    `json:"hash"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// SearchResult is a single match from the index.
type SearchResult struct {
	Path      string  `json:"path"`
	StartLine int     `json:"start_line"`
	EndLine   int     `json:"end_line"`
	Score     float64 `json:"score"`
	Snippet   string  `json:"snippet"`
}

// SearchOptions bounds a query.
type SearchOptions struct {
	MaxResults int     // top-K
	MinScore   float64 // minimum relevance score (0-1)
}

// Status summarizes the index state.
type Status struct {
	FileCount  int    `json:"files"`
	ChunkCount int    `json:"chunks"`
	EmbedModel string `json:"embedModel,omitempty"`
}

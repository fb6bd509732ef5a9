package memory

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Manager syncs memory files into the store and serves searches.
// Vector search is used when an embed model is configured, FTS5
// otherwise.
type Manager struct {
	store      *Store
	embedder   Embedder // nil = FTS-only
	embedModel string
	workspace  string
}

// NewManager opens the index at dbPath for the given workspace.
// embedder may be nil to run lexical-only.
func NewManager(workspace, dbPath string, embedder Embedder, embedModel string) (*Manager, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	store, err := OpenStore(dbPath)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		store:      store,
		workspace:  workspace,
		embedModel: embedModel,
	}
	if embedder != nil && embedModel != "" {
		m.embedder = embedder
	}
	return m, nil
}

// Search queries the index. Embedding failures fall back to FTS so a
// dead model endpoint never makes recall error out.
func (m *Manager) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	if m.embedder != nil {
		results, err := vectorSearch(ctx, m.store, m.embedder, m.embedModel, query, opts)
		if err == nil {
			return results, nil
		}
		slog.Debug("vector search unavailable, using fts", "error", err)
	}
	return m.store.SearchFTS(query, opts)
}

// Sync walks MEMORY.md and memory/*.md under the workspace and brings
// the index up to date. Unchanged files (by content hash) are skipped;
// files that disappeared are dropped from the index.
func (m *Manager) Sync(ctx context.Context) error {
	paths, err := m.memoryFiles()
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(paths))
	for _, rel := range paths {
		seen[rel] = struct{}{}
		if err := m.syncFile(ctx, rel); err != nil {
			slog.Warn("memory sync: file skipped", "path", rel, "error", err)
		}
	}

	// Drop files removed from the workspace.
	indexed, err := m.store.IndexedPaths()
	if err != nil {
		return err
	}
	for _, rel := range indexed {
		if _, ok := seen[rel]; ok {
			continue
		}
		m.store.DeleteByPath(rel)
		m.store.DeleteFile(rel)
		slog.Info("memory sync: removed from index", "path", rel)
	}
	return nil
}

func (m *Manager) syncFile(ctx context.Context, rel string) error {
	full := filepath.Join(m.workspace, filepath.FromSlash(rel))
	data, err := os.ReadFile(full)
	if err != nil {
		return err
	}

	hash := ContentHash(string(data))
	if stored, ok := m.store.FileHash(rel); ok && stored == hash {
		return nil
	}

	info, _ := os.Stat(full)
	var mtime int64
	if info != nil {
		mtime = info.ModTime().Unix()
	}

	// Reindex: drop old chunks, insert fresh ones.
	if err := m.store.DeleteByPath(rel); err != nil {
		return err
	}

	frags := SplitFragments(string(data), 1000)
	for i, f := range frags {
		chunk := Chunk{
			ID:        fmt.Sprintf("%s#%d", rel, i),
			Path:      rel,
			StartLine: f.StartLine,
			EndLine:   f.EndLine,
			Hash:      ContentHash(f.Text),
			Text:      f.Text,
		}
		if m.embedder != nil {
			chunk.Embedding = m.embedFragment(ctx, chunk.Hash, f.Text)
		}
		if err := m.store.UpsertChunk(chunk); err != nil {
			return err
		}
	}

	if err := m.store.UpsertFile(rel, hash, mtime); err != nil {
		return err
	}
	slog.Info("memory sync: indexed", "path", rel, "chunks", len(frags))
	return nil
}

// embedFragment reuses a stored embedding for unchanged text and embeds
// otherwise. Embedding failures degrade to FTS-only for that chunk.
func (m *Manager) embedFragment(ctx context.Context, hash, text string) []float32 {
	if emb, ok := m.store.ChunkEmbedding(hash); ok {
		return emb
	}
	vecs, err := m.embedder.Embed(ctx, m.embedModel, []string{text})
	if err != nil || len(vecs) == 0 {
		slog.Debug("embedding failed", "error", err)
		return nil
	}
	return vecs[0]
}

// memoryFiles lists MEMORY.md plus every .md under memory/, as
// workspace-relative slash paths, sorted.
func (m *Manager) memoryFiles() ([]string, error) {
	var paths []string

	if _, err := os.Stat(filepath.Join(m.workspace, "MEMORY.md")); err == nil {
		paths = append(paths, "MEMORY.md")
	}

	memDir := filepath.Join(m.workspace, "memory")
	err := filepath.WalkDir(memDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		rel, err := filepath.Rel(m.workspace, path)
		if err != nil {
			return nil
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	sort.Strings(paths)
	return paths, nil
}

// Status reports index counts.
func (m *Manager) Status() Status {
	files, chunks := m.store.Counts()
	return Status{FileCount: files, ChunkCount: chunks, EmbedModel: m.embedModel}
}

// Close closes the underlying store.
func (m *Manager) Close() error {
	return m.store.Close()
}

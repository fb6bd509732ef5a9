package memory

import (
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// Store persists chunks in SQLite with an FTS5 index alongside.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// OpenStore opens (or creates) the index database and its schema.
func OpenStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			start_line INTEGER NOT NULL,
			end_line INTEGER NOT NULL,
			hash TEXT NOT NULL,
			text TEXT NOT NULL,
			embedding TEXT NOT NULL DEFAULT '[]',
			updated_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_path ON chunks(path)`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
			text,
			id UNINDEXED,
			path UNINDEXED,
			start_line UNINDEXED,
			end_line UNINDEXED,
			tokenize='porter unicode61'
		)`,
		// File hashes for change detection during sync.
		`CREATE TABLE IF NOT EXISTS files (
			path TEXT PRIMARY KEY,
			hash TEXT NOT NULL,
			mtime INTEGER NOT NULL DEFAULT 0
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:min(len(stmt), 40)], err)
		}
	}
	return nil
}

// UpsertChunk inserts or replaces a chunk and its FTS entry.
func (s *Store) UpsertChunk(c Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	embJSON, err := json.Marshal(c.Embedding)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tx.Exec("DELETE FROM chunks_fts WHERE id = ?", c.ID)

	_, err = tx.Exec(`INSERT OR REPLACE INTO chunks (id, path, start_line, end_line, hash, text, embedding, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, strftime('%s','now'))`,
		c.ID, c.Path, c.StartLine, c.EndLine, c.Hash, c.Text, string(embJSON))
	if err != nil {
		return fmt.Errorf("upsert chunk: %w", err)
	}

	_, err = tx.Exec(`INSERT INTO chunks_fts (text, id, path, start_line, end_line)
		VALUES (?, ?, ?, ?, ?)`,
		c.Text, c.ID, c.Path, c.StartLine, c.EndLine)
	if err != nil {
		return fmt.Errorf("insert fts: %w", err)
	}

	return tx.Commit()
}

// DeleteByPath removes all chunks and FTS entries for a file.
func (s *Store) DeleteByPath(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tx.Exec("DELETE FROM chunks_fts WHERE path = ?", path)
	tx.Exec("DELETE FROM chunks WHERE path = ?", path)

	return tx.Commit()
}

// SearchFTS runs a BM25-ranked full-text query, best-first. The BM25
// rank is mapped to a (0,1] score with 1/(1+|rank|) so MinScore applies
// uniformly to both search paths.
func (s *Store) SearchFTS(query string, opts SearchOptions) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	rows, err := s.db.Query(`SELECT path, start_line, end_line, text,
		1.0 / (1.0 + abs(rank)) as score
		FROM chunks_fts
		WHERE chunks_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, ftsQuote(query), maxResults)
	if err != nil {
		return nil, fmt.Errorf("fts query: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var text string
		if err := rows.Scan(&r.Path, &r.StartLine, &r.EndLine, &text, &r.Score); err != nil {
			continue
		}
		if opts.MinScore > 0 && r.Score < opts.MinScore {
			continue
		}
		r.Snippet = snippet(text, 300)
		results = append(results, r)
	}
	return results, nil
}

// AllChunks returns every chunk, embeddings included, for in-memory
// vector search.
func (s *Store) AllChunks() ([]Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT id, path, start_line, end_line, hash, text, embedding FROM chunks")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		var embJSON string
		if err := rows.Scan(&c.ID, &c.Path, &c.StartLine, &c.EndLine, &c.Hash, &c.Text, &embJSON); err != nil {
			continue
		}
		json.Unmarshal([]byte(embJSON), &c.Embedding)
		chunks = append(chunks, c)
	}
	return chunks, nil
}

// ChunkEmbedding returns the stored embedding for a chunk hash, so
// unchanged chunks are not re-embedded on sync.
func (s *Store) ChunkEmbedding(hash string) ([]float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var embJSON string
	if err := s.db.QueryRow("SELECT embedding FROM chunks WHERE hash = ? AND embedding != '[]' LIMIT 1", hash).Scan(&embJSON); err != nil {
		return nil, false
	}
	var emb []float32
	if err := json.Unmarshal([]byte(embJSON), &emb); err != nil || len(emb) == 0 {
		return nil, false
	}
	return emb, true
}

// FileHash returns the stored hash for a path.
func (s *Store) FileHash(path string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hash string
	if err := s.db.QueryRow("SELECT hash FROM files WHERE path = ?", path).Scan(&hash); err != nil {
		return "", false
	}
	return hash, true
}

// UpsertFile records file metadata for change detection.
func (s *Store) UpsertFile(path, hash string, mtime int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT OR REPLACE INTO files (path, hash, mtime) VALUES (?, ?, ?)`,
		path, hash, mtime)
	return err
}

// DeleteFile removes file metadata.
func (s *Store) DeleteFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM files WHERE path = ?", path)
	return err
}

// IndexedPaths lists every file currently in the index.
func (s *Store) IndexedPaths() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT path FROM files")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err == nil {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// Counts returns the number of indexed files and chunks.
func (s *Store) Counts() (files, chunks int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.db.QueryRow("SELECT COUNT(*) FROM files").Scan(&files)
	s.db.QueryRow("SELECT COUNT(*) FROM chunks").Scan(&chunks)
	return files, chunks
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ContentHash returns a short content fingerprint.
func ContentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", h[:16])
}

// ftsQuote wraps each token in double quotes so user text with FTS5
// operators (-, OR, NEAR) cannot break the MATCH expression.
func ftsQuote(query string) string {
	var out []byte
	out = append(out, '"')
	for i := 0; i < len(query); i++ {
		if query[i] == '"' {
			out = append(out, '"', '"')
			continue
		}
		if query[i] == ' ' {
			out = append(out, '"', ' ', '"')
			continue
		}
		out = append(out, query[i])
	}
	return string(append(out, '"'))
}

func snippet(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestSplitFragments(t *testing.T) {
	text := `# Trip notes

We booked the Fairmont Royal York for the Toronto trip.
Flight AC104 leaves March 3rd at 9am.

Anna prefers the window seat.
Budget for the week is 2400 dollars.

Short closing paragraph.`

	frags := SplitFragments(text, 100)

	if len(frags) < 2 {
		t.Fatalf("expected at least 2 fragments, got %d", len(frags))
	}
	if frags[0].StartLine != 1 {
		t.Errorf("first fragment start line = %d, want 1", frags[0].StartLine)
	}
	for i, f := range frags {
		if f.Text == "" {
			t.Errorf("fragment %d has empty text", i)
		}
		if f.EndLine < f.StartLine {
			t.Errorf("fragment %d line range inverted: %d-%d", i, f.StartLine, f.EndLine)
		}
	}
}

func TestSplitFragments_Short(t *testing.T) {
	frags := SplitFragments("Just one line.", 1000)
	if len(frags) != 1 {
		t.Fatalf("expected 1 fragment, got %d", len(frags))
	}
	if frags[0].Text != "Just one line." {
		t.Errorf("text = %q", frags[0].Text)
	}
}

func TestStore_UpsertAndSearch(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()

	chunk := Chunk{
		ID:        "memory/notes/trip.md#0",
		Path:      "memory/notes/trip.md",
		StartLine: 1,
		EndLine:   4,
		Hash:      ContentHash("toronto hotel"),
		Text:      "We booked the Fairmont hotel for the Toronto trip in March.",
	}
	if err := store.UpsertChunk(chunk); err != nil {
		t.Fatalf("UpsertChunk: %v", err)
	}

	results, err := store.SearchFTS("toronto hotel", SearchOptions{MaxResults: 5})
	if err != nil {
		t.Fatalf("SearchFTS: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	if results[0].Path != "memory/notes/trip.md" {
		t.Errorf("path = %q", results[0].Path)
	}
	if results[0].Score <= 0 || results[0].Score > 1 {
		t.Errorf("score = %v, want (0,1]", results[0].Score)
	}
}

func TestStore_SearchQuoting(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()

	chunk := Chunk{
		ID:   "MEMORY.md#0",
		Path: "MEMORY.md", StartLine: 1, EndLine: 1,
		Hash: ContentHash("x"), Text: "budget review near the end of March",
	}
	if err := store.UpsertChunk(chunk); err != nil {
		t.Fatalf("UpsertChunk: %v", err)
	}

	// FTS5 operators in user text must not break the MATCH expression.
	if _, err := store.SearchFTS(`budget NEAR "march`, SearchOptions{}); err != nil {
		t.Fatalf("SearchFTS with operators: %v", err)
	}
}

func TestStore_DeleteByPath(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()

	chunk := Chunk{ID: "a.md#0", Path: "a.md", StartLine: 1, EndLine: 1, Hash: "h", Text: "tiles budget"}
	if err := store.UpsertChunk(chunk); err != nil {
		t.Fatalf("UpsertChunk: %v", err)
	}
	if err := store.DeleteByPath("a.md"); err != nil {
		t.Fatalf("DeleteByPath: %v", err)
	}
	if _, chunks := store.Counts(); chunks != 0 {
		t.Errorf("chunks = %d, want 0", chunks)
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	if got := CosineSimilarity(a, a); got < 0.999 {
		t.Errorf("self similarity = %v, want ~1", got)
	}
	if got := CosineSimilarity(a, []float32{0, 1, 0}); got != 0 {
		t.Errorf("orthogonal similarity = %v, want 0", got)
	}
	if got := CosineSimilarity(a, []float32{1, 0}); got != 0 {
		t.Errorf("dim mismatch similarity = %v, want 0", got)
	}
}

func TestManager_SyncAndSearch(t *testing.T) {
	ws := t.TempDir()
	if err := os.WriteFile(filepath.Join(ws, "MEMORY.md"), []byte("# Memory\n\nThe wifi password at the cabin is trout-stream-42.\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	memDir := filepath.Join(ws, "memory")
	if err := os.MkdirAll(memDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(memDir, "trip.md"), []byte("# Trip\n\nFlight AC104 to Toronto on March 3rd.\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	mgr, err := NewManager(ws, filepath.Join(ws, ".preflight", "index.db"), nil, "")
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer mgr.Close()

	ctx := context.Background()
	if err := mgr.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	st := mgr.Status()
	if st.FileCount != 2 {
		t.Errorf("files = %d, want 2", st.FileCount)
	}

	results, err := mgr.Search(ctx, "toronto flight", SearchOptions{MaxResults: 5})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("no results for indexed content")
	}
	if results[0].Path != "memory/trip.md" {
		t.Errorf("path = %q", results[0].Path)
	}

	// Second sync with no changes is a no-op (hash match).
	if err := mgr.Sync(ctx); err != nil {
		t.Fatalf("second Sync: %v", err)
	}

	// Removing a file drops it from the index.
	os.Remove(filepath.Join(memDir, "trip.md"))
	if err := mgr.Sync(ctx); err != nil {
		t.Fatalf("third Sync: %v", err)
	}
	if st := mgr.Status(); st.FileCount != 1 {
		t.Errorf("files after removal = %d, want 1", st.FileCount)
	}
}

package search

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/preflight/pkg/hostapi"
)

type fakeKeyword struct {
	hits  []Hit
	err   error
	calls int
	query string
}

func (f *fakeKeyword) Search(_ context.Context, query string, _ int) ([]Hit, error) {
	f.calls++
	f.query = query
	return f.hits, f.err
}

type fakeSemantic struct {
	hits  []Hit
	err   error
	calls int
	query string
}

func (f *fakeSemantic) Search(_ context.Context, query string, _ int, _ float64) ([]Hit, error) {
	f.calls++
	f.query = query
	return f.hits, f.err
}

func TestCascade_KeywordWins(t *testing.T) {
	kw := &fakeKeyword{hits: []Hit{{Path: "memory/trip.md", Score: 0.92}}}
	sem := &fakeSemantic{hits: []Hit{{Path: "other.md", Score: 0.5}}}
	c := NewCascade(kw, sem, nil, Options{})

	res := c.Run(context.Background(), "toronto trip", "when is our trip to toronto?")
	if res.Stage != StageKeyword {
		t.Fatalf("stage = %q, want keyword", res.Stage)
	}
	if sem.calls != 0 {
		t.Errorf("semantic backend invoked %d times, want 0", sem.calls)
	}
	if len(res.Hits) != 1 || res.Hits[0].Path != "memory/trip.md" {
		t.Errorf("hits = %+v", res.Hits)
	}
}

func TestCascade_FallsBackToSemantic(t *testing.T) {
	kw := &fakeKeyword{} // zero hits
	sem := &fakeSemantic{hits: []Hit{{Path: "memory/trip.md", Score: 0.61, Preview: "snippet"}}}
	c := NewCascade(kw, sem, nil, Options{MaxQueryChars: 200})

	normalized := "when is our trip to toronto and which hotel did anna book?"
	res := c.Run(context.Background(), "toronto trip", normalized)
	if res.Stage != StageSemantic {
		t.Fatalf("stage = %q, want semantic", res.Stage)
	}
	// The semantic stage receives the normalized text, not the terms.
	if sem.query != normalized {
		t.Errorf("semantic query = %q, want normalized text", sem.query)
	}
}

func TestCascade_SemanticQueryTruncated(t *testing.T) {
	sem := &fakeSemantic{}
	c := NewCascade(&fakeKeyword{}, sem, nil, Options{MaxQueryChars: 200})

	long := strings.Repeat("é", 300)
	c.Run(context.Background(), "q", long)
	if got := len([]rune(sem.query)); got != 200 {
		t.Errorf("semantic query runes = %d, want 200", got)
	}
}

func TestCascade_BackendErrorsAreSoft(t *testing.T) {
	kw := &fakeKeyword{err: errors.New("boom")}
	sem := &fakeSemantic{err: errors.New("boom")}
	c := NewCascade(kw, sem, nil, Options{})

	res := c.Run(context.Background(), "q", "some normalized text here")
	if res.Stage != StageNone || len(res.Hits) != 0 {
		t.Errorf("result = %+v, want none", res)
	}
}

func TestCascade_BothEmpty(t *testing.T) {
	c := NewCascade(&fakeKeyword{}, &fakeSemantic{}, nil, Options{})
	res := c.Run(context.Background(), "q", "text")
	if res.Stage != StageNone {
		t.Errorf("stage = %q, want none", res.Stage)
	}
}

func TestQMDBackend_ParseOutput(t *testing.T) {
	b, err := NewQMDBackend("qmd search --csv", 5*time.Second, "qmd://", "")
	if err != nil {
		t.Fatalf("NewQMDBackend: %v", err)
	}

	out := "#a1,0.92,qmd://memory/notes/trip.md\n#b2,0.87,qmd://MEMORY.md\nmalformed line\n#c3,notanumber,qmd://x.md\n"
	hits := b.parseOutput(out, 5)

	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(hits))
	}
	if hits[0].Path != "memory/notes/trip.md" {
		t.Errorf("path = %q, want memory/notes/trip.md", hits[0].Path)
	}
	if hits[0].Score != 0.92 {
		t.Errorf("score = %v, want 0.92", hits[0].Score)
	}
	if hits[1].Path != "MEMORY.md" {
		t.Errorf("path = %q", hits[1].Path)
	}
}

func TestQMDBackend_LimitApplied(t *testing.T) {
	b, _ := NewQMDBackend("qmd search", time.Second, "", "")
	out := "a,1.0,one.md\nb,0.9,two.md\nc,0.8,three.md\n"
	hits := b.parseOutput(out, 2)
	if len(hits) != 2 {
		t.Errorf("hits = %d, want 2", len(hits))
	}
}

func TestQMDBackend_ProcessFailure(t *testing.T) {
	b, err := NewQMDBackend("/nonexistent-preflight-binary", time.Second, "", "")
	if err != nil {
		t.Fatalf("NewQMDBackend: %v", err)
	}
	if _, err := b.Search(context.Background(), "query", 5); err == nil {
		t.Fatal("expected error from missing binary")
	}
}

func TestNewQMDBackend_EmptyCommand(t *testing.T) {
	if _, err := NewQMDBackend("", time.Second, "", ""); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestPreviewer_Fill(t *testing.T) {
	ws := t.TempDir()
	content := "# Heading line\nThe   hotel is\nthe Fairmont Royal York.\n"
	if err := os.WriteFile(filepath.Join(ws, "trip.md"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	p := NewPreviewer(ws, 2048, 150, 8)
	hits := []Hit{{Path: "trip.md"}, {Path: "missing.md"}}
	p.Fill(context.Background(), hits)

	if hits[0].Preview != "The hotel is the Fairmont Royal York." {
		t.Errorf("preview = %q", hits[0].Preview)
	}
	if hits[1].Preview != "" {
		t.Errorf("missing file preview = %q, want empty", hits[1].Preview)
	}
}

func TestPreviewer_Cached(t *testing.T) {
	ws := t.TempDir()
	path := filepath.Join(ws, "a.md")
	if err := os.WriteFile(path, []byte("original text"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := NewPreviewer(ws, 2048, 150, 8)
	hits := []Hit{{Path: "a.md"}}
	p.Fill(context.Background(), hits)

	// Change the file; the cached preview must still be served.
	os.WriteFile(path, []byte("changed text"), 0o644)
	hits2 := []Hit{{Path: "a.md"}}
	p.Fill(context.Background(), hits2)
	if hits2[0].Preview != "original text" {
		t.Errorf("preview = %q, want cached %q", hits2[0].Preview, "original text")
	}
}

func TestPreviewer_MultibyteTruncation(t *testing.T) {
	ws := t.TempDir()
	// 3-byte runes; a 10-byte read window lands mid-rune.
	if err := os.WriteFile(filepath.Join(ws, "a.md"), []byte(strings.Repeat("あ", 20)), 0o644); err != nil {
		t.Fatal(err)
	}

	p := NewPreviewer(ws, 10, 150, 8)
	hits := []Hit{{Path: "a.md"}}
	p.Fill(context.Background(), hits)

	if !strings.HasPrefix(hits[0].Preview, "あ") {
		t.Fatalf("preview = %q", hits[0].Preview)
	}
	for _, r := range hits[0].Preview {
		if r == '�' {
			t.Fatal("preview contains replacement rune (split multi-byte char)")
		}
	}
}

func TestPreviewer_InvalidByteMidFile(t *testing.T) {
	ws := t.TempDir()
	// A stray invalid byte must not discard the valid text after it.
	content := append([]byte("before"), 0xff)
	content = append(content, []byte(" after the bad byte")...)
	if err := os.WriteFile(filepath.Join(ws, "a.md"), content, 0o644); err != nil {
		t.Fatal(err)
	}

	p := NewPreviewer(ws, 2048, 150, 8)
	hits := []Hit{{Path: "a.md"}}
	p.Fill(context.Background(), hits)

	if !strings.Contains(hits[0].Preview, "after the bad byte") {
		t.Errorf("preview = %q, want text past the invalid byte kept", hits[0].Preview)
	}
}

func TestFormatHints(t *testing.T) {
	hits := []Hit{
		{Path: "memory/trip.md", Score: 0.925, Preview: "Flight AC104 on March 3rd"},
		{Path: "MEMORY.md", Score: 0.4, Preview: "wifi password"},
	}
	block := FormatHints(hits)

	if !strings.HasPrefix(block, "<memory-hints>") || !strings.HasSuffix(block, "</memory-hints>") {
		t.Errorf("block not wrapped in delimiter tag:\n%s", block)
	}
	if !strings.Contains(block, `- memory/trip.md (0.93): "Flight AC104 on March 3rd..."`) {
		t.Errorf("score not rounded to 2dp:\n%s", block)
	}
	if !strings.Contains(block, `- MEMORY.md (0.40): "wifi password..."`) {
		t.Errorf("second hit missing:\n%s", block)
	}
}

func TestFormatHints_Empty(t *testing.T) {
	if got := FormatHints(nil); got != "" {
		t.Errorf("FormatHints(nil) = %q, want empty", got)
	}
}

func TestDisabledHint(t *testing.T) {
	block := DisabledHint()
	if !strings.Contains(block, "recall is disabled") {
		t.Errorf("diagnostic missing explanation:\n%s", block)
	}
}

func TestHostToolBackend_Disabled(t *testing.T) {
	b := NewHostToolBackend(func(_ context.Context, _ hostapi.SemanticQuery) (hostapi.SemanticResponse, error) {
		return hostapi.SemanticResponse{Disabled: true}, nil
	})
	hits, err := b.Search(context.Background(), "q", 5, 0.3)
	if err != nil || hits != nil {
		t.Errorf("hits = %v, err = %v, want nil/nil", hits, err)
	}
}

func TestHostToolBackend_Results(t *testing.T) {
	b := NewHostToolBackend(func(_ context.Context, q hostapi.SemanticQuery) (hostapi.SemanticResponse, error) {
		if q.MaxResults != 5 || q.MinScore != 0.3 {
			t.Errorf("query = %+v", q)
		}
		return hostapi.SemanticResponse{Results: []hostapi.SemanticResult{
			{Path: "memory/a.md", Snippet: "snip", Score: 0.55},
		}}, nil
	})
	hits, err := b.Search(context.Background(), "q", 5, 0.3)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Preview != "snip" {
		t.Errorf("hits = %+v", hits)
	}
}

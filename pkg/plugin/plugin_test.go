package plugin

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nextlevelbuilder/preflight/pkg/hostapi"
)

// writeConfig points the pipeline at a temp workspace with an
// unreachable extractor endpoint, so turns run on the deterministic
// fallback and the keyword stage stays empty.
func writeConfig(t *testing.T) string {
	t.Helper()
	ws := t.TempDir()
	path := filepath.Join(ws, "config.json5")
	content := `{
	workspace: "` + ws + `",
	extractor: { ollamaUrl: "http://127.0.0.1:1", timeoutSeconds: 1 },
	keyword: { command: "" },
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpen_HostSearchSelected(t *testing.T) {
	calls := 0
	var gotQuery hostapi.SemanticQuery
	p, err := Open(context.Background(), writeConfig(t), WithHostSearch(
		func(_ context.Context, q hostapi.SemanticQuery) (hostapi.SemanticResponse, error) {
			calls++
			gotQuery = q
			return hostapi.SemanticResponse{Results: []hostapi.SemanticResult{
				{Path: "memory/trip.md", Score: 0.81, Snippet: "Fairmont Royal York"},
			}}, nil
		},
	))
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	out := p.ProcessTurn(context.Background(), hostapi.Turn{
		PromptText: "what hotel did we book for the Toronto trip?",
	})
	if calls != 1 {
		t.Fatalf("host search calls = %d, want 1", calls)
	}
	if gotQuery.Query == "" || gotQuery.MaxResults <= 0 {
		t.Errorf("host query = %+v", gotQuery)
	}
	if !strings.Contains(out.PrependContext, "memory/trip.md (0.81)") {
		t.Errorf("output = %q", out.PrependContext)
	}
	if !strings.Contains(out.PrependContext, "Fairmont Royal York") {
		t.Errorf("output = %q", out.PrependContext)
	}
}

func TestOpen_HostSearchDisabledIsSilent(t *testing.T) {
	p, err := Open(context.Background(), writeConfig(t), WithHostSearch(
		func(_ context.Context, _ hostapi.SemanticQuery) (hostapi.SemanticResponse, error) {
			return hostapi.SemanticResponse{Disabled: true}, nil
		},
	))
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	out := p.ProcessTurn(context.Background(), hostapi.Turn{
		PromptText: "what hotel did we book for the Toronto trip?",
	})
	if out.PrependContext != "" {
		t.Errorf("output = %q, want empty", out.PrependContext)
	}
}

func TestOpen_SkippedTurnEmptyOutput(t *testing.T) {
	p, err := Open(context.Background(), writeConfig(t), WithHostSearch(
		func(_ context.Context, _ hostapi.SemanticQuery) (hostapi.SemanticResponse, error) {
			t.Fatal("host search called for ineligible turn")
			return hostapi.SemanticResponse{}, nil
		},
	))
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	out := p.ProcessTurn(context.Background(), hostapi.Turn{PromptText: "thanks!"})
	if out.PrependContext != "" {
		t.Errorf("output = %q, want empty", out.PrependContext)
	}
}

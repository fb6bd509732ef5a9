package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/nextlevelbuilder/preflight/internal/providers"
)

// fakeGenerator returns a canned response or error.
type fakeGenerator struct {
	response string
	err      error
	calls    int
}

func (f *fakeGenerator) Generate(_ context.Context, _ providers.GenerateRequest) (string, error) {
	f.calls++
	return f.response, f.err
}

func TestExtract_ModelPath(t *testing.T) {
	gen := &fakeGenerator{response: "Toronto, trip"}
	e := New(gen, Options{Model: "test"})

	ts, ok := e.Extract(context.Background(), "how was our Toronto trip?")
	if !ok {
		t.Fatal("extract not ok")
	}
	if ts.Provenance != ProvenanceModel {
		t.Errorf("provenance = %q, want %q", ts.Provenance, ProvenanceModel)
	}
	if got := ts.Query(3); got != "toronto trip" {
		t.Errorf("query = %q, want %q", got, "toronto trip")
	}
}

func TestExtract_QueryCapped(t *testing.T) {
	ts := TermSet{Terms: []string{"alpha", "beta", "gamma", "delta"}, Provenance: ProvenanceModel}
	if got := ts.Query(3); got != "alpha beta gamma" {
		t.Errorf("query = %q", got)
	}
}

func TestExtract_ModelFailureFallsBack(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("connection refused")}
	e := New(gen, Options{Model: "test", UseFallback: true})

	ts, ok := e.Extract(context.Background(), "What did Anna say about the venue deposit?")
	if !ok {
		t.Fatal("extract not ok")
	}
	if ts.Provenance != ProvenanceFallback {
		t.Errorf("provenance = %q, want %q", ts.Provenance, ProvenanceFallback)
	}
}

func TestExtract_UnavailableWithoutFallback(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("connection refused")}
	e := New(gen, Options{Model: "test", UseFallback: false})

	_, ok := e.Extract(context.Background(), "What did Anna say about the venue deposit?")
	if ok {
		t.Fatal("extract ok, want unavailable")
	}
}

func TestExtract_OversizedResponseRejected(t *testing.T) {
	long := make([]byte, 0, 300)
	for i := 0; i < 30; i++ {
		long = append(long, "rambling, "...)
	}
	gen := &fakeGenerator{response: string(long)}
	e := New(gen, Options{Model: "test", MaxResponseLen: 120})

	_, ok := e.Extract(context.Background(), "tell me about the project timeline please")
	if ok {
		t.Fatal("oversized response accepted")
	}
}

func TestExtract_RateLimited(t *testing.T) {
	gen := &fakeGenerator{response: "tiles, budget"}
	e := New(gen, Options{Model: "test", RatePerMinute: 1})

	// Exhaust the burst allowance.
	if _, ok := e.Extract(context.Background(), "kitchen tiles budget question here"); !ok {
		t.Fatal("first call should pass")
	}
	if _, ok := e.Extract(context.Background(), "kitchen tiles budget question here"); ok {
		t.Fatal("second call should be limited with no fallback")
	}
	if gen.calls != 1 {
		t.Errorf("model called %d times, want 1", gen.calls)
	}
}

func TestStopwordTerms(t *testing.T) {
	ts := StopwordTerms("What did we decide about the kitchen tiles, and why?")
	want := []string{"decide", "kitchen", "tiles"}
	if len(ts.Terms) != len(want) {
		t.Fatalf("terms = %v, want %v", ts.Terms, want)
	}
	for i := range want {
		if ts.Terms[i] != want[i] {
			t.Errorf("terms[%d] = %q, want %q", i, ts.Terms[i], want[i])
		}
	}
	if ts.Provenance != ProvenanceFallback {
		t.Errorf("provenance = %q", ts.Provenance)
	}
}

func TestStopwordTerms_DropsMetaWords(t *testing.T) {
	ts := StopwordTerms("recall my memory hint about Toronto")
	if len(ts.Terms) != 1 || ts.Terms[0] != "toronto" {
		t.Errorf("terms = %v, want [toronto]", ts.Terms)
	}
}

func TestSplitTerms_CleansLabelAndQuotes(t *testing.T) {
	terms := splitTerms(`Terms: "toronto", trip, x`)
	if len(terms) != 2 || terms[0] != "toronto" || terms[1] != "trip" {
		t.Errorf("terms = %v", terms)
	}
}

package retrieval

import (
	"context"
	"errors"
	"testing"
)

type fakeSearcher struct {
	results []Candidate
	err     error
	gotK    int
	gotQ    string
}

func (f *fakeSearcher) SearchText(ctx context.Context, query string, k int) ([]Candidate, error) {
	f.gotQ = query
	f.gotK = k
	return f.results, f.err
}

func TestRetrieveContext_FiltersBelowThreshold(t *testing.T) {
	f := &fakeSearcher{results: []Candidate{
		{Text: "alpha", Score: 0.9},
		{Text: "beta", Score: 0.31},
		{Text: "gamma", Score: 0.1},
	}}
	g := NewGate(f, 3, 0.3)

	got, ok := g.RetrieveContext(context.Background(), "query")
	if !ok {
		t.Fatalf("expected context")
	}
	// Space-joined survivor texts, in search order.
	if got != "alpha beta" {
		t.Errorf("context = %q, want %q", got, "alpha beta")
	}
	if f.gotK != 3 || f.gotQ != "query" {
		t.Errorf("search called with k=%d q=%q", f.gotK, f.gotQ)
	}
}

func TestRetrieveContext_ThresholdIsStrict(t *testing.T) {
	f := &fakeSearcher{results: []Candidate{
		{Text: "edge", Score: 0.3},
		{Text: "low", Score: 0.2},
	}}
	g := NewGate(f, 3, 0.3)
	if got, ok := g.RetrieveContext(context.Background(), "q"); ok {
		t.Errorf("score == threshold must be filtered, got %q", got)
	}
}

func TestRetrieveContext_EmptyResults(t *testing.T) {
	g := NewGate(&fakeSearcher{}, 3, 0.3)
	if _, ok := g.RetrieveContext(context.Background(), "q"); ok {
		t.Errorf("expected no context for empty results")
	}
}

func TestRetrieveContext_FailsClosed(t *testing.T) {
	f := &fakeSearcher{err: errors.New("qdrant down")}
	g := NewGate(f, 3, 0.3)
	got, ok := g.RetrieveContext(context.Background(), "q")
	if ok || got != "" {
		t.Errorf("search failure must degrade to no context, got %q, %v", got, ok)
	}
}

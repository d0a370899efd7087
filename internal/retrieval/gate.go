package retrieval

import (
	"context"
	"log"
	"strings"
)

// Searcher is the similarity-search capability the gate wraps. Production
// wiring uses the embedder+store pipeline; tests substitute fakes.
type Searcher interface {
	SearchText(ctx context.Context, query string, k int) ([]Candidate, error)
}

// embeddingSearcher pairs the embedder with the store to form the full
// query → vector → ranked hits pipeline.
type embeddingSearcher struct {
	embedder *Embedder
	store    *Store
}

func (es *embeddingSearcher) SearchText(ctx context.Context, query string, k int) ([]Candidate, error) {
	vec, err := es.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return es.store.Search(ctx, vec, k)
}

// Gate filters retrieved candidates by a similarity threshold before they are
// allowed into a prompt. Grounding is an enhancement, not a hard dependency:
// any failure below the gate degrades to "no context".
type Gate struct {
	searcher  Searcher
	topK      int
	threshold float64
}

// NewGate builds a gate over an arbitrary searcher.
func NewGate(searcher Searcher, topK int, threshold float64) *Gate {
	return &Gate{searcher: searcher, topK: topK, threshold: threshold}
}

// NewGateWithStore wires the embedder+store pipeline behind a gate.
func NewGateWithStore(embedder *Embedder, store *Store, topK int, threshold float64) *Gate {
	return &Gate{
		searcher:  &embeddingSearcher{embedder: embedder, store: store},
		topK:      topK,
		threshold: threshold,
	}
}

// RetrieveContext returns the space-joined texts of all candidates whose
// score strictly exceeds the threshold, in the order the search returned
// them. The second return is false when nothing relevant (or nothing at all)
// came back.
func (g *Gate) RetrieveContext(ctx context.Context, query string) (string, bool) {
	if g.searcher == nil {
		return "", false
	}
	results, err := g.searcher.SearchText(ctx, query, g.topK)
	if err != nil {
		// Fail closed: an unreachable search backend must not take the
		// conversation down with it.
		log.Printf("[Retrieval] search unavailable, proceeding without context: %v", err)
		return "", false
	}

	scores := make([]float64, 0, len(results))
	kept := make([]string, 0, len(results))
	for _, r := range results {
		scores = append(scores, r.Score)
		if r.Score > g.threshold {
			kept = append(kept, r.Text)
		}
	}
	log.Printf("[Retrieval] scores: %v", scores)

	if len(kept) == 0 {
		return "", false
	}
	return strings.Join(kept, " "), true
}

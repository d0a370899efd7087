package ingest

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"mb-mentor/internal/retrieval"
)

// Pipeline turns documentation sources into indexed vector-store chunks:
// fetch (or read), clean, chunk, embed, upsert.
type Pipeline struct {
	fetcher   *Fetcher
	embedder  *retrieval.Embedder
	store     *retrieval.Store
	chunkSize int
}

func NewPipeline(fetcher *Fetcher, embedder *retrieval.Embedder, store *retrieval.Store, chunkSize int) *Pipeline {
	return &Pipeline{
		fetcher:   fetcher,
		embedder:  embedder,
		store:     store,
		chunkSize: chunkSize,
	}
}

// IngestURL fetches one documentation page and indexes it. Returns the number
// of chunks written.
func (p *Pipeline) IngestURL(ctx context.Context, pageURL string) (int, error) {
	page, err := p.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return 0, err
	}
	return p.index(ctx, page.URL, page.Title, page.Text)
}

// IngestFile indexes a local documentation file (markdown or plain text).
func (p *Pipeline) IngestFile(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return p.index(ctx, path, title, string(raw))
}

func (p *Pipeline) index(ctx context.Context, source, title, text string) (int, error) {
	pieces := ChunkText(text, p.chunkSize)
	if len(pieces) == 0 {
		log.Printf("[Ingest] %s: no indexable text, skipping", source)
		return 0, nil
	}

	chunks := make([]retrieval.Chunk, 0, len(pieces))
	embeddings := make([][]float32, 0, len(pieces))
	for _, piece := range pieces {
		vec, err := p.embedder.Embed(ctx, piece)
		if err != nil {
			return 0, fmt.Errorf("failed to embed chunk from %s: %w", source, err)
		}
		chunks = append(chunks, retrieval.Chunk{
			Text:   piece,
			Source: source,
			Title:  title,
		})
		embeddings = append(embeddings, vec)
	}

	if err := p.store.Upsert(ctx, chunks, embeddings); err != nil {
		return 0, err
	}
	log.Printf("[Ingest] %s: indexed %d chunks", source, len(chunks))
	return len(chunks), nil
}

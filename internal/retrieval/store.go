package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// Candidate is one ranked hit from the vector store.
type Candidate struct {
	Text  string
	Score float64
}

// Chunk is one piece of documentation to index.
type Chunk struct {
	ID     string
	Text   string
	Source string
	Title  string
}

// Store handles all vector database operations against the documentation
// collection.
type Store struct {
	client         *qdrant.Client
	collectionName string
}

// NewStore connects to qdrant and ensures the docs collection exists.
func NewStore(qdrantURL, collectionName, apiKey string) (*Store, error) {
	// Strip http:// or https:// prefix and any port
	qdrantURL = strings.TrimPrefix(qdrantURL, "http://")
	qdrantURL = strings.TrimPrefix(qdrantURL, "https://")

	host := qdrantURL
	if idx := strings.Index(qdrantURL, ":"); idx != -1 {
		host = qdrantURL[:idx]
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   6334, // gRPC port
		APIKey: apiKey,
		UseTLS: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	s := &Store{
		client:         client,
		collectionName: collectionName,
	}

	if err := s.ensureCollection(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ensure collection: %w", err)
	}

	return s, nil
}

// ensureCollection creates the collection if it doesn't exist
func (s *Store) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	// 384 dimensions (all-MiniLM-L6-v2)
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     384,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// Search returns the top-k candidates for the query embedding, ranked by
// descending similarity. Threshold filtering is the gate's job, not the
// store's.
func (s *Store) Search(ctx context.Context, queryEmbedding []float32, k int) ([]Candidate, error) {
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collectionName,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Limit:          uint64Ptr(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]Candidate, 0, len(points))
	for _, point := range points {
		text := ""
		if v, ok := point.Payload["text"]; ok {
			text = v.GetStringValue()
		}
		results = append(results, Candidate{
			Text:  text,
			Score: float64(point.Score),
		})
	}
	return results, nil
}

// Upsert indexes documentation chunks with their embeddings.
func (s *Store) Upsert(ctx context.Context, chunks []Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunk/embedding count mismatch: %d vs %d", len(chunks), len(embeddings))
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for i, c := range chunks {
		id := c.ID
		if id == "" {
			id = uuid.New().String()
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(id),
			Vectors: qdrant.NewVectors(embeddings[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"text":   c.Text,
				"source": c.Source,
				"title":  c.Title,
			}),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionName,
		Points:         points,
		Wait:           boolPtr(true),
	})
	if err != nil {
		return fmt.Errorf("upsert failed: %w", err)
	}
	return nil
}

func boolPtr(b bool) *bool       { return &b }
func uint64Ptr(u uint64) *uint64 { return &u }

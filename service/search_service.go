package service

import (
	"context"

	"github.com/quangdm/studyrag-be/database"
	"github.com/quangdm/studyrag-be/types"
)

const (
	DefaultTopK          = 5
	DefaultMinSimilarity = 0.7
)

// SearchService ranks stored chunks by cosine similarity to a query,
// scoped to an owner and optionally a course.
type SearchService struct {
	store    database.ChunkStore
	embedder *EmbeddingService
}

func NewSearchService(store database.ChunkStore, embedder *EmbeddingService) *SearchService {
	return &SearchService{
		store:    store,
		embedder: embedder,
	}
}

// SearchByVector fetches the topK nearest chunks first and applies the
// similarity floor second. When some of the top K fall below the floor the
// result set is simply smaller; the store is not searched deeper to
// backfill.
func (s *SearchService) SearchByVector(ctx context.Context, vector []float32, userID, courseID string, topK int, minSimilarity float64) ([]types.SearchResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if minSimilarity <= 0 {
		minSimilarity = DefaultMinSimilarity
	}

	results, err := s.store.SearchByVector(ctx, vector, userID, courseID, topK)
	if err != nil {
		return nil, err
	}

	filtered := make([]types.SearchResult, 0, len(results))
	for _, res := range results {
		if res.Similarity >= minSimilarity {
			filtered = append(filtered, res)
		}
	}
	return filtered, nil
}

// SearchByText embeds the query and searches by the resulting vector.
func (s *SearchService) SearchByText(ctx context.Context, query, userID, courseID string, topK int, minSimilarity float64) ([]types.SearchResult, error) {
	vector, err := s.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.SearchByVector(ctx, vector, userID, courseID, topK, minSimilarity)
}

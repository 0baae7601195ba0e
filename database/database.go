package database

import (
	"context"

	"github.com/quangdm/studyrag-be/types"
)

// ChunkStore is the vector-capable store the retrieval pipeline runs
// against. A document has no entity of its own: it is the set of chunks
// sharing a (userID, courseID, fileName) composite key, and document-level
// operations are chunk-set operations over that key.
type ChunkStore interface {
	// BatchInsertChunks persists chunks with their embedding vectors.
	// chunks and embeddings must be the same length and aligned by index.
	BatchInsertChunks(ctx context.Context, chunks []types.StoredChunk, embeddings [][]float32) error

	// SearchByVector returns the topK stored chunks nearest to the query
	// vector, scoped to userID and, when non-empty, courseID. Results come
	// back ordered by descending cosine similarity.
	SearchByVector(ctx context.Context, vector []float32, userID, courseID string, topK int) ([]types.SearchResult, error)

	// FetchChunkRange returns the chunks of one document whose chunkIndex
	// lies in [fromIndex, toIndex], ordered by chunkIndex ascending.
	FetchChunkRange(ctx context.Context, userID, courseID, fileName string, fromIndex, toIndex int) ([]types.SearchResult, error)

	// DeleteDocument removes every chunk matching the composite key.
	DeleteDocument(ctx context.Context, userID, courseID, fileName string) error

	// ListDocuments groups the user's chunks into document views.
	ListDocuments(ctx context.Context, userID, courseID string) ([]types.DocumentRef, error)
}

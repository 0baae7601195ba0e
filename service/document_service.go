package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/quangdm/studyrag-be/database"
	"github.com/quangdm/studyrag-be/types"
)

// DocumentService owns the document view: documents exist only as chunk
// sets sharing a (userID, courseID, fileName) key, and every document
// operation here is a chunk-set operation. Keeping the key logic in one
// place stops it leaking into every consumer.
type DocumentService struct {
	chunker  *ChunkerService
	embedder *EmbeddingService
	store    database.ChunkStore
}

func NewDocumentService(chunker *ChunkerService, embedder *EmbeddingService, store database.ChunkStore) *DocumentService {
	return &DocumentService{
		chunker:  chunker,
		embedder: embedder,
		store:    store,
	}
}

// IngestText chunks a document's plain text, embeds all chunks in one
// batched call, and persists the (chunk, vector) pairs. Returns the number
// of chunks written. Re-ingesting an existing file name replaces the
// previous chunk set.
func (s *DocumentService) IngestText(ctx context.Context, userID, courseID, fileName, documentType, text string) (int, error) {
	if strings.TrimSpace(fileName) == "" {
		return 0, fmt.Errorf("file name is required")
	}

	chunks := s.chunker.Chunk(text)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("document %q contains no text to index", fileName)
	}

	texts := make([]string, len(chunks))
	stored := make([]types.StoredChunk, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
		stored[i] = types.StoredChunk{
			UserID:       userID,
			CourseID:     courseID,
			DocumentType: documentType,
			FileName:     fileName,
			Chunk:        chunk,
		}
	}

	embeddings, err := s.embedder.EmbedMany(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed document %q: %w", fileName, err)
	}

	// Drop any stale chunk set under the same key before writing the new
	// one, so chunk indexes stay unique per document.
	if err := s.store.DeleteDocument(ctx, userID, courseID, fileName); err != nil {
		return 0, fmt.Errorf("failed to clear previous chunks of %q: %w", fileName, err)
	}

	if err := s.store.BatchInsertChunks(ctx, stored, embeddings); err != nil {
		return 0, fmt.Errorf("failed to persist chunks of %q: %w", fileName, err)
	}

	log.Printf("Ingested %q: %d chunks", fileName, len(chunks))
	return len(chunks), nil
}

// DeleteDocument removes the whole chunk set of one document.
func (s *DocumentService) DeleteDocument(ctx context.Context, userID, courseID, fileName string) error {
	return s.store.DeleteDocument(ctx, userID, courseID, fileName)
}

// ListDocuments returns the user's documents as derived views over their
// chunk sets.
func (s *DocumentService) ListDocuments(ctx context.Context, userID, courseID string) ([]types.DocumentRef, error) {
	return s.store.ListDocuments(ctx, userID, courseID)
}

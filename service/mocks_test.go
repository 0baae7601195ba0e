package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/quangdm/studyrag-be/types"
)

// --- Shared fakes for the service tests ---

// fakeEmbeddingAPI implements embeddingAPI. Vectors come from the per-text
// map when present, otherwise a deterministic default; errors are consumed
// one per call before any success.
type fakeEmbeddingAPI struct {
	vectors map[string][]float32
	dims    int // response dimensionality, EmbeddingDimensions when 0
	errs    []error
	calls   int
	batches [][]string
}

func (f *fakeEmbeddingAPI) CreateEmbeddings(_ context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	f.calls++
	req := conv.Convert()
	texts, _ := req.Input.([]string)
	f.batches = append(f.batches, texts)

	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return openai.EmbeddingResponse{}, err
		}
	}

	dims := f.dims
	if dims == 0 {
		dims = EmbeddingDimensions
	}
	data := make([]openai.Embedding, len(texts))
	for i, text := range texts {
		if vec, ok := f.vectors[text]; ok {
			data[i] = openai.Embedding{Embedding: vec}
			continue
		}
		data[i] = openai.Embedding{Embedding: unitVec(dims, i+1)}
	}
	return openai.EmbeddingResponse{Data: data}, nil
}

// unitVec returns a dims-length vector pointing along the given axis.
func unitVec(dims, axis int) []float32 {
	v := make([]float32, dims)
	v[axis%dims] = 1
	return v
}

// blendVec mixes two axes, normalized, so cosine against either axis is
// predictable.
func blendVec(dims, axisA, axisB int, weightA, weightB float64) []float32 {
	v := make([]float32, dims)
	norm := math.Sqrt(weightA*weightA + weightB*weightB)
	v[axisA%dims] = float32(weightA / norm)
	v[axisB%dims] = float32(weightB / norm)
	return v
}

func newTestEmbedder(api *fakeEmbeddingAPI) *EmbeddingService {
	return &EmbeddingService{
		client:     api,
		model:      "text-embedding-3-small",
		maxRetries: 2,
		sleep:      func(time.Duration) {},
	}
}

// --- In-memory chunk store ---

type storedRow struct {
	id     string
	chunk  types.StoredChunk
	vector []float32
}

// memChunkStore is a brute-force in-memory ChunkStore with injectable
// failures, standing in for weaviate.
type memChunkStore struct {
	rows        []storedRow
	nextID      int
	insertCalls int

	searchErr error
	rangeErr  error
	deleteErr error
	listErr   error

	// canned, when set, is returned by SearchByVector (truncated to topK)
	// instead of brute-force scoring.
	canned []types.SearchResult
}

func (m *memChunkStore) BatchInsertChunks(_ context.Context, chunks []types.StoredChunk, embeddings [][]float32) error {
	m.insertCalls++
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunk/embedding count mismatch: %d vs %d", len(chunks), len(embeddings))
	}
	for i, chunk := range chunks {
		m.rows = append(m.rows, storedRow{
			id:     fmt.Sprintf("chunk-%d", m.nextID),
			chunk:  chunk,
			vector: embeddings[i],
		})
		m.nextID++
	}
	return nil
}

func (m *memChunkStore) SearchByVector(_ context.Context, vector []float32, userID, courseID string, topK int) ([]types.SearchResult, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if m.canned != nil {
		if topK > 0 && topK < len(m.canned) {
			return m.canned[:topK], nil
		}
		return m.canned, nil
	}

	var results []types.SearchResult
	for _, row := range m.rows {
		if row.chunk.UserID != userID {
			continue
		}
		if courseID != "" && row.chunk.CourseID != courseID {
			continue
		}
		results = append(results, m.toResult(row, cosine(vector, row.vector)))
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (m *memChunkStore) FetchChunkRange(_ context.Context, userID, courseID, fileName string, fromIndex, toIndex int) ([]types.SearchResult, error) {
	if m.rangeErr != nil {
		return nil, m.rangeErr
	}
	var results []types.SearchResult
	for _, row := range m.rows {
		c := row.chunk
		if c.UserID != userID || c.CourseID != courseID || c.FileName != fileName {
			continue
		}
		if c.Index < fromIndex || c.Index > toIndex {
			continue
		}
		results = append(results, m.toResult(row, 0))
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].ChunkIndex < results[j].ChunkIndex
	})
	return results, nil
}

func (m *memChunkStore) DeleteDocument(_ context.Context, userID, courseID, fileName string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	kept := m.rows[:0]
	for _, row := range m.rows {
		c := row.chunk
		if c.UserID == userID && c.CourseID == courseID && c.FileName == fileName {
			continue
		}
		kept = append(kept, row)
	}
	m.rows = kept
	return nil
}

func (m *memChunkStore) ListDocuments(_ context.Context, userID, courseID string) ([]types.DocumentRef, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	refs := make(map[string]*types.DocumentRef)
	var order []string
	for _, row := range m.rows {
		c := row.chunk
		if c.UserID != userID {
			continue
		}
		if courseID != "" && c.CourseID != courseID {
			continue
		}
		key := c.UserID + "/" + c.CourseID + "/" + c.FileName
		if ref, ok := refs[key]; ok {
			ref.ChunkCount++
			continue
		}
		refs[key] = &types.DocumentRef{
			UserID:       c.UserID,
			CourseID:     c.CourseID,
			FileName:     c.FileName,
			DocumentType: c.DocumentType,
			ChunkCount:   1,
		}
		order = append(order, key)
	}
	var docs []types.DocumentRef
	for _, key := range order {
		docs = append(docs, *refs[key])
	}
	return docs, nil
}

func (m *memChunkStore) toResult(row storedRow, similarity float64) types.SearchResult {
	c := row.chunk
	return types.SearchResult{
		ID:           row.id,
		CourseID:     c.CourseID,
		DocumentType: c.DocumentType,
		FileName:     c.FileName,
		ChunkIndex:   c.Index,
		Content:      c.Text,
		Metadata:     c.Metadata,
		Similarity:   similarity,
	}
}

func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		if i >= len(b) {
			break
		}
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// --- Fake AI provider ---

type fakeAIService struct {
	variations    []string
	variationsErr error

	chatAnswer string
	chatErr    error

	variationCalls int
	lastPrompt     string
	lastMessages   []types.Message
}

func (f *fakeAIService) Chat(_ context.Context, prompt string, messages []types.Message) (string, error) {
	f.lastPrompt = prompt
	f.lastMessages = messages
	if f.chatErr != nil {
		return "", f.chatErr
	}
	return f.chatAnswer, nil
}

func (f *fakeAIService) ChatStream(_ context.Context, prompt string, messages []types.Message, handler types.StreamHandler) error {
	f.lastPrompt = prompt
	f.lastMessages = messages
	if f.chatErr != nil {
		return f.chatErr
	}
	handler(f.chatAnswer)
	return nil
}

func (f *fakeAIService) GenerateVariations(_ context.Context, _ string) ([]string, error) {
	f.variationCalls++
	if f.variationsErr != nil {
		return nil, f.variationsErr
	}
	return f.variations, nil
}

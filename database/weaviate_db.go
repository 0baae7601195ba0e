package database

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/quangdm/studyrag-be/config"
	"github.com/quangdm/studyrag-be/types"
)

const BATCH_SIZE = 200

// listScanLimit bounds the document-view scan; chunk counts per user stay
// far below this in practice.
const listScanLimit = 10000

var (
	CHUNK_CLASS        = "CourseChunk"
	CHUNK_CLASS_OBJECT = &models.Class{
		Class: CHUNK_CLASS,
		Properties: []*models.Property{
			{Name: "userId", DataType: []string{"text"}},
			{Name: "courseId", DataType: []string{"text"}},
			{Name: "documentType", DataType: []string{"text"}},
			{Name: "fileName", DataType: []string{"text"}},
			{Name: "chunkIndex", DataType: []string{"int"}},
			{Name: "content", DataType: []string{"text"}},
			{Name: "tokenCount", DataType: []string{"int"}},
			{Name: "startChar", DataType: []string{"int"}},
			{Name: "endChar", DataType: []string{"int"}},
			{Name: "createdAt", DataType: []string{"int"}},
		},
		// Vectors are supplied by the embedding service, never by a
		// weaviate vectorizer module.
		Vectorizer:      "none",
		VectorIndexType: "hnsw",
	}
)

var chunkFields = []graphql.Field{
	{Name: "userId"},
	{Name: "courseId"},
	{Name: "documentType"},
	{Name: "fileName"},
	{Name: "chunkIndex"},
	{Name: "content"},
	{Name: "startChar"},
	{Name: "endChar"},
	{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}, {Name: "id"}}},
}

// WeaviateStore implements ChunkStore on a weaviate class holding one
// object per chunk, vector attached.
type WeaviateStore struct {
	client *weaviate.Client
}

func NewWeaviateStore(config config.WeaviateStoreConfig) (*WeaviateStore, error) {
	var scheme string
	if strings.Contains(config.Host, "https") {
		scheme = "https"
	} else {
		scheme = "http"
	}
	host := strings.TrimPrefix(config.Host, scheme+"://")
	cfg := weaviate.Config{
		Host:   host,
		Scheme: scheme,
	}
	if config.APIKey != "" {
		cfg.AuthConfig = auth.ApiKey{
			Value: config.APIKey,
		}
	}
	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %v", err)
	}

	schema, err := client.Schema().Getter().Do(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get schema: %v", err)
	}

	hasChunkClass := false
	for _, class := range schema.Classes {
		if class.Class == CHUNK_CLASS {
			hasChunkClass = true
			break
		}
	}
	// Create the chunk class if it doesn't exist
	if !hasChunkClass {
		err = client.Schema().ClassCreator().WithClass(CHUNK_CLASS_OBJECT).Do(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to create %s class: %v", CHUNK_CLASS, err)
		}
	}
	return &WeaviateStore{
		client: client,
	}, nil
}

// ReInit drops and recreates the chunk class, discarding all stored chunks.
func (s *WeaviateStore) ReInit() error {
	err := s.client.Schema().ClassDeleter().WithClassName(CHUNK_CLASS).Do(context.Background())
	if err != nil {
		return fmt.Errorf("failed to delete %s class: %v", CHUNK_CLASS, err)
	}

	err = s.client.Schema().ClassCreator().WithClass(CHUNK_CLASS_OBJECT).Do(context.Background())
	if err != nil {
		return fmt.Errorf("failed to create %s class: %v", CHUNK_CLASS, err)
	}
	return nil
}

func (s *WeaviateStore) BatchInsertChunks(ctx context.Context, chunks []types.StoredChunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunk/embedding count mismatch: %d chunks, %d embeddings", len(chunks), len(embeddings))
	}

	total := len(chunks)
	for i := 0; i < total; i += BATCH_SIZE {
		end := i + BATCH_SIZE
		if end > total {
			end = total
		}

		batcher := s.client.Batch().ObjectsBatcher()
		for j := i; j < end; j++ {
			properties := map[string]interface{}{
				"userId":       chunks[j].UserID,
				"courseId":     chunks[j].CourseID,
				"documentType": chunks[j].DocumentType,
				"fileName":     chunks[j].FileName,
				"chunkIndex":   chunks[j].Index,
				"content":      chunks[j].Text,
				"tokenCount":   chunks[j].TokenCount,
				"startChar":    chunks[j].Metadata.StartChar,
				"endChar":      chunks[j].Metadata.EndChar,
			}
			batcher = batcher.WithObjects(&models.Object{
				Class:      CHUNK_CLASS,
				Properties: properties,
				Vector:     embeddings[j],
			})
		}

		_, err := batcher.Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert batch %d-%d: %v", i, end, err)
		}

		log.Printf("Inserted batch %d-%d of %d chunks", i, end, total)
	}

	return nil
}

func (s *WeaviateStore) SearchByVector(ctx context.Context, vector []float32, userID, courseID string, topK int) ([]types.SearchResult, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vector)
	where := buildScopeFilter(userID, courseID, "")

	getBuilder := s.client.GraphQL().Get().
		WithClassName(CHUNK_CLASS).
		WithFields(chunkFields...).
		WithNearVector(nearVector).
		WithWhere(where)
	if topK > 0 {
		getBuilder = getBuilder.WithLimit(topK)
	}

	result, err := getBuilder.Do(ctx)
	if err != nil {
		return nil, err
	}
	if result.Errors != nil {
		return nil, fmt.Errorf("vector search failed: %v", result.Errors[0].Message)
	}

	return parseChunkResults(result.Data)
}

func (s *WeaviateStore) FetchChunkRange(ctx context.Context, userID, courseID, fileName string, fromIndex, toIndex int) ([]types.SearchResult, error) {
	if fromIndex < 0 {
		fromIndex = 0
	}
	where := filters.Where().WithOperator(filters.And).WithOperands([]*filters.WhereBuilder{
		buildScopeFilter(userID, courseID, fileName),
		filters.Where().WithPath([]string{"chunkIndex"}).
			WithOperator(filters.GreaterThanEqual).
			WithValueInt(int64(fromIndex)),
		filters.Where().WithPath([]string{"chunkIndex"}).
			WithOperator(filters.LessThanEqual).
			WithValueInt(int64(toIndex)),
	})

	result, err := s.client.GraphQL().Get().
		WithClassName(CHUNK_CLASS).
		WithFields(chunkFields...).
		WithWhere(where).
		WithSort(graphql.Sort{Path: []string{"chunkIndex"}, Order: graphql.Asc}).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if result.Errors != nil {
		return nil, fmt.Errorf("chunk range fetch failed: %v", result.Errors[0].Message)
	}

	return parseChunkResults(result.Data)
}

func (s *WeaviateStore) DeleteDocument(ctx context.Context, userID, courseID, fileName string) error {
	where := buildScopeFilter(userID, courseID, fileName)
	resp, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(CHUNK_CLASS).
		WithWhere(where).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete document chunks: %v", err)
	}
	if resp != nil && resp.Results != nil {
		log.Printf("Deleted %d chunks for %s/%s/%s", resp.Results.Successful, userID, courseID, fileName)
	}
	return nil
}

func (s *WeaviateStore) ListDocuments(ctx context.Context, userID, courseID string) ([]types.DocumentRef, error) {
	where := buildScopeFilter(userID, courseID, "")
	result, err := s.client.GraphQL().Get().
		WithClassName(CHUNK_CLASS).
		WithFields(
			graphql.Field{Name: "userId"},
			graphql.Field{Name: "courseId"},
			graphql.Field{Name: "documentType"},
			graphql.Field{Name: "fileName"},
		).
		WithWhere(where).
		WithLimit(listScanLimit).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if result.Errors != nil {
		return nil, fmt.Errorf("document list failed: %v", result.Errors[0].Message)
	}

	// Group chunk rows into document views client-side; weaviate has no
	// SQL-style GROUP BY over Get queries.
	counts := make(map[string]*types.DocumentRef)
	var order []string
	if get, ok := result.Data["Get"].(map[string]interface{}); ok {
		data, _ := get[CHUNK_CLASS].([]interface{})
		for _, item := range data {
			obj, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			ref := types.DocumentRef{
				UserID:       stringProp(obj, "userId"),
				CourseID:     stringProp(obj, "courseId"),
				DocumentType: stringProp(obj, "documentType"),
				FileName:     stringProp(obj, "fileName"),
			}
			key := ref.UserID + "/" + ref.CourseID + "/" + ref.FileName
			if existing, ok := counts[key]; ok {
				existing.ChunkCount++
				continue
			}
			ref.ChunkCount = 1
			counts[key] = &ref
			order = append(order, key)
		}
	}

	sort.Strings(order)
	docs := make([]types.DocumentRef, 0, len(order))
	for _, key := range order {
		docs = append(docs, *counts[key])
	}
	return docs, nil
}

// buildScopeFilter restricts a query to one user's chunks, optionally to a
// course and a single document.
func buildScopeFilter(userID, courseID, fileName string) *filters.WhereBuilder {
	whereFilter := filters.Where().WithPath([]string{"userId"}).
		WithOperator(filters.Equal).
		WithValueString(userID)

	var operands []*filters.WhereBuilder
	if courseID != "" {
		operands = append(operands, filters.Where().
			WithPath([]string{"courseId"}).
			WithOperator(filters.Equal).
			WithValueString(courseID))
	}
	if fileName != "" {
		operands = append(operands, filters.Where().
			WithPath([]string{"fileName"}).
			WithOperator(filters.Equal).
			WithValueString(fileName))
	}
	if len(operands) == 0 {
		return whereFilter
	}
	all := append([]*filters.WhereBuilder{whereFilter}, operands...)
	return filters.Where().WithOperator(filters.And).WithOperands(all)
}

func parseChunkResults(data map[string]models.JSONObject) ([]types.SearchResult, error) {
	var results []types.SearchResult
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return results, nil
	}
	rows, ok := get[CHUNK_CLASS].([]interface{})
	if !ok {
		return results, nil
	}
	for _, item := range rows {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		res := types.SearchResult{
			CourseID:     stringProp(obj, "courseId"),
			DocumentType: stringProp(obj, "documentType"),
			FileName:     stringProp(obj, "fileName"),
			// -1 marks a chunk with no recorded index; 0 would alias the
			// first chunk and get expanded as if it were ranked there.
			ChunkIndex: intPropOr(obj, "chunkIndex", -1),
			Content:      stringProp(obj, "content"),
			Metadata: types.ChunkMetadata{
				StartChar: intProp(obj, "startChar"),
				EndChar:   intProp(obj, "endChar"),
			},
		}
		if additional, ok := obj["_additional"].(map[string]interface{}); ok {
			if id, ok := additional["id"].(string); ok {
				res.ID = id
			}
			if distance, ok := additional["distance"].(float64); ok {
				// Cosine similarity is 1 - cosine distance.
				res.Similarity = 1 - distance
			}
		}
		results = append(results, res)
	}
	return results, nil
}

// Helper functions
func stringProp(obj map[string]interface{}, name string) string {
	if v, ok := obj[name].(string); ok {
		return v
	}
	return ""
}

func intProp(obj map[string]interface{}, name string) int {
	return intPropOr(obj, name, 0)
}

func intPropOr(obj map[string]interface{}, name string, fallback int) int {
	if v, ok := obj[name].(float64); ok {
		return int(v)
	}
	return fallback
}

package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate/entities/models"
)

func TestParseChunkResults(t *testing.T) {
	data := map[string]models.JSONObject{
		"Get": map[string]interface{}{
			CHUNK_CLASS: []interface{}{
				map[string]interface{}{
					"courseId":   "cs101",
					"fileName":   "notes.txt",
					"chunkIndex": float64(0),
					"content":    "first chunk",
					"startChar":  float64(0),
					"endChar":    float64(11),
					"_additional": map[string]interface{}{
						"id":       "aaaa-bbbb",
						"distance": 0.25,
					},
				},
				map[string]interface{}{
					"courseId": "cs101",
					"fileName": "legacy.txt",
					"content":  "indexed before chunkIndex existed",
					"_additional": map[string]interface{}{
						"id":       "cccc-dddd",
						"distance": 0.4,
					},
				},
			},
		},
	}

	results, err := parseChunkResults(data)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "aaaa-bbbb", results[0].ID)
	assert.Equal(t, 0, results[0].ChunkIndex)
	assert.InDelta(t, 0.75, results[0].Similarity, 1e-9)

	// A row without a chunkIndex must not alias the first chunk of its
	// document; -1 keeps it out of context expansion.
	assert.Equal(t, -1, results[1].ChunkIndex)
	assert.InDelta(t, 0.6, results[1].Similarity, 1e-9)
}

func TestParseChunkResultsEmptyPayload(t *testing.T) {
	results, err := parseChunkResults(map[string]models.JSONObject{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

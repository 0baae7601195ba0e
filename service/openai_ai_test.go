package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Only *jsonschema.Definition implements json.Marshaler; the response
// format must receive the schema by address.
var _ json.Marshaler = &variationSchema

func TestVariationSchemaMarshals(t *testing.T) {
	data, err := json.Marshal(&variationSchema)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "object", decoded["type"])

	props, ok := decoded["properties"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, props, "variations")
	assert.Contains(t, decoded["required"], "variations")
}

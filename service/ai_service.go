package service

import (
	"context"

	"github.com/quangdm/studyrag-be/types"
)

// AIService is the LLM provider behind answer synthesis and query
// expansion. Implementations return provider errors as-is; the fusion
// layer decides which of them are degradable.
type AIService interface {
	Chat(ctx context.Context, prompt string, messages []types.Message) (string, error)
	ChatStream(ctx context.Context, prompt string, messages []types.Message, handler types.StreamHandler) error
	// GenerateVariations asks the model for exactly two alternative
	// phrasings of the query as structured output.
	GenerateVariations(ctx context.Context, query string) ([]string, error)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// EmbeddingDimensions is the fixed dimensionality of every stored vector.
// The vector store schema and the similarity math both assume it.
const EmbeddingDimensions = 1536

// embeddingAPI is the slice of the OpenAI client the embedding service
// needs; tests substitute a fake.
type embeddingAPI interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// EmbeddingService turns text into fixed-length vectors via an
// OpenAI-compatible embeddings endpoint. Batches are embedded in a single
// request; rate-limit and shape-validation failures are retried with linear
// backoff, anything else aborts immediately.
type EmbeddingService struct {
	client     embeddingAPI
	model      openai.EmbeddingModel
	maxRetries int
	sleep      func(time.Duration)
}

func NewEmbeddingService(client *openai.Client, model string) *EmbeddingService {
	return &EmbeddingService{
		client:     client,
		model:      openai.EmbeddingModel(model),
		maxRetries: 2,
		sleep:      time.Sleep,
	}
}

// EmbedMany embeds the whole batch with one request per attempt. Every
// returned vector must have exactly EmbeddingDimensions entries and the
// vector count must match the input count; either mismatch fails the
// attempt rather than being truncated or padded.
func (s *EmbeddingService) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var lastErr error
	attempts := s.maxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input:      texts,
			Model:      s.model,
			Dimensions: EmbeddingDimensions,
		})
		if err != nil {
			if !isRateLimitError(err) {
				return nil, fmt.Errorf("embedding request failed: %w", err)
			}
			lastErr = err
		} else {
			vectors, verr := extractVectors(resp, len(texts))
			if verr == nil {
				return vectors, nil
			}
			lastErr = verr
		}

		if attempt < attempts {
			delay := time.Duration(attempt) * time.Second
			log.Printf("embedding attempt %d failed (%v), retrying in %s", attempt, lastErr, delay)
			s.sleep(delay)
		}
	}

	return nil, fmt.Errorf("embedding failed after %d attempts: %v", attempts, lastErr)
}

// EmbedOne embeds a single text.
func (s *EmbeddingService) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func extractVectors(resp openai.EmbeddingResponse, want int) ([][]float32, error) {
	if len(resp.Data) != want {
		return nil, fmt.Errorf("embedding count mismatch: got %d vectors for %d inputs", len(resp.Data), want)
	}
	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		if len(d.Embedding) != EmbeddingDimensions {
			return nil, fmt.Errorf("embedding %d has %d dimensions, want %d", i, len(d.Embedding), EmbeddingDimensions)
		}
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// isRateLimitError reports whether the provider signalled a transient
// rate-limit or quota condition. Timeouts count as retryable too.
func isRateLimitError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 429 {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "quota")
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/quangdm/studyrag-be/types"
)

var variationSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"variations": {
			Type:        jsonschema.Array,
			Description: "Alternative phrasings of the question",
			Items:       &jsonschema.Definition{Type: jsonschema.String},
		},
	},
	Required:             []string{"variations"},
	AdditionalProperties: false,
}

const variationInstruction = "You rewrite student questions to improve retrieval over course documents. " +
	"Generate exactly 2 alternative phrasings of the question: " +
	"one lexical rephrasing using different wording, " +
	"and one slightly broader or narrower reformulation."

type OpenAIService struct {
	client *openai.Client
	model  string
}

func NewOpenAIService(baseURL string, apiKey, model string) *OpenAIService {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL // Set this to a local LLM server URL if needed
	}
	client := openai.NewClientWithConfig(config)
	return &OpenAIService{
		client: client,
		model:  model,
	}
}

func (s *OpenAIService) Chat(ctx context.Context, prompt string, messages []types.Message) (string, error) {
	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Messages: s.buildMessages(prompt, messages),
			Model:    s.model,
		},
	)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response generated")
	}
	return resp.Choices[0].Message.Content, nil
}

func (s *OpenAIService) ChatStream(ctx context.Context, prompt string, messages []types.Message, handler types.StreamHandler) error {
	stream, err := s.client.CreateChatCompletionStream(
		ctx,
		openai.ChatCompletionRequest{
			Messages: s.buildMessages(prompt, messages),
			Model:    s.model,
		},
	)
	if err != nil {
		return err
	}
	defer stream.Close()
	for {
		resp, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if len(resp.Choices) > 0 {
			handler(resp.Choices[0].Delta.Content)
		}
	}
}

// GenerateVariations requests the two rephrasings as structured output so
// the response parses deterministically.
func (s *OpenAIService) GenerateVariations(ctx context.Context, query string) ([]string, error) {
	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: variationInstruction},
				{Role: openai.ChatMessageRoleUser, Content: query},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
				JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
					Name: "query_variations",
					// Definition marshals through a pointer receiver, so the
					// schema must be passed by address.
					Schema: &variationSchema,
					Strict: true,
				},
			},
		},
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no response generated")
	}

	var parsed struct {
		Variations []string `json:"variations"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return nil, fmt.Errorf("malformed variation response: %w", err)
	}
	return parsed.Variations, nil
}

func (s *OpenAIService) buildMessages(prompt string, messages []types.Message) []openai.ChatCompletionMessage {
	openaiMessages := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if prompt != "" {
		openaiMessages = append(openaiMessages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: prompt,
		})
	}
	for _, msg := range messages {
		role := msg.Role
		if role == "" {
			role = openai.ChatMessageRoleUser
		}
		openaiMessages = append(openaiMessages, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}
	return openaiMessages
}

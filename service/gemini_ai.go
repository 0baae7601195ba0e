package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/quangdm/studyrag-be/types"
)

// GeminiService is the alternative AIService implementation. Multiple API
// keys are rotated on provider failure to work around per-key quota
// limits.
type GeminiService struct {
	apiKeys    []string
	currentKey int
	modelName  string
	client     *genai.Client
	mu         sync.Mutex
}

func NewGeminiService(apiKeys []string, modelName string) (*GeminiService, error) {
	if len(apiKeys) == 0 {
		return nil, errors.New("no API keys provided")
	}

	service := &GeminiService{
		apiKeys:    apiKeys,
		currentKey: 0,
		modelName:  modelName,
	}

	if err := service.initClient(); err != nil {
		return nil, err
	}
	return service, nil
}

func (s *GeminiService) initClient() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(s.apiKeys[s.currentKey]))
	if err != nil {
		return err
	}
	s.client = client
	return nil
}

// generativeModel hands out a fresh model per request; GenerativeModel
// instances carry mutable per-call state and must not be shared between
// goroutines.
func (s *GeminiService) generativeModel() *genai.GenerativeModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client.GenerativeModel(s.modelName)
}

func (s *GeminiService) rotateAPIKey() error {
	s.mu.Lock()
	s.currentKey = (s.currentKey + 1) % len(s.apiKeys)
	if err := s.client.Close(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	return s.initClient()
}

func (s *GeminiService) Chat(ctx context.Context, prompt string, messages []types.Message) (string, error) {
	chat := s.startChat(prompt, messages)

	resp, err := chat.SendMessage(ctx, genai.Text(lastUserContent(messages)))
	if err != nil {
		// Try rotating API key if there's an error
		if err := s.rotateAPIKey(); err != nil {
			return "", err
		}
		chat = s.startChat(prompt, messages)
		resp, err = chat.SendMessage(ctx, genai.Text(lastUserContent(messages)))
		if err != nil {
			return "", err
		}
	}

	if len(resp.Candidates) == 0 {
		return "", errors.New("no response generated")
	}

	var content strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				content.WriteString(string(text))
			}
		}
	}
	return content.String(), nil
}

func (s *GeminiService) ChatStream(ctx context.Context, prompt string, messages []types.Message, handler types.StreamHandler) error {
	chat := s.startChat(prompt, messages)
	iter := chat.SendMessageStream(ctx, genai.Text(lastUserContent(messages)))

	for {
		resp, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return err
		}

		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if text, ok := part.(genai.Text); ok {
					handler(string(text))
				}
			}
		}
	}
	return nil
}

// GenerateVariations uses a response schema so the model returns parseable
// JSON rather than prose.
func (s *GeminiService) GenerateVariations(ctx context.Context, query string) ([]string, error) {
	model := s.generativeModel()
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"variations": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
		},
		Required: []string{"variations"},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(variationInstruction+"\n\nQuestion: "+query))
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("no response generated")
	}

	var raw strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			raw.WriteString(string(text))
		}
	}

	var parsed struct {
		Variations []string `json:"variations"`
	}
	if err := json.Unmarshal([]byte(raw.String()), &parsed); err != nil {
		return nil, fmt.Errorf("malformed variation response: %v", err)
	}
	return parsed.Variations, nil
}

func (s *GeminiService) startChat(prompt string, messages []types.Message) *genai.ChatSession {
	model := s.generativeModel()
	if prompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(prompt)},
		}
	}
	chat := model.StartChat()
	// Everything but the final user message becomes history.
	if len(messages) > 1 {
		history := make([]*genai.Content, 0, len(messages)-1)
		for _, msg := range messages[:len(messages)-1] {
			role := "user"
			if msg.Role == "assistant" {
				role = "model"
			}
			history = append(history, &genai.Content{
				Parts: []genai.Part{genai.Text(msg.Content)},
				Role:  role,
			})
		}
		chat.History = history
	}
	return chat
}

func lastUserContent(messages []types.Message) string {
	if len(messages) == 0 {
		return ""
	}
	return messages[len(messages)-1].Content
}

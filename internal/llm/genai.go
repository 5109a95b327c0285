package llm

import (
	"context"
	"errors"

	"google.golang.org/genai"
)

// GenAIProvider talks to Gemini through the official SDK.
type GenAIProvider struct {
	client *genai.Client
	model  string
}

func NewGenAIProvider(ctx context.Context, apiKey, model string) (*GenAIProvider, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GenAIProvider{client: client, model: model}, nil
}

func (p *GenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (p *GenAIProvider) Chat(ctx context.Context, history []Turn, message string, temperature float32, maxTokens int32) (string, error) {
	contents := make([]*genai.Content, 0, len(history))
	for _, t := range history {
		role := genai.RoleUser
		if t.Role == "model" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, genai.Role(role)))
	}
	chat, err := p.client.Chats.Create(ctx, p.model, &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(temperature),
		MaxOutputTokens: maxTokens,
	}, contents)
	if err != nil {
		return "", err
	}
	resp, err := chat.SendMessage(ctx, genai.Part{Text: message})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// UnconfiguredProvider fails every call. It lets the server start without an
// API key; LLM-backed routes then return a gateway error.
type UnconfiguredProvider struct{}

var errNoAPIKey = errors.New("GEMINI_API_KEY is not configured")

func (UnconfiguredProvider) Generate(context.Context, string) (string, error) {
	return "", errNoAPIKey
}

func (UnconfiguredProvider) Chat(context.Context, []Turn, string, float32, int32) (string, error) {
	return "", errNoAPIKey
}

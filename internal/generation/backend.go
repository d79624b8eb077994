package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/sashabaranov/go-openai"
)

// Backend is the hosted LLM the adapter drives
type Backend interface {
	Invoke(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// Provider names
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// BackendConfig selects and configures a Backend
type BackendConfig struct {
	Provider string
	APIKey   string
	Model    string
}

// NewBackend builds the backend named by cfg.Provider
func NewBackend(cfg BackendConfig) (Backend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm api key is required")
	}
	switch strings.ToLower(cfg.Provider) {
	case ProviderAnthropic, "":
		return NewAnthropicBackend(cfg.APIKey, cfg.Model), nil
	case ProviderOpenAI:
		return NewOpenAIBackend(cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}

// AnthropicBackend calls the Anthropic Messages API
type AnthropicBackend struct {
	client *anthropic.Client
	model  anthropic.Model
}

// NewAnthropicBackend creates a backend for the given model; empty model uses Claude Sonnet 4
func NewAnthropicBackend(apiKey, model string) *AnthropicBackend {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	m := anthropic.ModelClaude4Sonnet20250514
	if model != "" {
		m = anthropic.Model(model)
	}

	return &AnthropicBackend{
		client: &client,
		model:  m,
	}
}

// Invoke sends a single user message and concatenates the text blocks of the reply
func (b *AnthropicBackend) Invoke(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	response, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       b.model,
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to call Anthropic API: %w", err)
	}

	var sb strings.Builder
	for _, block := range response.Content {
		switch block := block.AsAny().(type) {
		case anthropic.TextBlock:
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// OpenAIBackend calls the OpenAI chat completions API
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

// NewOpenAIBackend creates a backend for the given model; empty model uses GPT-4o
func NewOpenAIBackend(apiKey, model string) *OpenAIBackend {
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAIBackend{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Invoke sends the prompt as a single user message
func (b *OpenAIBackend) Invoke(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You write true/false study statements and answer with JSON only.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   maxTokens,
		Temperature: float32(temperature),
	})
	if err != nil {
		return "", fmt.Errorf("failed to call OpenAI API: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

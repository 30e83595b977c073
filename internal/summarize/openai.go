package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultOpenAIEndpoint is the OpenAI API base URL. Any OpenAI-compatible
	// endpoint (DashScope, local gateways) works.
	DefaultOpenAIEndpoint = "https://api.openai.com/v1"

	DefaultOpenAIModel = "gpt-4o-mini"

	summarySystemPrompt = `You are a news editor. Summarize the text you are given.

Rules:
- Plain prose, no headings, no bullet points
- Neutral tone, keep names, numbers and dates
- Never add facts that are not in the text
- Respond with the summary only`
)

// OpenAIClient summarizes text with an OpenAI-compatible chat model.
type OpenAIClient struct {
	client   *openai.Client
	model    string
	maxInput int
}

// OpenAIConfig holds the configuration for the OpenAI client.
type OpenAIConfig struct {
	APIKey   string
	Endpoint string
	Model    string
	MaxInput int // characters sent per request, 0 for no cap
}

// NewOpenAIClient creates a new OpenAI-compatible summarizer.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultOpenAIEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = cfg.Endpoint

	return &OpenAIClient{
		client:   openai.NewClientWithConfig(config),
		model:    cfg.Model,
		maxInput: cfg.MaxInput,
	}
}

// Summarize asks the model for a summary of at most maxWords words.
func (c *OpenAIClient) Summarize(ctx context.Context, text string, maxWords int) (string, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarySystemPrompt},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Summarize in at most %d words:\n\n%s", maxWords, capRunes(text, c.maxInput)),
			},
		},
		Temperature: 0.2,
		// roughly four tokens per three words
		MaxTokens: maxWords*4/3 + 16,
	}

	log.Debug().
		Str("model", c.model).
		Int("max_words", maxWords).
		Msg("Sending summarization chat request")

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", &StatusError{Provider: "OpenAI", Status: apiErr.HTTPStatusCode, Body: apiErr.Message}
		}
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptySummary
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptySummary
	}
	return content, nil
}

package reference

import (
	"context"
	"errors"

	"nepsum/internal/config"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// GeminiBaseURL is Gemini's OpenAI-compatible endpoint.
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// NewGemini creates a provider backed by Google Gemini, reached through its
// OpenAI-compatible chat completions API.
func NewGemini(cfg config.ReferenceConfig) Provider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = GeminiBaseURL
	}
	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	)
	model := cfg.ModelName()
	maxTokens := int64(cfg.MaxTokens)

	return newGuarded(config.ProviderGemini, model, cfg.Timeout, func(ctx context.Context, prompt string) (string, error) {
		params := openai.ChatCompletionNewParams{
			Model: openai.ChatModel(model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
		}
		if maxTokens > 0 {
			params.MaxTokens = openai.Int(maxTokens)
		}

		resp, err := client.Chat.Completions.New(ctx, params)
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("chat completion choices are missing")
		}
		return resp.Choices[0].Message.Content, nil
	})
}

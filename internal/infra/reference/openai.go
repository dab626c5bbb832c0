package reference

import (
	"context"
	"errors"

	"nepsum/internal/config"

	openai "github.com/sashabaranov/go-openai"
)

// NewOpenAI creates a provider backed by OpenAI chat completions.
func NewOpenAI(cfg config.ReferenceConfig) Provider {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	client := openai.NewClientWithConfig(clientConfig)
	model := cfg.ModelName()

	return newGuarded(config.ProviderOpenAI, model, cfg.Timeout, func(ctx context.Context, prompt string) (string, error) {
		resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:     model,
			MaxTokens: cfg.MaxTokens,
			Messages: []openai.ChatCompletionMessage{{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			}},
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("openai api returned empty response")
		}
		return resp.Choices[0].Message.Content, nil
	})
}

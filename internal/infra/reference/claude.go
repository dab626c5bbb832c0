package reference

import (
	"context"
	"errors"
	"strings"

	"nepsum/internal/config"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// NewClaude creates a provider backed by Anthropic's Messages API.
func NewClaude(cfg config.ReferenceConfig) Provider {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)
	model := cfg.ModelName()
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	return newGuarded(config.ProviderClaude, model, cfg.Timeout, func(ctx context.Context, prompt string) (string, error) {
		message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(model),
			MaxTokens: maxTokens,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if err != nil {
			return "", err
		}
		if len(message.Content) == 0 {
			return "", errors.New("claude api returned empty response")
		}

		var b strings.Builder
		for _, block := range message.Content {
			if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
				b.WriteString(tb.Text)
			}
		}
		return b.String(), nil
	})
}

package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/bobmcallan/stock-predictor/internal/common"
	"github.com/bobmcallan/stock-predictor/internal/config"
)

// OpenAICompleter talks to any OpenAI-compatible chat completions endpoint.
type OpenAICompleter struct {
	chatModel *openai.ChatModel
	modelName string
	logger    *common.Logger
}

// NewOpenAICompleter creates an eino chat model for cfg.
func NewOpenAICompleter(ctx context.Context, cfg config.CompletionConfig, logger *common.Logger) (*OpenAICompleter, error) {
	maxTokens := cfg.MaxTokens
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:   cfg.BaseURL,
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		MaxTokens: &maxTokens,
		Timeout:   cfg.GetTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	return &OpenAICompleter{
		chatModel: chatModel,
		modelName: cfg.Model,
		logger:    logger,
	}, nil
}

// Name identifies the provider in logs.
func (c *OpenAICompleter) Name() string { return "openai" }

// Complete sends req as a system message followed by a user message.
func (c *OpenAICompleter) Complete(ctx context.Context, req Request) (string, error) {
	start := time.Now()

	msgs := []*schema.Message{
		schema.SystemMessage(req.System),
		schema.UserMessage(req.User),
	}

	var opts []model.Option
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}

	out, err := c.chatModel.Generate(ctx, msgs, opts...)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	text := ""
	if out != nil {
		text = out.Content
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyCompletion
	}

	c.logger.Debug().
		Str("model", c.modelName).
		Int("chars", len(text)).
		Dur("duration", time.Since(start)).
		Msg("completion received")

	return text, nil
}

package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/bobmcallan/stock-predictor/internal/common"
	"github.com/bobmcallan/stock-predictor/internal/config"
)

// GeminiCompleter calls the Gemini API through the genai SDK.
type GeminiCompleter struct {
	client    *genai.Client
	modelName string
	timeout   time.Duration
	logger    *common.Logger
}

// NewGeminiCompleter creates a genai client for cfg. An empty or OpenAI
// base URL leaves the SDK default in place.
func NewGeminiCompleter(ctx context.Context, cfg config.CompletionConfig, logger *common.Logger) (*GeminiCompleter, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" && !strings.Contains(cfg.BaseURL, "openai.com") {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiCompleter{
		client:    client,
		modelName: cfg.Model,
		timeout:   cfg.GetTimeout(),
		logger:    logger,
	}, nil
}

// Name identifies the provider in logs.
func (c *GeminiCompleter) Name() string { return "gemini" }

// Complete sends req.User as content with req.System as the system instruction.
func (c *GeminiCompleter) Complete(ctx context.Context, req Request) (string, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		},
	}
	if req.MaxTokens > 0 {
		genConfig.MaxOutputTokens = int32(req.MaxTokens)
	}

	result, err := c.client.Models.GenerateContent(ctx, c.modelName, genai.Text(req.User), genConfig)
	if err != nil {
		return "", fmt.Errorf("gemini generate content failed: %w", err)
	}

	text := result.Text()
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

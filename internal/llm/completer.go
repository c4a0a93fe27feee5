// Package llm sends a single system+user prompt to a chat-completion
// provider and returns the generated text.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/bobmcallan/stock-predictor/internal/common"
	"github.com/bobmcallan/stock-predictor/internal/config"
)

// ErrEmptyCompletion is returned when the provider answers without text.
var ErrEmptyCompletion = errors.New("completion contained no text")

// Request is one completion call.
type Request struct {
	System    string
	User      string
	MaxTokens int
}

// Completer performs a single, non-streaming completion.
type Completer interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// New builds the completer selected by cfg.Provider.
func New(ctx context.Context, cfg config.CompletionConfig, logger *common.Logger) (Completer, error) {
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAICompleter(ctx, cfg, logger)
	case "gemini":
		return NewGeminiCompleter(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown completion provider: %s", cfg.Provider)
	}
}

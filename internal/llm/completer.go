// Package llm rewrites deterministic release notes with a chat model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/human-glitch/github-releaser/internal/config"
)

var (
	// ErrEmptyCompletion is returned when the provider answers without any text.
	ErrEmptyCompletion = errors.New("llm returned an empty completion")
	// ErrUnknownProvider is returned by NewCompleter for providers other than openai and gemini.
	ErrUnknownProvider = errors.New("unknown llm provider")
)

// Completer sends a single user prompt and returns the model's reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Name() string
}

// NewCompleter builds the provider selected by cfg.Provider. Each call is
// bounded by cfg.Timeout when it is set.
func NewCompleter(ctx context.Context, cfg config.LLMConfig) (Completer, error) {
	var (
		c   Completer
		err error
	)
	switch cfg.Provider {
	case "openai", "":
		c, err = NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.Model, cfg.Temperature)
	case "gemini":
		c, err = NewGeminiClient(ctx, cfg.Gemini.APIKey, "", cfg.Model, cfg.Temperature)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Timeout > 0 {
		c = &timeoutCompleter{Completer: c, timeout: cfg.Timeout}
	}
	return c, nil
}

type timeoutCompleter struct {
	Completer
	timeout time.Duration
}

func (t *timeoutCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Completer.Complete(ctx, prompt)
}

package provider

import (
	"context"
	"errors"
	"fmt"

	"draftqa/config"
)

// ErrUnavailable is returned when the generative model collaborator is
// unreachable or times out. The orchestrator retries once, then surfaces it.
var ErrUnavailable = errors.New("generation unavailable")

// Provider is the interface the generative model collaborators must satisfy.
// Generate is synchronous and honours the context deadline.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// New creates an LLM provider from configuration.
func New(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		return newOpenAIClient(cfg), nil
	case "ollama":
		return newOllamaClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

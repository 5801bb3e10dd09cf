package models

import (
	"context"
	"fmt"
	"strings"
)

// NewProvider resolves a provider name to a concrete model client.
func NewProvider(ctx context.Context, provider, model string) (Model, error) {
	switch provider {
	case "openai":
		return NewOpenAILLM(model), nil
	case "gemini", "google":
		return NewGeminiLLM(ctx, model)
	case "ollama":
		return NewOllamaLLM(model)
	case "anthropic", "claude":
		return NewAnthropicLLM(model), nil
	case "dummy":
		return NewDummyLLM(""), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}

// ParseChain builds an ordered model list from a spec of the form
// "openai:gpt-4o-mini,anthropic:claude-3-5-haiku-latest,ollama:llama3.2".
func ParseChain(ctx context.Context, spec string) ([]Model, error) {
	var ms []Model
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		provider, model, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("bad chain entry %q, want provider:model", entry)
		}
		m, err := NewProvider(ctx, provider, model)
		if err != nil {
			return nil, err
		}
		ms = append(ms, m)
	}
	if len(ms) == 0 {
		return nil, fmt.Errorf("empty model chain %q", spec)
	}
	return ms, nil
}

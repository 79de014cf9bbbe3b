package proxy

import (
	"context"
	"net/http"
	"strings"
)

// Prefixes mark candidate models served by a provider other than OpenRouter.
const (
	GeminiPrefix = "gemini:"
	OllamaPrefix = "ollama:"
)

// Router dispatches a model identifier to the provider that serves it.
// Gemini and Ollama may be nil when they are not configured.
type Router struct {
	OpenRouter Completer
	Gemini     Completer
	Ollama     Completer
}

func (r *Router) Complete(ctx context.Context, model, prompt string) (string, error) {
	if name, ok := strings.CutPrefix(model, GeminiPrefix); ok {
		if r.Gemini == nil {
			return "", notConfigured(providerGemini)
		}
		return r.Gemini.Complete(ctx, name, prompt)
	}
	if name, ok := strings.CutPrefix(model, OllamaPrefix); ok {
		if r.Ollama == nil {
			return "", notConfigured(providerOllama)
		}
		return r.Ollama.Complete(ctx, name, prompt)
	}
	return r.OpenRouter.Complete(ctx, model, prompt)
}

// notConfigured reads as "unavailable" to the fallback loop, so the
// candidate is skipped without a retry.
func notConfigured(provider string) error {
	return &APIError{
		Provider:   provider,
		StatusCode: http.StatusNotFound,
		Message:    provider + " provider not configured",
	}
}

// ProviderOf names the provider that serves model.
func ProviderOf(model string) string {
	switch {
	case strings.HasPrefix(model, GeminiPrefix):
		return providerGemini
	case strings.HasPrefix(model, OllamaPrefix):
		return providerOllama
	}
	return providerOpenRouter
}

package proxy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const providerGemini = "gemini"

// GeminiOptions tunes a Gemini client. Zero values fall back to defaults;
// a nil Temperature selects the default.
type GeminiOptions struct {
	BaseURL     string
	MaxTokens   int
	Temperature *float64
}

// GeminiClient completes prompts against the Google Gemini API.
type GeminiClient struct {
	client      *genai.Client
	maxTokens   int32
	temperature float32
}

// NewGeminiClient creates a Gemini client with the given API key.
func NewGeminiClient(ctx context.Context, apiKey string, opts GeminiOptions) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiClient{
		client:      client,
		maxTokens:   int32(opts.MaxTokens),
		temperature: float32(temperatureOr(opts.Temperature)),
	}, nil
}

// Complete sends prompt to the named Gemini model and returns the reply text.
func (g *GeminiClient) Complete(ctx context.Context, model, prompt string) (string, error) {
	temp := g.temperature
	result, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		MaxOutputTokens: g.maxTokens,
		Temperature:     &temp,
	})
	if err != nil {
		return "", mapGeminiError(err)
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s %s: %w", providerGemini, model, ErrEmptyCompletion)
	}
	return text, nil
}

func mapGeminiError(err error) error {
	// The SDK has returned APIError both by value and by pointer across releases.
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch v := any(e).(type) {
		case genai.APIError:
			return &APIError{Provider: providerGemini, StatusCode: v.Code, Message: v.Message, Err: err}
		case *genai.APIError:
			return &APIError{Provider: providerGemini, StatusCode: v.Code, Message: v.Message, Err: err}
		}
	}
	return fmt.Errorf("%s request: %w", providerGemini, err)
}

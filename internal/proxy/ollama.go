package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const providerOllama = "ollama"

// OllamaOptions tunes an Ollama client. Zero values fall back to defaults;
// a nil Temperature selects the default.
type OllamaOptions struct {
	MaxTokens   int
	Temperature *float64
}

// OllamaClient completes prompts against a local Ollama instance, used as
// an offline last resort after the hosted providers.
type OllamaClient struct {
	baseURL     string
	httpClient  *http.Client
	maxTokens   int
	temperature float64
}

// NewOllamaClient creates a client targeting the given Ollama base URL.
func NewOllamaClient(baseURL string, opts OllamaOptions) *OllamaClient {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	return &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		// Local generation is slow; the caller's context bounds it.
		httpClient:  &http.Client{},
		maxTokens:   opts.MaxTokens,
		temperature: temperatureOr(opts.Temperature),
	}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format,omitempty"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Error   string        `json:"error,omitempty"`
}

// Complete sends prompt to model via POST /api/chat in JSON mode.
func (o *OllamaClient) Complete(ctx context.Context, model, prompt string) (string, error) {
	body, err := json.Marshal(ollamaChatRequest{
		Model:    model,
		Messages: []ollamaMessage{{Role: "user", Content: prompt}},
		Format:   "json",
		Options: map[string]any{
			"num_predict": o.maxTokens,
			"temperature": o.temperature,
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s chat request: %w", providerOllama, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", ollamaError(resp)
	}

	var result ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding %s chat response: %w", providerOllama, err)
	}
	if strings.TrimSpace(result.Message.Content) == "" {
		return "", fmt.Errorf("%s %s: %w", providerOllama, model, ErrEmptyCompletion)
	}
	return result.Message.Content, nil
}

type ollamaTags struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListModels returns the names of the models pulled into the local instance.
func (o *OllamaClient) ListModels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s model list: %w", providerOllama, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ollamaError(resp)
	}

	var tags ollamaTags
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decoding %s model list: %w", providerOllama, err)
	}
	names := make([]string, len(tags.Models))
	for i, m := range tags.Models {
		names[i] = m.Name
	}
	return names, nil
}

// ollamaError reads Ollama's {"error": "..."} body into an *APIError.
func ollamaError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	return &APIError{Provider: providerOllama, StatusCode: resp.StatusCode, Message: msg}
}

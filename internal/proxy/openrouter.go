package proxy

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultBaseURL     = "https://openrouter.ai/api/v1"
	defaultTimeout     = 60 * time.Second
	defaultMaxTokens   = 3000
	defaultTemperature = 0.5

	providerOpenRouter = "openrouter"
)

// ErrEmptyCompletion is returned when the upstream replies 200 without any content.
var ErrEmptyCompletion = errors.New("empty completion")

// Options tunes an OpenRouter client. Zero values fall back to defaults,
// except Temperature where nil selects the default and 0 is greedy decoding.
type Options struct {
	BaseURL     string
	Referer     string
	Title       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature *float64
}

// Client communicates with the OpenRouter API.
type Client struct {
	api         *openai.Client
	maxTokens   int
	temperature float32
}

// NewClient creates an OpenRouter client with the given API key.
func NewClient(apiKey string) *Client {
	return NewClientWithOptions(apiKey, Options{})
}

// NewClientWithBaseURL creates a client pointing at a custom base URL (for testing).
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	return NewClientWithOptions(apiKey, Options{BaseURL: baseURL})
}

// NewClientWithOptions creates an OpenRouter client with explicit options.
func NewClientWithOptions(apiKey string, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Referer == "" {
		opts.Referer = "http://localhost:3000"
	}
	if opts.Title == "" {
		opts.Title = "SkillBridge AI"
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	cfg.HTTPClient = &http.Client{
		Timeout: opts.Timeout,
		Transport: &headerTransport{
			base:    http.DefaultTransport,
			referer: opts.Referer,
			title:   opts.Title,
		},
	}

	return &Client{
		api:         openai.NewClientWithConfig(cfg),
		maxTokens:   opts.MaxTokens,
		temperature: openAITemperature(temperatureOr(opts.Temperature)),
	}
}

// temperatureOr returns *t, or defaultTemperature when t is nil or negative.
func temperatureOr(t *float64) float64 {
	if t == nil || *t < 0 {
		return defaultTemperature
	}
	return *t
}

// openAITemperature converts t for go-openai, which drops a zero temperature
// from the request body. The smallest positive float32 keeps it on the wire.
func openAITemperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

// Complete sends prompt as a single user message to model and returns the
// text of the first choice. It makes exactly one upstream call; retry and
// fallback decisions belong to the caller.
func (c *Client) Complete(ctx context.Context, model, prompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", mapOpenRouterError(err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%s %s: %w", providerOpenRouter, model, ErrEmptyCompletion)
	}
	return resp.Choices[0].Message.Content, nil
}

// ListModels returns the list of available models from OpenRouter.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	list, err := c.api.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("requesting models: %w", mapOpenRouterError(err))
	}

	models := make([]Model, 0, len(list.Models))
	for _, m := range list.Models {
		models = append(models, Model{
			ID:      m.ID,
			Object:  m.Object,
			Created: m.CreatedAt,
			OwnedBy: m.OwnedBy,
		})
	}
	return models, nil
}

func mapOpenRouterError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{
			Provider:   providerOpenRouter,
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
			Err:        err,
		}
	}

	// Non-JSON error bodies surface as RequestError.
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &APIError{
			Provider:   providerOpenRouter,
			StatusCode: reqErr.HTTPStatusCode,
			Message:    string(reqErr.Body),
			Err:        err,
		}
	}

	return fmt.Errorf("%s request: %w", providerOpenRouter, err)
}

// headerTransport adds the attribution headers OpenRouter uses for app rankings.
type headerTransport struct {
	base    http.RoundTripper
	referer string
	title   string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("HTTP-Referer", t.referer)
	req.Header.Set("X-Title", t.title)
	return t.base.RoundTrip(req)
}

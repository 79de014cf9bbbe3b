package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func completionHandler(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"id":     "gen-1",
			"object": "chat.completion",
			"model":  "test",
			"choices": []map[string]any{
				{"index": 0, "message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}
}

func TestComplete_ReturnsFirstChoice(t *testing.T) {
	srv := httptest.NewServer(completionHandler(`{"ok":true}`))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", srv.URL)
	text, err := c.Complete(context.Background(), "google/gemma-3-4b-it:free", "hi")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != `{"ok":true}` {
		t.Errorf("text = %q, want %q", text, `{"ok":true}`)
	}
}

func TestComplete_RequestShape(t *testing.T) {
	var got struct {
		Model       string  `json:"model"`
		MaxTokens   int     `json:"max_tokens"`
		Temperature float64 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	var auth, referer, title, path string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		referer = r.Header.Get("HTTP-Referer")
		title = r.Header.Get("X-Title")
		json.NewDecoder(r.Body).Decode(&got)
		completionHandler("{}")(w, r)
	}))
	defer srv.Close()

	c := NewClientWithOptions("test-key", Options{BaseURL: srv.URL, Referer: "http://example.test", Title: "Test App"})
	if _, err := c.Complete(context.Background(), "meta-llama/llama-3.2-3b-instruct:free", "build me a plan"); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if path != "/chat/completions" {
		t.Errorf("path = %q, want /chat/completions", path)
	}
	if auth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want %q", auth, "Bearer test-key")
	}
	if referer != "http://example.test" {
		t.Errorf("HTTP-Referer = %q", referer)
	}
	if title != "Test App" {
		t.Errorf("X-Title = %q", title)
	}
	if got.Model != "meta-llama/llama-3.2-3b-instruct:free" {
		t.Errorf("model = %q", got.Model)
	}
	if got.MaxTokens != 3000 {
		t.Errorf("max_tokens = %d, want 3000", got.MaxTokens)
	}
	if got.Temperature != 0.5 {
		t.Errorf("temperature = %v, want 0.5", got.Temperature)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" || got.Messages[0].Content != "build me a plan" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestComplete_Temperature(t *testing.T) {
	zero, warm := 0.0, 1.2
	cases := []struct {
		name string
		temp *float64
		want float64
	}{
		{"default", nil, 0.5},
		{"explicit", &warm, 1.2},
		{"zero", &zero, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var body map[string]any
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewDecoder(r.Body).Decode(&body)
				completionHandler("{}")(w, r)
			}))
			defer srv.Close()

			c := NewClientWithOptions("k", Options{BaseURL: srv.URL, Temperature: tc.temp})
			if _, err := c.Complete(context.Background(), "m", "p"); err != nil {
				t.Fatalf("Complete: %v", err)
			}
			got, ok := body["temperature"].(float64)
			if !ok {
				t.Fatalf("temperature missing from request: %v", body)
			}
			if math.Abs(got-tc.want) > 1e-6 {
				t.Errorf("temperature = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestComplete_SingleCallOnRateLimit(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"Rate limit exceeded: free-models-per-min","code":429}}`)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", srv.URL)
	_, err := c.Complete(context.Background(), "test", "hi")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v (%T), want *APIError", err, err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d, want 429", apiErr.StatusCode)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestComplete_JSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"message":"No endpoints found for google/gemma-2-9b-it:free.","code":404}}`)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", srv.URL)
	_, err := c.Complete(context.Background(), "google/gemma-2-9b-it:free", "hi")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", apiErr.StatusCode)
	}
	if apiErr.Message != "No endpoints found for google/gemma-2-9b-it:free." {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if apiErr.Provider != "openrouter" {
		t.Errorf("Provider = %q", apiErr.Provider)
	}
}

func TestComplete_PlainErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream unavailable")
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", srv.URL)
	_, err := c.Complete(context.Background(), "test", "hi")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want 502", apiErr.StatusCode)
	}
	if apiErr.Message != "upstream unavailable" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"gen-1","choices":[]}`)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", srv.URL)
	_, err := c.Complete(context.Background(), "test", "hi")
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("error = %v, want ErrEmptyCompletion", err)
	}
}

func TestComplete_ContextCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClientWithBaseURL("test-key", srv.URL)
	_, err := c.Complete(ctx, "test", "hi")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"data":[
			{"id":"google/gemma-3-4b-it:free","object":"model"},
			{"id":"openai/gpt-4o","object":"model"},
			{"id":"meta-llama/llama-3.2-3b-instruct:free","object":"model"}
		]}`)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", srv.URL)
	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 3 {
		t.Fatalf("got %d models, want 3", len(models))
	}

	free := FreeModels(models)
	want := []string{"google/gemma-3-4b-it:free", "meta-llama/llama-3.2-3b-instruct:free"}
	if len(free) != len(want) {
		t.Fatalf("got %d free models, want %d", len(free), len(want))
	}
	for i, w := range want {
		if free[i].ID != w {
			t.Errorf("free[%d].ID = %q, want %q", i, free[i].ID, w)
		}
	}
}

func TestListModels_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", srv.URL)
	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 0 {
		t.Errorf("got %d models, want 0", len(models))
	}
}

package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaComplete(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q, want /api/chat", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Write([]byte(`{"message":{"role":"assistant","content":"{\"ok\":true}"},"done":true}`))
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL+"/", OllamaOptions{MaxTokens: 512})
	text, err := c.Complete(context.Background(), "llama3.2", "hello")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != `{"ok":true}` {
		t.Errorf("text = %q", text)
	}

	if got.Model != "llama3.2" || got.Stream || got.Format != "json" {
		t.Errorf("request = %+v", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" || got.Messages[0].Content != "hello" {
		t.Errorf("messages = %+v", got.Messages)
	}
	if got.Options["num_predict"] != float64(512) {
		t.Errorf("num_predict = %v, want 512", got.Options["num_predict"])
	}
	if got.Options["temperature"] != defaultTemperature {
		t.Errorf("temperature = %v, want default %v", got.Options["temperature"], defaultTemperature)
	}
}

func TestOllamaComplete_ZeroTemperature(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"message":{"role":"assistant","content":"{}"},"done":true}`))
	}))
	defer srv.Close()

	zero := 0.0
	if _, err := NewOllamaClient(srv.URL, OllamaOptions{Temperature: &zero}).Complete(context.Background(), "llama3.2", "p"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if v, ok := got.Options["temperature"]; !ok || v != float64(0) {
		t.Errorf("temperature = %v (present %v), want 0", v, ok)
	}
}

func TestOllamaComplete_ModelMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model \"llama3.2\" not found, try pulling it first"}`))
	}))
	defer srv.Close()

	_, err := NewOllamaClient(srv.URL, OllamaOptions{}).Complete(context.Background(), "llama3.2", "p")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Provider != "ollama" {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if apiErr.Message != `model "llama3.2" not found, try pulling it first` {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestOllamaComplete_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":{"role":"assistant","content":"  "}}`))
	}))
	defer srv.Close()

	_, err := NewOllamaClient(srv.URL, OllamaOptions{}).Complete(context.Background(), "m", "p")
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Errorf("error = %v, want ErrEmptyCompletion", err)
	}
}

func TestOllamaComplete_Down(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := NewOllamaClient(srv.URL, OllamaOptions{}).Complete(context.Background(), "m", "p")
	if err == nil {
		t.Fatal("expected error for unreachable server")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Errorf("transport error mapped to *APIError: %v", err)
	}
}

func TestOllamaListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("path = %q, want /api/tags", r.URL.Path)
		}
		w.Write([]byte(`{"models":[{"name":"llama3.2:latest"},{"name":"qwen2.5:7b"}]}`))
	}))
	defer srv.Close()

	names, err := NewOllamaClient(srv.URL, OllamaOptions{}).ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(names) != 2 || names[0] != "llama3.2:latest" || names[1] != "qwen2.5:7b" {
		t.Errorf("names = %v", names)
	}
}

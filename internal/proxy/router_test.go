package proxy

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"google.golang.org/genai"
)

type recordingCompleter struct {
	name  string
	model string
}

func (r *recordingCompleter) Complete(_ context.Context, model, _ string) (string, error) {
	r.model = model
	return r.name, nil
}

func TestRouter_Dispatch(t *testing.T) {
	or := &recordingCompleter{name: "openrouter"}
	gm := &recordingCompleter{name: "gemini"}
	r := &Router{OpenRouter: or, Gemini: gm}

	got, err := r.Complete(context.Background(), "google/gemma-3-4b-it:free", "p")
	if err != nil || got != "openrouter" {
		t.Fatalf("Complete = %q, %v; want openrouter", got, err)
	}
	if or.model != "google/gemma-3-4b-it:free" {
		t.Errorf("openrouter model = %q", or.model)
	}

	got, err = r.Complete(context.Background(), "gemini:gemini-2.0-flash", "p")
	if err != nil || got != "gemini" {
		t.Fatalf("Complete = %q, %v; want gemini", got, err)
	}
	if gm.model != "gemini-2.0-flash" {
		t.Errorf("gemini model = %q, want prefix stripped", gm.model)
	}
}

func TestRouter_DispatchOllama(t *testing.T) {
	ol := &recordingCompleter{name: "ollama"}
	r := &Router{OpenRouter: &recordingCompleter{name: "openrouter"}, Ollama: ol}

	got, err := r.Complete(context.Background(), "ollama:llama3.2", "p")
	if err != nil || got != "ollama" {
		t.Fatalf("Complete = %q, %v; want ollama", got, err)
	}
	if ol.model != "llama3.2" {
		t.Errorf("ollama model = %q, want prefix stripped", ol.model)
	}

	_, err = (&Router{OpenRouter: ol}).Complete(context.Background(), "ollama:llama3.2", "p")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("unconfigured ollama: error = %v, want 404 *APIError", err)
	}
}

func TestRouter_GeminiNotConfigured(t *testing.T) {
	r := &Router{OpenRouter: &recordingCompleter{}}

	_, err := r.Complete(context.Background(), "gemini:gemini-2.0-flash", "p")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", apiErr.StatusCode)
	}
}

func TestProviderOf(t *testing.T) {
	if got := ProviderOf("gemini:gemini-2.0-flash"); got != "gemini" {
		t.Errorf("ProviderOf(gemini:...) = %q", got)
	}
	if got := ProviderOf("ollama:llama3.2"); got != "ollama" {
		t.Errorf("ProviderOf(ollama:...) = %q", got)
	}
	if got := ProviderOf("google/gemma-3-12b-it:free"); got != "openrouter" {
		t.Errorf("ProviderOf(google/...) = %q", got)
	}
}

func TestMapGeminiError(t *testing.T) {
	err := mapGeminiError(&genai.APIError{Code: http.StatusTooManyRequests, Message: "quota exceeded"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests || apiErr.Provider != "gemini" {
		t.Errorf("apiErr = %+v", apiErr)
	}

	plain := mapGeminiError(errors.New("dial tcp: connection refused"))
	if errors.As(plain, &apiErr) {
		t.Errorf("transport error mapped to *APIError: %v", plain)
	}
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	if _, err := NewGeminiClient(context.Background(), "", GeminiOptions{}); err == nil {
		t.Fatal("expected error for empty API key")
	}
}

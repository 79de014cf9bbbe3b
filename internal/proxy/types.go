package proxy

import (
	"context"
	"fmt"
	"strings"
)

// Completer turns a single user prompt into the model's text reply.
type Completer interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// APIError is the normalized form of a non-2xx upstream reply.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		return fmt.Sprintf("%s: upstream status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: upstream status %d: %s", e.Provider, e.StatusCode, msg)
}

func (e *APIError) Unwrap() error { return e.Err }

// Model represents a model entry returned by the /models endpoint.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created,omitempty"`
	OwnedBy string `json:"owned_by,omitempty"`
}

// FreeModels keeps the models whose identifier carries the ":free" tier suffix.
func FreeModels(models []Model) []Model {
	out := make([]Model, 0, len(models))
	for _, m := range models {
		if strings.HasSuffix(m.ID, ":free") {
			out = append(out, m)
		}
	}
	return out
}

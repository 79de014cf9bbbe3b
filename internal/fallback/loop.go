// Package fallback walks a ranked list of candidate models until one of
// them returns a completion.
package fallback

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kalambet/skillbridge/internal/proxy"
)

const (
	// DefaultRateLimitDelay is how long to wait after a 429 before the single retry.
	DefaultRateLimitDelay = 25 * time.Second

	// attemptsPerModel is one call plus one retry after a rate limit.
	attemptsPerModel = 2
)

// Attempt records one upstream call made by the loop.
type Attempt struct {
	Model      string  `json:"model"`
	Attempt    int     `json:"attempt"`
	Outcome    Outcome `json:"outcome"`
	Status     int     `json:"status,omitempty"`
	Error      string  `json:"error,omitempty"`
	DurationMs int64   `json:"duration_ms"`
}

// Result is a successful completion and the attempts that led to it.
type Result struct {
	Text     string
	Model    string
	Attempts []Attempt
}

// Config configures a Loop.
type Config struct {
	// Models is the ranked candidate list, tried in order.
	Models []string
	// RateLimitDelay defaults to DefaultRateLimitDelay when zero.
	RateLimitDelay time.Duration
	Logger         *slog.Logger
}

// Loop tries candidate models in priority order.
type Loop struct {
	completer      proxy.Completer
	models         []string
	rateLimitDelay time.Duration
	logger         *slog.Logger
}

// New creates a Loop over the given completer.
func New(c proxy.Completer, cfg Config) *Loop {
	delay := cfg.RateLimitDelay
	if delay <= 0 {
		delay = DefaultRateLimitDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	models := make([]string, len(cfg.Models))
	copy(models, cfg.Models)

	return &Loop{
		completer:      c,
		models:         models,
		rateLimitDelay: delay,
		logger:         logger,
	}
}

// Models returns the candidate list in priority order.
func (l *Loop) Models() []string {
	out := make([]string, len(l.models))
	copy(out, l.models)
	return out
}

// Run sends prompt to each candidate in turn. An unavailable model is
// abandoned after one call, a rate-limited model gets exactly one retry
// after the fixed delay, and any other failure advances immediately.
// When nothing succeeds the returned error is an *ExhaustedError and the
// Result is empty.
func (l *Loop) Run(ctx context.Context, prompt string) (Result, error) {
	var (
		attempts   []Attempt
		credential error
		blocked    = make(map[string]bool)
	)

	for _, model := range l.models {
		provider := proxy.ProviderOf(model)
		if blocked[provider] {
			attempts = append(attempts, Attempt{Model: model, Outcome: OutcomeSkipped})
			l.logger.Debug("skipping model, provider rejected credentials", "model", model, "provider", provider)
			continue
		}

		l.logger.Info("trying model", "model", model)

	next:
		for n := 1; n <= attemptsPerModel; n++ {
			start := time.Now()
			text, err := l.completer.Complete(ctx, model, prompt)
			rec := Attempt{
				Model:      model,
				Attempt:    n,
				DurationMs: time.Since(start).Milliseconds(),
			}

			if err == nil {
				rec.Outcome = OutcomeSuccess
				attempts = append(attempts, rec)
				l.logger.Info("model responded", "model", model, "attempt", n, "duration_ms", rec.DurationMs)
				return Result{Text: text, Model: model, Attempts: attempts}, nil
			}

			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, fmt.Errorf("fallback interrupted at %s: %w", model, ctxErr)
			}

			rec.Outcome = Classify(err)
			rec.Status = statusOf(err)
			rec.Error = err.Error()
			attempts = append(attempts, rec)
			l.logger.Warn("model attempt failed",
				"model", model,
				"attempt", n,
				"outcome", rec.Outcome,
				"status", rec.Status,
				"error", err,
			)

			switch rec.Outcome {
			case OutcomeRateLimited:
				if n < attemptsPerModel {
					l.logger.Info("rate limited, waiting before retry", "model", model, "delay", l.rateLimitDelay)
					if err := wait(ctx, l.rateLimitDelay); err != nil {
						return Result{}, fmt.Errorf("fallback interrupted at %s: %w", model, err)
					}
					continue
				}
				l.logger.Warn("rate limit persists, trying next model", "model", model)
			case OutcomeAuth:
				blocked[provider] = true
				if credential == nil {
					credential = ErrUpstreamAuth
				}
			case OutcomeBilling:
				blocked[provider] = true
				if credential == nil {
					credential = ErrUpstreamBilling
				}
			}
			break next
		}
	}

	return Result{}, &ExhaustedError{Attempts: attempts, Credential: credential}
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/kalambet/skillbridge/internal/advisor"
	"github.com/kalambet/skillbridge/internal/api"
	"github.com/kalambet/skillbridge/internal/config"
	"github.com/kalambet/skillbridge/internal/fallback"
	"github.com/kalambet/skillbridge/internal/proxy"
	"github.com/kalambet/skillbridge/internal/storage"
)

// app is the assembled analysis pipeline shared by serve, mcp and analyze.
type app struct {
	advisor *advisor.Service
	// history is nil when storage.history_enabled is off.
	history api.History
	models  []string
	store   *storage.Store
}

func newLogger(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func newOpenRouterClient(cfg config.Config) *proxy.Client {
	return proxy.NewClientWithOptions(cfg.OpenRouter.APIKey, proxy.Options{
		BaseURL:     cfg.OpenRouter.BaseURL,
		Referer:     cfg.OpenRouter.Referer,
		Title:       cfg.OpenRouter.Title,
		MaxTokens:   cfg.Completion.MaxTokens,
		Temperature: &cfg.Completion.Temperature,
	})
}

func newOllamaClient(cfg config.Config) *proxy.OllamaClient {
	return proxy.NewOllamaClient(cfg.Ollama.BaseURL, proxy.OllamaOptions{
		MaxTokens:   cfg.Completion.MaxTokens,
		Temperature: &cfg.Completion.Temperature,
	})
}

func buildApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	router := &proxy.Router{OpenRouter: newOpenRouterClient(cfg)}
	if cfg.Gemini.APIKey != "" {
		gm, err := proxy.NewGeminiClient(ctx, cfg.Gemini.APIKey, proxy.GeminiOptions{
			MaxTokens:   cfg.Completion.MaxTokens,
			Temperature: &cfg.Completion.Temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("creating gemini client: %w", err)
		}
		router.Gemini = gm
	}

	if cfg.Ollama.BaseURL != "" {
		router.Ollama = newOllamaClient(cfg)
	}

	models := cfg.CandidateModels()
	loop := fallback.New(router, fallback.Config{
		Models:         models,
		RateLimitDelay: cfg.Fallback.RateLimitDelay,
		Logger:         logger,
	})

	a := &app{models: models}

	var recorder advisor.Recorder
	if cfg.Storage.HistoryEnabled {
		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening storage: %w", err)
		}
		a.store = store
		a.history = store
		recorder = store
	}

	a.advisor = advisor.New(loop, recorder, logger)
	return a, nil
}

func (a *app) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

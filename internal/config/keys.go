package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
	kDuration
	kList
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	aliases []string // legacy env var names consulted when env is unset
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.host", typ: kString, env: "SKILLBRIDGE_SERVER_HOST",
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, env: "SKILLBRIDGE_SERVER_PORT", aliases: []string{"PORT"},
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.request_timeout", typ: kDuration, env: "SKILLBRIDGE_SERVER_REQUEST_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Server.RequestTimeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Server.RequestTimeout },
	},
	{
		key: "openrouter.api_key", typ: kString, env: "SKILLBRIDGE_OPENROUTER_API_KEY", aliases: []string{"OPENROUTER_API_KEY"},
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.OpenRouter.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenRouter.APIKey },
	},
	{
		key: "openrouter.base_url", typ: kString, env: "SKILLBRIDGE_OPENROUTER_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.OpenRouter.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenRouter.BaseURL },
	},
	{
		key: "openrouter.referer", typ: kString, env: "SKILLBRIDGE_OPENROUTER_REFERER",
		apply:   func(cfg *Config, v any) { cfg.OpenRouter.Referer = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenRouter.Referer },
	},
	{
		key: "openrouter.title", typ: kString, env: "SKILLBRIDGE_OPENROUTER_TITLE",
		apply:   func(cfg *Config, v any) { cfg.OpenRouter.Title = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenRouter.Title },
	},
	{
		key: "models.candidates", typ: kList, env: "SKILLBRIDGE_MODELS_CANDIDATES",
		apply:   func(cfg *Config, v any) { cfg.Models.Candidates = v.([]string) },
		extract: func(cfg Config) any { return strings.Join(cfg.Models.Candidates, ",") },
	},
	{
		key: "gemini.api_key", typ: kString, env: "SKILLBRIDGE_GEMINI_API_KEY", aliases: []string{"GEMINI_API_KEY"},
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Gemini.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.APIKey },
	},
	{
		key: "gemini.model", typ: kString, env: "SKILLBRIDGE_GEMINI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Gemini.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.Model },
	},
	{
		key: "ollama.base_url", typ: kString, env: "SKILLBRIDGE_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "ollama.model", typ: kString, env: "SKILLBRIDGE_OLLAMA_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.Model },
	},
	{
		key: "fallback.rate_limit_delay", typ: kDuration, env: "SKILLBRIDGE_FALLBACK_RATE_LIMIT_DELAY",
		apply:   func(cfg *Config, v any) { cfg.Fallback.RateLimitDelay = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Fallback.RateLimitDelay },
	},
	{
		key: "completion.max_tokens", typ: kInt, env: "SKILLBRIDGE_COMPLETION_MAX_TOKENS",
		apply:   func(cfg *Config, v any) { cfg.Completion.MaxTokens = v.(int) },
		extract: func(cfg Config) any { return cfg.Completion.MaxTokens },
	},
	{
		key: "completion.temperature", typ: kFloat, env: "SKILLBRIDGE_COMPLETION_TEMPERATURE",
		apply:   func(cfg *Config, v any) { cfg.Completion.Temperature = v.(float64) },
		extract: func(cfg Config) any { return cfg.Completion.Temperature },
	},
	{
		key: "storage.data_dir", typ: kString, env: "SKILLBRIDGE_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.history_enabled", typ: kBool, env: "SKILLBRIDGE_STORAGE_HISTORY_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.Storage.HistoryEnabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.Storage.HistoryEnabled },
	},
	{
		key: "log.level", typ: kString, env: "SKILLBRIDGE_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

// parse converts raw text to the Go type for s.
func (s keySpec) parse(raw string) (any, error) {
	switch s.typ {
	case kString:
		return raw, nil
	case kInt:
		return strconv.Atoi(raw)
	case kBool:
		return strconv.ParseBool(raw)
	case kFloat:
		return strconv.ParseFloat(raw, 64)
	case kDuration:
		return time.ParseDuration(raw)
	case kList:
		var out []string
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("empty list")
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown key type %d", s.typ)
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		if s.typ == kInt {
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
			continue
		}

		raw, ok, err := b.GetString(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok || (raw == "" && s.typ != kString) {
			continue
		}
		v, err := s.parse(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse config key %s=%q: %v. Using default value.\n", s.key, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		name, raw := lookupEnv(s)
		if raw == "" {
			continue
		}
		v, err := s.parse(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse env var %s=%q: %v. Using default value.\n", name, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
}

// lookupEnv returns the first non-empty variable among s.env and its aliases.
func lookupEnv(s keySpec) (string, string) {
	for _, name := range append([]string{s.env}, s.aliases...) {
		if name == "" {
			continue
		}
		if v := os.Getenv(name); v != "" {
			return name, v
		}
	}
	return "", ""
}

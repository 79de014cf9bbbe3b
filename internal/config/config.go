package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingAPIKey is returned by Load when no OpenRouter key is configured.
// The accompanying Config is still fully populated.
var ErrMissingAPIKey = errors.New("missing required config: OpenRouter API key")

// DefaultCandidates are the free OpenRouter models tried in order.
var DefaultCandidates = []string{
	"google/gemma-3-4b-it:free",
	"meta-llama/llama-3.2-3b-instruct:free",
	"google/gemma-3-12b-it:free",
	"google/gemma-2-9b-it:free",
}

type Config struct {
	Server     ServerConfig
	OpenRouter OpenRouterConfig
	Models     ModelsConfig
	Gemini     GeminiConfig
	Ollama     OllamaConfig
	Fallback   FallbackConfig
	Completion CompletionConfig
	Storage    StorageConfig
	Log        LogConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
}

type OpenRouterConfig struct {
	APIKey  string
	BaseURL string
	Referer string
	Title   string
}

type ModelsConfig struct {
	Candidates []string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

// OllamaConfig enables a local model as the final candidate. An empty
// BaseURL disables it.
type OllamaConfig struct {
	BaseURL string
	Model   string
}

type FallbackConfig struct {
	RateLimitDelay time.Duration
}

type CompletionConfig struct {
	MaxTokens   int
	Temperature float64
}

type StorageConfig struct {
	DataDir        string
	HistoryEnabled bool
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:           "",
			Port:           3000,
			RequestTimeout: 5 * time.Minute,
		},
		OpenRouter: OpenRouterConfig{
			BaseURL: "https://openrouter.ai/api/v1",
			Referer: "http://localhost:3000",
			Title:   "SkillBridge AI",
		},
		Models: ModelsConfig{
			Candidates: append([]string(nil), DefaultCandidates...),
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.0-flash",
		},
		Ollama: OllamaConfig{
			Model: "llama3.2",
		},
		Fallback: FallbackConfig{
			RateLimitDelay: 25 * time.Second,
		},
		Completion: CompletionConfig{
			MaxTokens:   3000,
			Temperature: 0.5,
		},
		Storage: StorageConfig{
			DataDir:        defaultDataDir(),
			HistoryEnabled: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration in increasing priority: built-in defaults, the
// JSON file at $XDG_CONFIG_HOME/skillbridge/config.json, a .env file in the
// working directory, and SKILLBRIDGE_* environment variables. The .env file
// never overrides variables already set in the environment.
//
// A missing OpenRouter key yields ErrMissingAPIKey together with the
// otherwise complete Config, so commands that never call upstream can
// proceed.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "[WARN] could not read .env file: %v\n", err)
	}
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	if cfg.OpenRouter.APIKey == "" {
		return cfg, fmt.Errorf("%w. Set it via environment variable SKILLBRIDGE_OPENROUTER_API_KEY "+
			"or OPENROUTER_API_KEY (a .env file works too)", ErrMissingAPIKey)
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port %d out of range", c.Server.Port)
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("invalid config: server.request_timeout must be positive")
	}
	if len(c.Models.Candidates) == 0 {
		return fmt.Errorf("invalid config: models.candidates must list at least one model")
	}
	if c.Fallback.RateLimitDelay < 0 {
		return fmt.Errorf("invalid config: fallback.rate_limit_delay must not be negative")
	}
	if c.Completion.MaxTokens <= 0 {
		return fmt.Errorf("invalid config: completion.max_tokens must be positive")
	}
	if c.Completion.Temperature < 0 || c.Completion.Temperature > 2 {
		return fmt.Errorf("invalid config: completion.temperature %v outside [0, 2]", c.Completion.Temperature)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid config: log.level %q (want debug, info, warn or error)", c.Log.Level)
	}
	return nil
}

// CandidateModels returns the fallback order. A configured Gemini model and
// then a configured Ollama model are appended as last resorts unless the
// list already names a candidate of that provider.
func (c Config) CandidateModels() []string {
	out := append([]string(nil), c.Models.Candidates...)
	if c.Gemini.APIKey != "" && c.Gemini.Model != "" && !hasPrefix(out, "gemini:") {
		out = append(out, "gemini:"+c.Gemini.Model)
	}
	if c.Ollama.BaseURL != "" && c.Ollama.Model != "" && !hasPrefix(out, "ollama:") {
		out = append(out, "ollama:"+c.Ollama.Model)
	}
	return out
}

func hasPrefix(models []string, prefix string) bool {
	for _, m := range models {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return false
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

package generator

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables read by DetectProvider and NewFromEnv
const (
	EnvProvider        = "JOTDOWN_GENERATION_PROVIDER"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvOllamaHost      = "OLLAMA_HOST"
	EnvOllamaModel     = "OLLAMA_CHAT_MODEL"
)

// Config holds generator configuration
type Config struct {
	Provider string
	APIKey   string // anthropic
	Host     string // ollama
	Model    string
}

// New creates a generator with explicit configuration
func New(cfg Config) (Generator, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderAnthropic:
		return NewAnthropicProvider(cfg.APIKey, cfg.Model)
	case ProviderOllama:
		return NewOllamaProvider(cfg.Host, cfg.Model), nil
	case ProviderLocal, "":
		return NewLocalProvider(), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupported, cfg.Provider)
	}
}

// NewFromEnv creates a generator from environment variables
func NewFromEnv() (Generator, error) {
	cfg := Config{Provider: DetectProvider()}
	switch cfg.Provider {
	case ProviderAnthropic:
		cfg.APIKey = os.Getenv(EnvAnthropicAPIKey)
	case ProviderOllama:
		cfg.Host = os.Getenv(EnvOllamaHost)
		cfg.Model = os.Getenv(EnvOllamaModel)
	}
	return New(cfg)
}

// DetectProvider returns the provider selected by the environment.
// Priority: JOTDOWN_GENERATION_PROVIDER, then ANTHROPIC_API_KEY, then OLLAMA_HOST, then local.
func DetectProvider() string {
	if provider := os.Getenv(EnvProvider); provider != "" {
		return strings.ToLower(provider)
	}
	if os.Getenv(EnvAnthropicAPIKey) != "" {
		return ProviderAnthropic
	}
	if os.Getenv(EnvOllamaHost) != "" {
		return ProviderOllama
	}
	return ProviderLocal
}

package embedder

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Environment variables read by NewFromEnv and DetectProvider
const (
	EnvProvider       = "JOTDOWN_EMBEDDING_PROVIDER"
	EnvOpenAIAPIKey   = "OPENAI_API_KEY"
	EnvJinaAPIKey     = "JINA_API_KEY"
	EnvVoyageAPIKey   = "VOYAGE_API_KEY"
	EnvOllamaHost     = "OLLAMA_HOST"
	EnvOllamaModel    = "OLLAMA_EMBED_MODEL"
	EnvEmbedCacheSize = "JOTDOWN_EMBED_CACHE_SIZE"
)

// Config holds embedder configuration
type Config struct {
	Provider  string
	APIKey    string // openai, jina, voyage
	Host      string // ollama
	Model     string // ollama
	Dimension int    // ollama; models other than nomic-embed-text need this
	CacheSize int    // <= 0 disables caching

	// DisableBreaker skips the circuit breaker around remote providers
	DisableBreaker bool
	Breaker        BreakerConfig
	Logger         zerolog.Logger
}

// New creates an embedder with explicit configuration.
// Remote providers are wrapped in a circuit breaker unless DisableBreaker is set.
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	var (
		e   Embedder
		err error
	)
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		e, err = NewOpenAIProvider(cfg.APIKey, cache)
	case ProviderJina:
		e, err = NewJinaProvider(cfg.APIKey, cache)
	case ProviderVoyage:
		e, err = NewVoyageProvider(cfg.APIKey, cache)
	case ProviderOllama:
		e, err = NewOllamaProvider(cfg.Host, cfg.Model, cfg.Dimension, cache)
	case ProviderLocal, "":
		return NewLocalProvider(cache)
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedProvider, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.DisableBreaker {
		return e, nil
	}
	return WithBreaker(e, cfg.Breaker, cfg.Logger), nil
}

// NewFromEnv creates an embedder from environment variables.
// The provider comes from DetectProvider; its key or host from the matching variable.
func NewFromEnv(logger zerolog.Logger) (Embedder, error) {
	cfg := Config{
		Provider:  DetectProvider(),
		CacheSize: DefaultCacheSize,
		Logger:    logger,
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		cfg.APIKey = os.Getenv(EnvOpenAIAPIKey)
	case ProviderJina:
		cfg.APIKey = os.Getenv(EnvJinaAPIKey)
	case ProviderVoyage:
		cfg.APIKey = os.Getenv(EnvVoyageAPIKey)
	case ProviderOllama:
		cfg.Host = os.Getenv(EnvOllamaHost)
		cfg.Model = os.Getenv(EnvOllamaModel)
	}

	return New(cfg)
}

// DetectProvider returns the provider that would be used based on the current environment.
// Priority: explicit JOTDOWN_EMBEDDING_PROVIDER, then the first API key found
// (OpenAI, Jina, Voyage), then OLLAMA_HOST, then local.
func DetectProvider() string {
	if provider := os.Getenv(EnvProvider); provider != "" {
		return strings.ToLower(provider)
	}

	switch {
	case os.Getenv(EnvOpenAIAPIKey) != "":
		return ProviderOpenAI
	case os.Getenv(EnvJinaAPIKey) != "":
		return ProviderJina
	case os.Getenv(EnvVoyageAPIKey) != "":
		return ProviderVoyage
	case os.Getenv(EnvOllamaHost) != "":
		return ProviderOllama
	}

	return ProviderLocal
}

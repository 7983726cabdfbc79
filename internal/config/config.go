package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/dshills/jotdown/internal/embedder"
	"github.com/dshills/jotdown/internal/generator"
)

// Environment variables read by Load
const (
	EnvDBPath           = "JOTDOWN_DB_PATH"
	EnvThreshold        = "JOTDOWN_CATEGORY_THRESHOLD"
	EnvDebounceMS       = "JOTDOWN_SEARCH_DEBOUNCE_MS"
	EnvSearchLimit      = "JOTDOWN_SEARCH_LIMIT"
	EnvMaxThoughtLength = "JOTDOWN_MAX_THOUGHT_LENGTH"
	EnvAnchorCacheSize  = "JOTDOWN_ANCHOR_CACHE_SIZE"
	EnvLogLevel         = "JOTDOWN_LOG_LEVEL"
	EnvLogFormat        = "JOTDOWN_LOG_FORMAT"
)

// Defaults
const (
	DefaultThreshold        = 0.30
	DefaultDebounce         = 500 * time.Millisecond
	DefaultSearchLimit      = 5
	DefaultMaxThoughtLength = 250
	DefaultEmbedCacheSize   = embedder.DefaultCacheSize
	DefaultAnchorCacheSize  = 256
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "console"
)

// ErrInvalid is wrapped by every validation and parse failure
var ErrInvalid = errors.New("invalid configuration")

// Config holds resolved application settings
type Config struct {
	DBPath             string
	EmbeddingProvider  string
	GenerationProvider string
	Threshold          float64
	Debounce           time.Duration
	SearchLimit        int
	MaxThoughtLength   int
	EmbedCacheSize     int
	AnchorCacheSize    int
	LogLevel           string
	LogFormat          string
}

// Default returns the configuration used when no variables are set.
// Providers are left empty; Load fills them from DetectProvider.
func Default() *Config {
	return &Config{
		DBPath:           DefaultDBPath(),
		Threshold:        DefaultThreshold,
		Debounce:         DefaultDebounce,
		SearchLimit:      DefaultSearchLimit,
		MaxThoughtLength: DefaultMaxThoughtLength,
		EmbedCacheSize:   DefaultEmbedCacheSize,
		AnchorCacheSize:  DefaultAnchorCacheSize,
		LogLevel:         DefaultLogLevel,
		LogFormat:        DefaultLogFormat,
	}
}

// DefaultDBPath returns ~/.jotdown/jotdown.db, or a relative path when the
// home directory cannot be resolved.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".jotdown", "jotdown.db")
	}
	return filepath.Join(home, ".jotdown", "jotdown.db")
}

// Load reads the given .env files (".env" when none are named), then the
// environment. Missing env files are ignored; variables already set in the
// process take precedence over file values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only and validates it
func FromEnv() (*Config, error) {
	cfg := Default()
	cfg.EmbeddingProvider = embedder.DetectProvider()
	cfg.GenerationProvider = generator.DetectProvider()

	if v := strings.TrimSpace(os.Getenv(EnvDBPath)); v != "" {
		cfg.DBPath = expandHome(v)
	}

	var err error
	if cfg.Threshold, err = floatEnv(EnvThreshold, cfg.Threshold); err != nil {
		return nil, err
	}
	ms, err := intEnv(EnvDebounceMS, int(cfg.Debounce/time.Millisecond))
	if err != nil {
		return nil, err
	}
	cfg.Debounce = time.Duration(ms) * time.Millisecond
	if cfg.SearchLimit, err = intEnv(EnvSearchLimit, cfg.SearchLimit); err != nil {
		return nil, err
	}
	if cfg.MaxThoughtLength, err = intEnv(EnvMaxThoughtLength, cfg.MaxThoughtLength); err != nil {
		return nil, err
	}
	if cfg.EmbedCacheSize, err = intEnv(embedder.EnvEmbedCacheSize, cfg.EmbedCacheSize); err != nil {
		return nil, err
	}
	if cfg.AnchorCacheSize, err = intEnv(EnvAnchorCacheSize, cfg.AnchorCacheSize); err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("%w: database path is empty", ErrInvalid)
	}
	if c.Threshold < -1 || c.Threshold > 1 {
		return fmt.Errorf("%w: category threshold %v outside [-1, 1]", ErrInvalid, c.Threshold)
	}
	if c.Debounce <= 0 {
		return fmt.Errorf("%w: search debounce must be positive", ErrInvalid)
	}
	if c.SearchLimit <= 0 {
		return fmt.Errorf("%w: search limit must be positive", ErrInvalid)
	}
	if c.MaxThoughtLength <= 0 {
		return fmt.Errorf("%w: max thought length must be positive", ErrInvalid)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("%w: log format %q (want console or json)", ErrInvalid, c.LogFormat)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log level %q", ErrInvalid, c.LogLevel)
	}
	return nil
}

// EmbedderConfig returns the embedder configuration for the selected provider,
// with credentials taken from the environment.
func (c *Config) EmbedderConfig(logger zerolog.Logger) embedder.Config {
	cfg := embedder.Config{
		Provider:  c.EmbeddingProvider,
		CacheSize: c.EmbedCacheSize,
		Logger:    logger,
	}
	switch c.EmbeddingProvider {
	case embedder.ProviderOpenAI:
		cfg.APIKey = os.Getenv(embedder.EnvOpenAIAPIKey)
	case embedder.ProviderJina:
		cfg.APIKey = os.Getenv(embedder.EnvJinaAPIKey)
	case embedder.ProviderVoyage:
		cfg.APIKey = os.Getenv(embedder.EnvVoyageAPIKey)
	case embedder.ProviderOllama:
		cfg.Host = os.Getenv(embedder.EnvOllamaHost)
		cfg.Model = os.Getenv(embedder.EnvOllamaModel)
	}
	return cfg
}

// GeneratorConfig returns the generator configuration for the selected provider
func (c *Config) GeneratorConfig() generator.Config {
	cfg := generator.Config{Provider: c.GenerationProvider}
	switch c.GenerationProvider {
	case generator.ProviderAnthropic:
		cfg.APIKey = os.Getenv(generator.EnvAnthropicAPIKey)
	case generator.ProviderOllama:
		cfg.Host = os.Getenv(generator.EnvOllamaHost)
		cfg.Model = os.Getenv(generator.EnvOllamaModel)
	}
	return cfg
}

func intEnv(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalid, key, v)
	}
	return n, nil
}

func floatEnv(key string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a number", ErrInvalid, key, v)
	}
	return f, nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/jotdown/internal/embedder"
	"github.com/dshills/jotdown/internal/generator"
)

// clearEnv blanks every variable Load consults so the host environment
// cannot leak into a test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvDBPath, EnvThreshold, EnvDebounceMS, EnvSearchLimit, EnvMaxThoughtLength,
		EnvAnchorCacheSize, EnvLogLevel, EnvLogFormat,
		embedder.EnvProvider, embedder.EnvOpenAIAPIKey, embedder.EnvJinaAPIKey,
		embedder.EnvVoyageAPIKey, embedder.EnvOllamaHost, embedder.EnvOllamaModel,
		embedder.EnvEmbedCacheSize,
		generator.EnvProvider, generator.EnvAnthropicAPIKey, generator.EnvOllamaModel,
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, DefaultDBPath(), cfg.DBPath)
	assert.Equal(t, embedder.ProviderLocal, cfg.EmbeddingProvider)
	assert.Equal(t, generator.ProviderLocal, cfg.GenerationProvider)
	assert.InDelta(t, 0.30, cfg.Threshold, 1e-9)
	assert.Equal(t, 500*time.Millisecond, cfg.Debounce)
	assert.Equal(t, 5, cfg.SearchLimit)
	assert.Equal(t, 250, cfg.MaxThoughtLength)
	assert.Equal(t, 10000, cfg.EmbedCacheSize)
	assert.Equal(t, 256, cfg.AnchorCacheSize)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDBPath, "/tmp/jot.db")
	t.Setenv(EnvThreshold, "0.45")
	t.Setenv(EnvDebounceMS, "250")
	t.Setenv(EnvSearchLimit, "8")
	t.Setenv(EnvMaxThoughtLength, "500")
	t.Setenv(embedder.EnvEmbedCacheSize, "0")
	t.Setenv(EnvAnchorCacheSize, "32")
	t.Setenv(EnvLogLevel, "DEBUG")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(embedder.EnvProvider, "OpenAI")
	t.Setenv(generator.EnvProvider, "anthropic")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/jot.db", cfg.DBPath)
	assert.InDelta(t, 0.45, cfg.Threshold, 1e-9)
	assert.Equal(t, 250*time.Millisecond, cfg.Debounce)
	assert.Equal(t, 8, cfg.SearchLimit)
	assert.Equal(t, 500, cfg.MaxThoughtLength)
	assert.Equal(t, 0, cfg.EmbedCacheSize)
	assert.Equal(t, 32, cfg.AnchorCacheSize)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, embedder.ProviderOpenAI, cfg.EmbeddingProvider)
	assert.Equal(t, generator.ProviderAnthropic, cfg.GenerationProvider)
}

func TestFromEnvExpandsHome(t *testing.T) {
	clearEnv(t)
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	t.Setenv(EnvDBPath, "~/notes/jot.db")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "notes", "jot.db"), cfg.DBPath)
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"threshold not a number", EnvThreshold, "high"},
		{"threshold above one", EnvThreshold, "1.5"},
		{"threshold below minus one", EnvThreshold, "-2"},
		{"debounce not an integer", EnvDebounceMS, "fast"},
		{"zero debounce", EnvDebounceMS, "0"},
		{"negative limit", EnvSearchLimit, "-1"},
		{"zero length", EnvMaxThoughtLength, "0"},
		{"unknown format", EnvLogFormat, "xml"},
		{"unknown level", EnvLogLevel, "loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := FromEnv()
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv does not override variables already present, so unset these
	// instead of blanking them
	require.NoError(t, os.Unsetenv(EnvSearchLimit))
	require.NoError(t, os.Unsetenv(EnvDBPath))

	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("JOTDOWN_SEARCH_LIMIT=12\nJOTDOWN_DB_PATH=/data/jot.db\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv(EnvSearchLimit)
		_ = os.Unsetenv(EnvDBPath)
	})

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.SearchLimit)
	assert.Equal(t, "/data/jot.db", cfg.DBPath)
}

func TestLoadIgnoresMissingEnvFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSearchLimit, cfg.SearchLimit)
}

func TestEmbedderConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv(embedder.EnvJinaAPIKey, "jina-key")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, embedder.ProviderJina, cfg.EmbeddingProvider)

	ec := cfg.EmbedderConfig(zerolog.Nop())
	assert.Equal(t, embedder.ProviderJina, ec.Provider)
	assert.Equal(t, "jina-key", ec.APIKey)
	assert.Equal(t, cfg.EmbedCacheSize, ec.CacheSize)
}

func TestGeneratorConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv(generator.EnvAnthropicAPIKey, "sk-test")

	cfg, err := FromEnv()
	require.NoError(t, err)

	gc := cfg.GeneratorConfig()
	assert.Equal(t, generator.ProviderAnthropic, gc.Provider)
	assert.Equal(t, "sk-test", gc.APIKey)
}

func TestFromEnvZeroThreshold(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvThreshold, "0")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Threshold)
}

package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/jotdown/pkg/types"
)

// remoteServer answers the shared /embeddings shape, returning data in reverse
// order so index handling is exercised
func remoteServer(t *testing.T, dim int, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req remoteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		type item struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]item, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			vec := make([]float32, dim)
			vec[0] = float32(i + 1)
			data = append(data, item{Embedding: vec, Index: i})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"model": req.Model,
			"data":  data,
		})
	}))
}

func newTestRemote(t *testing.T, url string, dim int, cache *Cache) *RemoteProvider {
	t.Helper()
	p, err := NewRemoteProvider(RemoteConfig{
		Name:      "test",
		Endpoint:  url,
		APIKey:    "test-key",
		Model:     "test-model",
		Dimension: dim,
		Timeout:   5 * time.Second,
	}, cache)
	require.NoError(t, err)
	return p
}

func TestRemoteProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("batch ordered by index", func(t *testing.T) {
		var calls int32
		server := remoteServer(t, 4, &calls)
		defer server.Close()

		p := newTestRemote(t, server.URL, 4, nil)
		resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"a", "b", "c"}})
		require.NoError(t, err)
		require.Len(t, resp.Embeddings, 3)
		for i, emb := range resp.Embeddings {
			assert.Equal(t, float32(i+1), emb.Vector[0])
			assert.Equal(t, 4, emb.Dimension)
		}
		assert.Equal(t, "test-model", resp.Model)
	})

	t.Run("cache hit avoids api call", func(t *testing.T) {
		var calls int32
		server := remoteServer(t, 4, &calls)
		defer server.Close()

		p := newTestRemote(t, server.URL, 4, NewCache(10))
		_, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "note"})
		require.NoError(t, err)
		_, err = p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "note"})
		require.NoError(t, err)

		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("only uncached texts are sent", func(t *testing.T) {
		var calls int32
		server := remoteServer(t, 4, &calls)
		defer server.Close()

		p := newTestRemote(t, server.URL, 4, NewCache(10))
		_, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "a"})
		require.NoError(t, err)

		resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"a", "b"}})
		require.NoError(t, err)
		assert.Len(t, resp.Embeddings, 2)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("wrong dimension rejected", func(t *testing.T) {
		var calls int32
		server := remoteServer(t, 3, &calls)
		defer server.Close()

		p := newTestRemote(t, server.URL, 4, nil)
		_, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "note"})
		assert.ErrorIs(t, err, types.ErrEmbeddingUnavailable)
		assert.ErrorIs(t, err, types.ErrDimensionMismatch)
	})

	t.Run("http error is not retried", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		p := newTestRemote(t, server.URL, 4, nil)
		_, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "note"})
		assert.ErrorIs(t, err, types.ErrEmbeddingUnavailable)
		assert.Contains(t, err.Error(), "503")
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("missing api key", func(t *testing.T) {
		_, err := NewOpenAIProvider("", nil)
		assert.ErrorIs(t, err, ErrNoProviderEnabled)
		_, err = NewJinaProvider("", nil)
		assert.ErrorIs(t, err, ErrNoProviderEnabled)
		_, err = NewVoyageProvider("", nil)
		assert.ErrorIs(t, err, ErrNoProviderEnabled)
	})

	t.Run("named provider metadata", func(t *testing.T) {
		tests := []struct {
			name  string
			ctor  func(string, *Cache) (*RemoteProvider, error)
			model string
			dim   int
		}{
			{ProviderOpenAI, NewOpenAIProvider, DefaultOpenAIModel, OpenAIDimension},
			{ProviderJina, NewJinaProvider, DefaultJinaModel, JinaDimension},
			{ProviderVoyage, NewVoyageProvider, DefaultVoyageModel, VoyageDimension},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				p, err := tt.ctor("key", nil)
				require.NoError(t, err)
				defer p.Close()
				assert.Equal(t, tt.name, p.Provider())
				assert.Equal(t, tt.model, p.Model())
				assert.Equal(t, tt.dim, p.Dimension())
			})
		}
	})

	t.Run("validation errors", func(t *testing.T) {
		p, err := NewOpenAIProvider("key", nil)
		require.NoError(t, err)

		_, err = p.GenerateEmbedding(ctx, EmbeddingRequest{})
		assert.ErrorIs(t, err, ErrEmptyText)
		_, err = p.GenerateBatch(ctx, BatchEmbeddingRequest{})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestOllamaProvider(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/embed":
			var req ollamaEmbedRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			out := make([][]float32, len(req.Input))
			for i := range out {
				out[i] = []float32{float32(i), 1, 0}
			}
			_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Model: req.Model, Embeddings: out})
		case "/api/tags":
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	t.Run("embeds batch", func(t *testing.T) {
		p, err := NewOllamaProvider(server.URL+"/", "mini", 3, nil)
		require.NoError(t, err)

		resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"a", "b"}})
		require.NoError(t, err)
		require.Len(t, resp.Embeddings, 2)
		assert.Equal(t, float32(1), resp.Embeddings[1].Vector[0])
		assert.Equal(t, ProviderOllama, resp.Provider)
		assert.Equal(t, "mini", resp.Model)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		p, err := NewOllamaProvider(server.URL, "mini", 8, nil)
		require.NoError(t, err)

		_, err = p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "a"})
		assert.ErrorIs(t, err, types.ErrDimensionMismatch)
	})

	t.Run("defaults", func(t *testing.T) {
		p, err := NewOllamaProvider("", "", 0, nil)
		require.NoError(t, err)
		assert.Equal(t, DefaultOllamaModel, p.Model())
		assert.Equal(t, OllamaDimension, p.Dimension())
	})

	t.Run("health", func(t *testing.T) {
		p, err := NewOllamaProvider(server.URL, "", 0, nil)
		require.NoError(t, err)
		assert.True(t, p.IsHealthy(ctx))
	})

	t.Run("unreachable host", func(t *testing.T) {
		p, err := NewOllamaProvider("http://127.0.0.1:1", "", 0, nil)
		require.NoError(t, err)
		_, err = p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "a"})
		assert.ErrorIs(t, err, types.ErrEmbeddingUnavailable)
	})
}

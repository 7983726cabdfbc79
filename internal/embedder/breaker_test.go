package embedder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/jotdown/pkg/types"
)

func TestBreakerEmbedder(t *testing.T) {
	ctx := context.Background()

	t.Run("opens after repeated failures and fails fast", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		remote := newTestRemote(t, server.URL, 4, nil)
		b := WithBreaker(remote, BreakerConfig{MinRequests: 3, FailureRatio: 0.5, Timeout: time.Minute}, zerolog.Nop())

		for i := 0; i < 3; i++ {
			_, err := b.GenerateEmbedding(ctx, EmbeddingRequest{Text: "note"})
			require.Error(t, err)
		}
		assert.Equal(t, "open", b.State())

		_, err := b.GenerateEmbedding(ctx, EmbeddingRequest{Text: "note"})
		assert.ErrorIs(t, err, types.ErrEmbeddingUnavailable)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("validation errors do not trip", func(t *testing.T) {
		remote := newTestRemote(t, "http://127.0.0.1:1", 4, nil)
		b := WithBreaker(remote, BreakerConfig{MinRequests: 1, FailureRatio: 0.1}, zerolog.Nop())

		for i := 0; i < 5; i++ {
			_, err := b.GenerateEmbedding(ctx, EmbeddingRequest{})
			assert.ErrorIs(t, err, ErrEmptyText)
		}
		assert.Equal(t, "closed", b.State())
	})

	t.Run("passes through successes", func(t *testing.T) {
		var calls int32
		server := remoteServer(t, 4, &calls)
		defer server.Close()

		b := WithBreaker(newTestRemote(t, server.URL, 4, nil), DefaultBreakerConfig(), zerolog.Nop())
		emb, err := b.GenerateEmbedding(ctx, EmbeddingRequest{Text: "note"})
		require.NoError(t, err)
		assert.Len(t, emb.Vector, 4)
		assert.Equal(t, 4, b.Dimension())
		assert.Equal(t, "test", b.Provider())

		resp, err := b.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"a", "b"}})
		require.NoError(t, err)
		assert.Len(t, resp.Embeddings, 2)
	})
}

package retrieval

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/jotdown/internal/embedder"
	"github.com/dshills/jotdown/pkg/types"
)

// mockEmbedder returns preset vectors by text
type mockEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	err     error
	calls   int
}

func (m *mockEmbedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	v := m.vectors[req.Text]
	return &embedder.Embedding{Vector: v, Dimension: len(v), Provider: "mock"}, nil
}

func (m *mockEmbedder) GenerateBatch(ctx context.Context, req embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	return nil, errors.New("not implemented")
}

func (m *mockEmbedder) Dimension() int   { return 2 }
func (m *mockEmbedder) Provider() string { return "mock" }
func (m *mockEmbedder) Model() string    { return "mock" }
func (m *mockEmbedder) Close() error     { return nil }

// mockSynthesizer records its candidates
type mockSynthesizer struct {
	answer     string
	err        error
	candidates []types.Thought
}

func (m *mockSynthesizer) SynthesizeAnswer(ctx context.Context, query string, candidates []types.Thought) (string, error) {
	m.candidates = candidates
	return m.answer, m.err
}

func thought(id, content string, vector ...float32) types.Thought {
	return types.Thought{ID: id, Content: content, Vector: vector, CreatedAt: time.Now()}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "", want: ModeLiteral},
		{in: "Literal", want: ModeLiteral},
		{in: " semantic ", want: ModeSemantic},
		{in: "answer", want: ModeAnswer},
		{in: "fuzzy", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLiteralSearch(t *testing.T) {
	engine := New(nil, nil, Options{Logger: zerolog.Nop()})
	items := []types.Thought{
		thought("1", "I have a cat"),
		thought("2", "dog lover"),
		thought("3", "Category theory"),
	}

	t.Run("case insensitive containment", func(t *testing.T) {
		resp, err := engine.Search(context.Background(), Request{Query: "cat", Mode: ModeLiteral, Items: items})
		require.NoError(t, err)
		require.Len(t, resp.Results, 2)
		assert.Equal(t, "1", resp.Results[0].Thought.ID)
		assert.Equal(t, "3", resp.Results[1].Thought.ID)
		assert.Equal(t, 1, resp.Results[0].Rank)
		assert.Equal(t, 2, resp.Results[1].Rank)
		assert.Equal(t, 1.0, resp.Results[0].Score)
	})

	t.Run("regular expression", func(t *testing.T) {
		resp, err := engine.Search(context.Background(), Request{Query: "^(dog|i )", Items: items})
		require.NoError(t, err)
		require.Len(t, resp.Results, 2)
		assert.Equal(t, ModeLiteral, resp.Mode)
	})

	t.Run("invalid pattern", func(t *testing.T) {
		resp, err := engine.Search(context.Background(), Request{Query: "cat(", Mode: ModeLiteral, Items: items})
		assert.ErrorIs(t, err, types.ErrInvalidPattern)
		assert.Nil(t, resp)
	})

	t.Run("explicit limit", func(t *testing.T) {
		resp, err := engine.Search(context.Background(), Request{Query: "a", Limit: 1, Items: items})
		require.NoError(t, err)
		assert.Len(t, resp.Results, 1)
	})

	t.Run("no limit returns all matches", func(t *testing.T) {
		many := make([]types.Thought, 20)
		for i := range many {
			many[i] = thought(string(rune('a'+i)), "cat")
		}
		resp, err := engine.Search(context.Background(), Request{Query: "cat", Items: many})
		require.NoError(t, err)
		assert.Len(t, resp.Results, 20)
	})
}

func TestEmptyQueryDoesNoWork(t *testing.T) {
	emb := &mockEmbedder{}
	synth := &mockSynthesizer{answer: "x"}
	engine := New(emb, synth, Options{})

	for _, mode := range []Mode{ModeLiteral, ModeSemantic, ModeAnswer} {
		t.Run(string(mode), func(t *testing.T) {
			resp, err := engine.Search(context.Background(), Request{Query: "   ", Mode: mode, Items: []types.Thought{thought("1", "x", 1, 0)}})
			require.NoError(t, err)
			assert.True(t, resp.IsEmpty())
			assert.Equal(t, mode, resp.Mode)
		})
	}
	assert.Zero(t, emb.calls)
	assert.Nil(t, synth.candidates)
}

func TestSemanticSearch(t *testing.T) {
	emb := &mockEmbedder{vectors: map[string][]float32{"music": {1, 0}}}
	engine := New(emb, nil, Options{Logger: zerolog.Nop()})

	items := []types.Thought{
		thought("work", "finish report", 0, 1),
		thought("cello", "practice cello", 1, 0.1),
		thought("broken", "bad vector", 1, 0, 0),
		thought("piano", "tune piano", 1, 0.5),
		thought("empty", "embedding failed", 0, 0),
	}

	t.Run("ranks by similarity", func(t *testing.T) {
		resp, err := engine.Search(context.Background(), Request{Query: "music", Mode: ModeSemantic, Items: items})
		require.NoError(t, err)
		require.Len(t, resp.Results, 4)
		assert.Equal(t, "cello", resp.Results[0].Thought.ID)
		assert.Equal(t, "piano", resp.Results[1].Thought.ID)
		assert.Equal(t, 1, resp.Skipped)
		for i := 1; i < len(resp.Results); i++ {
			assert.GreaterOrEqual(t, resp.Results[i-1].Score, resp.Results[i].Score)
			assert.Equal(t, i+1, resp.Results[i].Rank)
		}
	})

	t.Run("limit", func(t *testing.T) {
		resp, err := engine.Search(context.Background(), Request{Query: "music", Mode: ModeSemantic, Limit: 2, Items: items})
		require.NoError(t, err)
		assert.Len(t, resp.Results, 2)
	})

	t.Run("default limit is five", func(t *testing.T) {
		many := make([]types.Thought, 9)
		for i := range many {
			many[i] = thought(string(rune('a'+i)), "x", 1, float32(i))
		}
		resp, err := engine.Search(context.Background(), Request{Query: "music", Mode: ModeSemantic, Items: many})
		require.NoError(t, err)
		assert.Len(t, resp.Results, DefaultLimit)
	})

	t.Run("embedding unavailable", func(t *testing.T) {
		failing := New(&mockEmbedder{err: errors.New("timeout")}, nil, Options{})
		_, err := failing.Search(context.Background(), Request{Query: "music", Mode: ModeSemantic, Items: items})
		assert.ErrorIs(t, err, types.ErrEmbeddingUnavailable)
	})

	t.Run("empty query vector", func(t *testing.T) {
		_, err := engine.Search(context.Background(), Request{Query: "unknown", Mode: ModeSemantic, Items: items})
		assert.ErrorIs(t, err, types.ErrDimensionMismatch)
	})
}

func TestAnswerSearch(t *testing.T) {
	emb := &mockEmbedder{vectors: map[string][]float32{"when is practice": {1, 0}}}
	items := []types.Thought{
		thought("a", "practice tuesday", 1, 0),
		thought("b", "groceries", 0, 1),
	}

	t.Run("synthesizes from semantic candidates", func(t *testing.T) {
		synth := &mockSynthesizer{answer: "Tuesday."}
		engine := New(emb, synth, Options{DefaultLimit: 1})

		resp, err := engine.Search(context.Background(), Request{Query: "when is practice", Mode: ModeAnswer, Items: items})
		require.NoError(t, err)
		assert.Equal(t, "Tuesday.", resp.Answer)
		assert.Empty(t, resp.Results)
		require.Len(t, resp.Sources, 1)
		assert.Equal(t, "a", resp.Sources[0].Thought.ID)
		require.Len(t, synth.candidates, 1)
		assert.Equal(t, "practice tuesday", synth.candidates[0].Content)
		assert.Equal(t, []string{"groceries", "practice", "tuesday"}, resp.Keywords)
	})

	t.Run("keywords matching the query come first", func(t *testing.T) {
		engine := New(&mockEmbedder{vectors: map[string][]float32{"Practice": {1, 0}}}, &mockSynthesizer{answer: "ok"}, Options{})
		resp, err := engine.Search(context.Background(), Request{Query: "Practice", Mode: ModeAnswer, Items: items})
		require.NoError(t, err)
		assert.Equal(t, []string{"practice", "groceries", "tuesday"}, resp.Keywords)
	})

	t.Run("generation unavailable", func(t *testing.T) {
		engine := New(emb, &mockSynthesizer{err: errors.New("503")}, Options{})
		_, err := engine.Search(context.Background(), Request{Query: "when is practice", Mode: ModeAnswer, Items: items})
		assert.ErrorIs(t, err, types.ErrGenerationUnavailable)
	})

	t.Run("no synthesizer", func(t *testing.T) {
		engine := New(emb, nil, Options{})
		_, err := engine.Search(context.Background(), Request{Query: "when is practice", Mode: ModeAnswer, Items: items})
		assert.ErrorIs(t, err, types.ErrGenerationUnavailable)
	})
}

func TestUnknownMode(t *testing.T) {
	engine := New(nil, nil, Options{})
	_, err := engine.Search(context.Background(), Request{Query: "x", Mode: "fuzzy"})
	assert.ErrorIs(t, err, ErrUnknownMode)
}

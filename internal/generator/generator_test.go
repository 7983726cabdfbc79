package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/jotdown/pkg/types"
)

func TestParseCategories(t *testing.T) {
	tests := []struct {
		name    string
		resp    string
		want    []string
		wantErr bool
	}{
		{
			name: "plain json",
			resp: `{"categories":[{"name":"Music","description":"Songs"},{"name":"Work","description":"Job"}]}`,
			want: []string{"Music", "Work"},
		},
		{
			name: "fenced json",
			resp: "```json\n{\"categories\":[{\"name\":\"Music\",\"description\":\"Songs\"}]}\n```",
			want: []string{"Music"},
		},
		{
			name: "drops other, blanks and duplicates",
			resp: `{"categories":[{"name":" Music ","description":"Songs"},{"name":"other","description":"x"},{"name":"music","description":"dup"},{"name":"","description":"x"},{"name":"Gym","description":" "}]}`,
			want: []string{"Music"},
		},
		{
			name:    "not json",
			resp:    "Sure! Here are some categories",
			wantErr: true,
		},
		{
			name:    "no usable categories",
			resp:    `{"categories":[]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCategories(tt.resp)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrGenerationUnavailable)
				return
			}
			require.NoError(t, err)
			names := make([]string, len(got))
			for i, c := range got {
				names[i] = c.Name
				assert.True(t, c.IsActive)
				assert.NotEmpty(t, c.Description)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestParseCategoriesCapped(t *testing.T) {
	payload := categoryPayload{}
	for i := 0; i < MaxGeneratedCategories+4; i++ {
		payload.Categories = append(payload.Categories, struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}{Name: string(rune('A' + i)), Description: "d"})
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	got, err := parseCategories(string(raw))
	require.NoError(t, err)
	assert.Len(t, got, MaxGeneratedCategories)
}

func TestBuildAnswerPrompt(t *testing.T) {
	created := time.Date(2025, 9, 22, 10, 0, 0, 0, time.UTC)
	prompt := buildAnswerPrompt("when is the exam?", []types.Thought{
		{Content: "Physics exam on Friday", CreatedAt: created},
	})
	assert.Contains(t, prompt, "1. [2025-09-22] Physics exam on Friday")
	assert.Contains(t, prompt, "Question: when is the exam?")
}

func TestAnthropicProvider(t *testing.T) {
	ctx := context.Background()

	newServer := func(status int, text string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
			assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

			var req anthropicRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, DefaultAnthropicModel, req.Model)
			require.Len(t, req.Messages, 1)

			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"content": []map[string]string{{"type": "text", "text": text}},
			})
		}))
	}

	t.Run("generate categories", func(t *testing.T) {
		server := newServer(http.StatusOK, "```json\n{\"categories\":[{\"name\":\"Climbing\",\"description\":\"Bouldering sessions\"}]}\n```")
		defer server.Close()

		p, err := NewAnthropicProvider("test-key", "")
		require.NoError(t, err)
		p.endpoint = server.URL

		cats, err := p.GenerateCategories(ctx, "I climb on weekends")
		require.NoError(t, err)
		require.Len(t, cats, 1)
		assert.Equal(t, "Climbing", cats[0].Name)
	})

	t.Run("synthesize answer", func(t *testing.T) {
		server := newServer(http.StatusOK, "  Friday.  ")
		defer server.Close()

		p, err := NewAnthropicProvider("test-key", "")
		require.NoError(t, err)
		p.endpoint = server.URL

		answer, err := p.SynthesizeAnswer(ctx, "when?", []types.Thought{{Content: "exam friday"}})
		require.NoError(t, err)
		assert.Equal(t, "Friday.", answer)
	})

	t.Run("api error", func(t *testing.T) {
		server := newServer(http.StatusTooManyRequests, "")
		defer server.Close()

		p, err := NewAnthropicProvider("test-key", "")
		require.NoError(t, err)
		p.endpoint = server.URL

		_, err = p.SynthesizeAnswer(ctx, "when?", nil)
		assert.ErrorIs(t, err, types.ErrGenerationUnavailable)
	})

	t.Run("empty answer", func(t *testing.T) {
		server := newServer(http.StatusOK, "   ")
		defer server.Close()

		p, err := NewAnthropicProvider("test-key", "")
		require.NoError(t, err)
		p.endpoint = server.URL

		_, err = p.SynthesizeAnswer(ctx, "when?", nil)
		assert.ErrorIs(t, err, types.ErrGenerationUnavailable)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := NewAnthropicProvider("", "")
		assert.ErrorIs(t, err, ErrNoProviderEnabled)
	})
}

func TestOllamaProvider(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)

		resp := ollamaGenerateResponse{Done: true, Response: "It is on Friday."}
		if req.Format == "json" {
			resp.Response = `{"categories":[{"name":"Garden","description":"Plants and yard work"}]}`
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p := NewOllamaProvider(server.URL, "")
	assert.Equal(t, ProviderOllama, p.Provider())

	cats, err := p.GenerateCategories(ctx, "I garden")
	require.NoError(t, err)
	assert.Equal(t, "Garden", cats[0].Name)

	answer, err := p.SynthesizeAnswer(ctx, "when?", nil)
	require.NoError(t, err)
	assert.Equal(t, "It is on Friday.", answer)

	down := NewOllamaProvider("http://127.0.0.1:1", "m")
	_, err = down.SynthesizeAnswer(ctx, "when?", nil)
	assert.ErrorIs(t, err, types.ErrGenerationUnavailable)
}

func TestLocalProvider(t *testing.T) {
	ctx := context.Background()
	p := NewLocalProvider()

	names := func(cats []types.Category) []string {
		out := make([]string, len(cats))
		for i, c := range cats {
			out[i] = c.Name
		}
		return out
	}

	t.Run("matches profile words", func(t *testing.T) {
		cats, err := p.GenerateCategories(ctx, "College student who plays cello and goes running.")
		require.NoError(t, err)
		assert.Equal(t, []string{"Class", "Music", "Fitness", "Personal"}, names(cats))
	})

	t.Run("defaults when nothing matches", func(t *testing.T) {
		cats, err := p.GenerateCategories(ctx, "zzz")
		require.NoError(t, err)
		assert.Equal(t, []string{"Class", "Work", "Music", "Personal"}, names(cats))
	})

	t.Run("deterministic", func(t *testing.T) {
		a, err := p.GenerateCategories(ctx, "software engineer who bakes")
		require.NoError(t, err)
		b, err := p.GenerateCategories(ctx, "software engineer who bakes")
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("answer", func(t *testing.T) {
		answer, err := p.SynthesizeAnswer(ctx, "cello?", []types.Thought{{Content: "Buy cello strings."}, {Content: "Practice scales"}})
		require.NoError(t, err)
		assert.Equal(t, "From your thoughts: Buy cello strings; Practice scales.", answer)

		answer, err = p.SynthesizeAnswer(ctx, "cello?", nil)
		require.NoError(t, err)
		assert.NotEmpty(t, answer)
	})
}

func TestFactory(t *testing.T) {
	for _, key := range []string{EnvProvider, EnvAnthropicAPIKey, EnvOllamaHost, EnvOllamaModel} {
		t.Setenv(key, "")
	}
	assert.Equal(t, ProviderLocal, DetectProvider())

	t.Setenv(EnvOllamaHost, "http://localhost:11434")
	assert.Equal(t, ProviderOllama, DetectProvider())

	t.Setenv(EnvAnthropicAPIKey, "k")
	assert.Equal(t, ProviderAnthropic, DetectProvider())

	g, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, g.Provider())

	_, err = New(Config{Provider: "bogus"})
	assert.ErrorIs(t, err, ErrUnsupported)

	g, err = New(Config{})
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, g.Provider())
}

package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/jotdown/internal/embedder"
	"github.com/dshills/jotdown/internal/generator"
	"github.com/dshills/jotdown/internal/storage"
	"github.com/dshills/jotdown/internal/thoughts"
)

// keywordEmbedder maps text onto three axes: music, work, everything else
type keywordEmbedder struct{}

func (keywordEmbedder) vector(text string) []float32 {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "cello") || strings.Contains(lower, "music"):
		return []float32{1, 0, 0}
	case strings.Contains(lower, "work") || strings.Contains(lower, "report"):
		return []float32{0, 1, 0}
	default:
		return []float32{0, 0, 1}
	}
}

func (e keywordEmbedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	return &embedder.Embedding{Vector: e.vector(req.Text), Dimension: 3, Provider: "keyword", Model: "keyword-v1"}, nil
}

func (e keywordEmbedder) GenerateBatch(ctx context.Context, req embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	out := make([]*embedder.Embedding, len(req.Texts))
	for i, text := range req.Texts {
		out[i], _ = e.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: text})
	}
	return &embedder.BatchEmbeddingResponse{Embeddings: out, Provider: "keyword", Model: "keyword-v1"}, nil
}

func (keywordEmbedder) Dimension() int   { return 3 }
func (keywordEmbedder) Provider() string { return "keyword" }
func (keywordEmbedder) Model() string    { return "keyword-v1" }
func (keywordEmbedder) Close() error     { return nil }

type toolHandler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := storage.NewSQLiteStorage(storage.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc := thoughts.New(store, keywordEmbedder{}, generator.NewLocalProvider(), thoughts.Options{MaxThoughtLength: 60})
	server, err := NewServer(svc, zerolog.Nop())
	require.NoError(t, err)
	return server
}

func callTool(t *testing.T, handler toolHandler, args map[string]interface{}) (map[string]interface{}, error) {
	t.Helper()
	request := mcp.CallToolRequest{}
	if args != nil {
		request.Params.Arguments = args
	}

	result, err := handler(context.Background(), request)
	if err != nil {
		return nil, err
	}
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	text := result.Content[0].(mcp.TextContent).Text
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text), &decoded))
	return decoded, nil
}

func mustCall(t *testing.T, handler toolHandler, args map[string]interface{}) map[string]interface{} {
	t.Helper()
	decoded, err := callTool(t, handler, args)
	require.NoError(t, err)
	return decoded
}

func requireCode(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	mcpErr, ok := err.(*MCPError)
	require.True(t, ok, "expected *MCPError, got %T", err)
	assert.Equal(t, code, mcpErr.Code, mcpErr.Message)
}

func seedCategories(t *testing.T, s *Server) {
	t.Helper()
	mustCall(t, s.handleAddCategory, map[string]interface{}{"name": "Music", "description": "instruments and practice"})
	mustCall(t, s.handleAddCategory, map[string]interface{}{"name": "Work", "description": "job tasks and meetings"})
}

func addThought(t *testing.T, s *Server, content string) map[string]interface{} {
	t.Helper()
	out := mustCall(t, s.handleAddThought, map[string]interface{}{"content": content})
	return out["thought"].(map[string]interface{})
}

func TestNewServer(t *testing.T) {
	t.Run("requires a service", func(t *testing.T) {
		_, err := NewServer(nil, zerolog.Nop())
		assert.Error(t, err)
	})

	t.Run("server has all required components", func(t *testing.T) {
		server := newTestServer(t)
		assert.NotNil(t, server.mcp, "MCP server should be initialized")
		assert.NotNil(t, server.service, "Service should be set")
	})
}

func TestAddThoughtTool(t *testing.T) {
	s := newTestServer(t)
	seedCategories(t, s)

	t.Run("categorizes content", func(t *testing.T) {
		thought := addThought(t, s, "  practice cello  ")
		assert.Equal(t, "practice cello", thought["content"])
		assert.Equal(t, "Music", thought["category"])
		assert.NotEmpty(t, thought["id"])
	})

	t.Run("unmatched content goes to Other", func(t *testing.T) {
		thought := addThought(t, s, "buy milk")
		assert.Equal(t, "Other", thought["category"])
	})

	t.Run("missing content", func(t *testing.T) {
		_, err := callTool(t, s.handleAddThought, map[string]interface{}{})
		requireCode(t, err, ErrorCodeInvalidParams)
	})

	t.Run("too long", func(t *testing.T) {
		_, err := callTool(t, s.handleAddThought, map[string]interface{}{"content": strings.Repeat("x", 61)})
		requireCode(t, err, ErrorCodeInvalidParams)
	})
}

func TestEditAndDeleteThoughtTools(t *testing.T) {
	s := newTestServer(t)
	seedCategories(t, s)
	thought := addThought(t, s, "buy milk")

	edited := mustCall(t, s.handleEditThought, map[string]interface{}{
		"id":      thought["id"],
		"content": "finish the report",
	})["thought"].(map[string]interface{})
	assert.Equal(t, "finish the report", edited["content"])
	assert.Equal(t, "Work", edited["category"])

	_, err := callTool(t, s.handleEditThought, map[string]interface{}{"id": "missing", "content": "x"})
	requireCode(t, err, ErrorCodeNotFound)

	deleted := mustCall(t, s.handleDeleteThoughts, map[string]interface{}{
		"ids": []interface{}{thought["id"], "missing"},
	})
	assert.Equal(t, float64(2), deleted["requested"])
	assert.Equal(t, float64(1), deleted["deleted"])

	_, err = callTool(t, s.handleDeleteThoughts, map[string]interface{}{"ids": []interface{}{}})
	requireCode(t, err, ErrorCodeInvalidParams)

	listed := mustCall(t, s.handleListThoughts, nil)
	assert.Equal(t, float64(0), listed["count"])
}

func TestListThoughtsTool(t *testing.T) {
	s := newTestServer(t)
	seedCategories(t, s)
	addThought(t, s, "practice cello")
	addThought(t, s, "finish the report")
	addThought(t, s, "cello recital")

	t.Run("newest first", func(t *testing.T) {
		out := mustCall(t, s.handleListThoughts, map[string]interface{}{})
		items := out["thoughts"].([]interface{})
		require.Len(t, items, 3)
		assert.Equal(t, "cello recital", items[0].(map[string]interface{})["content"])
	})

	t.Run("category filter and limit", func(t *testing.T) {
		out := mustCall(t, s.handleListThoughts, map[string]interface{}{"category": "music", "limit": float64(1)})
		items := out["thoughts"].([]interface{})
		require.Len(t, items, 1)
		assert.Equal(t, "cello recital", items[0].(map[string]interface{})["content"])
	})

	t.Run("negative limit", func(t *testing.T) {
		_, err := callTool(t, s.handleListThoughts, map[string]interface{}{"limit": float64(-1)})
		requireCode(t, err, ErrorCodeInvalidParams)
	})
}

func TestSearchThoughtsTool(t *testing.T) {
	s := newTestServer(t)
	seedCategories(t, s)
	for _, content := range []string{"I have a cat", "dog lover", "Category theory", "practice cello"} {
		addThought(t, s, content)
	}

	t.Run("literal is the default mode", func(t *testing.T) {
		out := mustCall(t, s.handleSearchThoughts, map[string]interface{}{"query": "cat"})
		assert.Equal(t, "literal", out["mode"])
		results := out["results"].([]interface{})
		require.Len(t, results, 2)
		first := results[0].(map[string]interface{})
		assert.Equal(t, "Category theory", first["content"])
		assert.Equal(t, float64(1), first["rank"])
	})

	t.Run("semantic", func(t *testing.T) {
		out := mustCall(t, s.handleSearchThoughts, map[string]interface{}{"query": "music", "mode": "semantic", "limit": float64(1)})
		results := out["results"].([]interface{})
		require.Len(t, results, 1)
		assert.Equal(t, "practice cello", results[0].(map[string]interface{})["content"])
	})

	t.Run("answer", func(t *testing.T) {
		out := mustCall(t, s.handleSearchThoughts, map[string]interface{}{"query": "music", "mode": "answer"})
		assert.True(t, strings.HasPrefix(out["answer"].(string), "From your thoughts: "))
		sources := out["sources"].([]interface{})
		require.NotEmpty(t, sources)
		assert.Equal(t, "practice cello", sources[0].(map[string]interface{})["content"])
		assert.NotEmpty(t, out["keywords"])
	})

	t.Run("empty query returns nothing", func(t *testing.T) {
		out := mustCall(t, s.handleSearchThoughts, map[string]interface{}{"query": "   "})
		assert.Equal(t, float64(0), out["count"])
	})

	t.Run("invalid pattern", func(t *testing.T) {
		_, err := callTool(t, s.handleSearchThoughts, map[string]interface{}{"query": "("})
		requireCode(t, err, ErrorCodeInvalidPattern)
	})

	t.Run("invalid mode", func(t *testing.T) {
		_, err := callTool(t, s.handleSearchThoughts, map[string]interface{}{"query": "cat", "mode": "fuzzy"})
		requireCode(t, err, ErrorCodeInvalidParams)
	})

	t.Run("limit out of range", func(t *testing.T) {
		_, err := callTool(t, s.handleSearchThoughts, map[string]interface{}{"query": "cat", "limit": float64(101)})
		requireCode(t, err, ErrorCodeInvalidParams)
	})

	t.Run("missing query", func(t *testing.T) {
		_, err := callTool(t, s.handleSearchThoughts, map[string]interface{}{})
		requireCode(t, err, ErrorCodeInvalidParams)
	})
}

func TestExtractKeywordsTool(t *testing.T) {
	s := newTestServer(t)

	out := mustCall(t, s.handleExtractKeywords, nil)
	assert.Equal(t, float64(0), out["count"])
	assert.Equal(t, []interface{}{}, out["keywords"])

	addThought(t, s, "buy milk, eggs")
	addThought(t, s, "practice the cello")

	out = mustCall(t, s.handleExtractKeywords, nil)
	assert.Equal(t, []interface{}{"practice", "cello", "buy", "milk", "eggs"}, out["keywords"])
}

func TestCategoryTools(t *testing.T) {
	s := newTestServer(t)
	seedCategories(t, s)
	addThought(t, s, "practice cello")
	addThought(t, s, "buy milk")

	t.Run("list active with snippets", func(t *testing.T) {
		out := mustCall(t, s.handleListCategories, nil)
		categories := out["categories"].([]interface{})
		require.Len(t, categories, 3)

		names := make([]string, len(categories))
		for i, c := range categories {
			names[i] = c.(map[string]interface{})["name"].(string)
		}
		assert.Equal(t, []string{"Music", "Work", "Other"}, names)

		music := categories[0].(map[string]interface{})
		assert.Equal(t, []interface{}{"practice cello"}, music["recent"])
		assert.NotContains(t, out, "archived")
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, err := callTool(t, s.handleAddCategory, map[string]interface{}{"name": "music", "description": "again"})
		requireCode(t, err, ErrorCodeCategoryExists)
	})

	t.Run("new category needs a description", func(t *testing.T) {
		_, err := callTool(t, s.handleAddCategory, map[string]interface{}{"name": "Travel"})
		requireCode(t, err, ErrorCodeInvalidParams)
	})

	t.Run("update description by name", func(t *testing.T) {
		out := mustCall(t, s.handleUpdateCategory, map[string]interface{}{"category": "work", "description": "office projects"})
		category := out["category"].(map[string]interface{})
		assert.Equal(t, "Work", category["name"])
		assert.Equal(t, "office projects", category["description"])
	})

	t.Run("unknown category", func(t *testing.T) {
		_, err := callTool(t, s.handleUpdateCategory, map[string]interface{}{"category": "Nope", "description": "x"})
		requireCode(t, err, ErrorCodeNotFound)
	})

	t.Run("archive and list archived", func(t *testing.T) {
		out := mustCall(t, s.handleArchiveCategory, map[string]interface{}{"category": "Work"})
		assert.Equal(t, false, out["category"].(map[string]interface{})["active"])

		listed := mustCall(t, s.handleListCategories, map[string]interface{}{"include_archived": true, "snippets": float64(0)})
		assert.Len(t, listed["categories"].([]interface{}), 2)
		archived := listed["archived"].([]interface{})
		require.Len(t, archived, 1)
		assert.Equal(t, "Work", archived[0].(map[string]interface{})["name"])
	})

	t.Run("reactivate archived without description", func(t *testing.T) {
		out := mustCall(t, s.handleAddCategory, map[string]interface{}{"name": "work"})
		category := out["category"].(map[string]interface{})
		assert.Equal(t, true, category["active"])
		assert.Equal(t, "office projects", category["description"])
	})

	t.Run("Other cannot be archived", func(t *testing.T) {
		_, err := callTool(t, s.handleArchiveCategory, map[string]interface{}{"category": "Other"})
		requireCode(t, err, ErrorCodeOtherNotArchivable)
	})
}

func TestProfileAndGenerateCategoriesTools(t *testing.T) {
	s := newTestServer(t)
	seedCategories(t, s)

	_, err := callTool(t, s.handleGenerateCategories, nil)
	requireCode(t, err, ErrorCodeNoProfile)

	profile := mustCall(t, s.handleUpdateProfile, map[string]interface{}{"name": "Ada", "bio": "I study at school and play the cello"})
	assert.Equal(t, "Ada", profile["name"])

	profile = mustCall(t, s.handleUpdateProfile, map[string]interface{}{"name": "Ada L."})
	assert.Equal(t, "Ada L.", profile["name"])
	assert.Equal(t, "I study at school and play the cello", profile["bio"])

	out := mustCall(t, s.handleGenerateCategories, nil)
	categories := out["categories"].([]interface{})
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.(map[string]interface{})["name"].(string)
	}
	assert.Equal(t, []string{"Class", "Music", "Personal", "Other"}, names)

	listed := mustCall(t, s.handleListCategories, map[string]interface{}{"include_archived": true})
	archived := listed["archived"].([]interface{})
	require.Len(t, archived, 1)
	assert.Equal(t, "Work", archived[0].(map[string]interface{})["name"])
}

func TestReindexAndStatusTools(t *testing.T) {
	s := newTestServer(t)
	seedCategories(t, s)
	addThought(t, s, "practice cello")
	addThought(t, s, "buy milk")

	t.Run("nothing stale", func(t *testing.T) {
		out := mustCall(t, s.handleReindex, nil)
		assert.Equal(t, float64(2), out["scanned"])
		assert.Equal(t, float64(0), out["reembedded"])
	})

	t.Run("forced", func(t *testing.T) {
		out := mustCall(t, s.handleReindex, map[string]interface{}{"force": true, "workers": float64(2)})
		assert.Equal(t, float64(2), out["reembedded"])
		assert.Equal(t, float64(0), out["failed"])
	})

	t.Run("workers out of range", func(t *testing.T) {
		_, err := callTool(t, s.handleReindex, map[string]interface{}{"workers": float64(0)})
		requireCode(t, err, ErrorCodeInvalidParams)
	})

	t.Run("status", func(t *testing.T) {
		out := mustCall(t, s.handleGetStatus, nil)
		counts := out["thoughts"].(map[string]interface{})
		assert.Equal(t, float64(2), counts["live"])
		categories := out["categories"].(map[string]interface{})
		assert.Equal(t, float64(3), categories["active"])
		embedding := out["embedding"].(map[string]interface{})
		assert.Equal(t, "keyword", embedding["provider"])
		assert.Equal(t, float64(3), embedding["dimension"])
		assert.Equal(t, map[string]interface{}{"3": float64(2)}, embedding["by_dimension"])
		assert.Contains(t, out, "last_thought_at")
	})
}

func TestToolError(t *testing.T) {
	err := toolError("boom", assert.AnError)
	requireCode(t, err, ErrorCodeInternalError)
	assert.Equal(t, "MCP error -32603: boom", err.Error())
}

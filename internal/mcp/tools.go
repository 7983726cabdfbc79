package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/jotdown/internal/indexer"
	"github.com/dshills/jotdown/internal/retrieval"
	"github.com/dshills/jotdown/internal/storage"
	"github.com/dshills/jotdown/internal/thoughts"
	"github.com/dshills/jotdown/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams         = -32602 // Invalid method parameters
	ErrorCodeInternalError         = -32603 // Internal JSON-RPC error
	ErrorCodeNotFound              = -32001 // Thought or category does not exist
	ErrorCodeReindexInProgress     = -32002 // Another reindex is already running
	ErrorCodeInvalidPattern        = -32003 // Literal query is not a valid expression
	ErrorCodeEmbeddingUnavailable  = -32004 // Embedding backend failed
	ErrorCodeGenerationUnavailable = -32005 // Generative backend failed or is not configured
	ErrorCodeCategoryExists        = -32006 // Active category with that name exists
	ErrorCodeOtherNotArchivable    = -32007 // Attempt to archive "Other"
	ErrorCodeNoProfile             = -32008 // Category generation without a bio
)

const (
	maxReportedErrors = 5
	maxReindexWorkers = 16
	timestampFormat   = time.RFC3339
)

// handleAddThought handles the add_thought tool invocation
func (s *Server) handleAddThought(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	content, err := requireString(args, "content")
	if err != nil {
		return nil, err
	}

	thought, err := s.service.CreateThought(ctx, content)
	if err != nil {
		return nil, toolError("failed to add thought", err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"thought": thoughtJSON(thought),
	})), nil
}

// handleEditThought handles the edit_thought tool invocation
func (s *Server) handleEditThought(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	id, err := requireString(args, "id")
	if err != nil {
		return nil, err
	}
	content, err := requireString(args, "content")
	if err != nil {
		return nil, err
	}

	thought, err := s.service.EditThought(ctx, id, content)
	if err != nil {
		return nil, toolError("failed to edit thought", err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"thought": thoughtJSON(thought),
	})), nil
}

// handleDeleteThoughts handles the delete_thoughts tool invocation
func (s *Server) handleDeleteThoughts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	ids := getStringSlice(args, "ids")
	if len(ids) == 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "ids parameter is required", map[string]interface{}{
			"param":  "ids",
			"reason": "missing or empty",
		})
	}

	deleted, err := s.service.DeleteThoughts(ctx, ids...)
	if err != nil {
		return nil, toolError("failed to delete thoughts", err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"requested": len(ids),
		"deleted":   deleted,
	})), nil
}

// handleListThoughts handles the list_thoughts tool invocation
func (s *Server) handleListThoughts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	limit := getIntDefault(args, "limit", 0)
	if limit < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit cannot be negative", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	list, err := s.service.ListThoughts(ctx, thoughts.ListOptions{
		Category: strings.TrimSpace(getStringDefault(args, "category", "")),
		Limit:    limit,
	})
	if err != nil {
		return nil, toolError("failed to list thoughts", err)
	}

	items := make([]map[string]interface{}, len(list))
	for i, thought := range list {
		items[i] = thoughtJSON(thought)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"count":    len(items),
		"thoughts": items,
	})), nil
}

// handleSearchThoughts handles the search_thoughts tool invocation
func (s *Server) handleSearchThoughts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	query, ok := args["query"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required", map[string]interface{}{
			"param":  "query",
			"reason": "missing",
		})
	}

	mode, err := retrieval.ParseMode(getStringDefault(args, "mode", ""))
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid mode", map[string]interface{}{
			"param":   "mode",
			"value":   args["mode"],
			"allowed": []string{string(retrieval.ModeLiteral), string(retrieval.ModeSemantic), string(retrieval.ModeAnswer)},
		})
	}

	limit := getIntDefault(args, "limit", 0)
	if limit < 0 || limit > retrieval.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 0 and %d", retrieval.MaxLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	response, err := s.service.SearchWithOptions(ctx, thoughts.SearchOptions{
		Query:    query,
		Mode:     mode,
		Limit:    limit,
		Category: strings.TrimSpace(getStringDefault(args, "category", "")),
	})
	if err != nil {
		return nil, toolError("search failed", err)
	}

	return mcp.NewToolResultText(formatJSON(searchResponseJSON(response))), nil
}

// handleExtractKeywords handles the extract_keywords tool invocation
func (s *Server) handleExtractKeywords(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keywords, err := s.service.Keywords(ctx)
	if err != nil {
		return nil, toolError("failed to extract keywords", err)
	}
	if keywords == nil {
		keywords = []string{}
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"count":    len(keywords),
		"keywords": keywords,
	})), nil
}

// handleReindex handles the reindex tool invocation
func (s *Server) handleReindex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	workers := getIntDefault(args, "workers", indexer.DefaultWorkers)
	if workers < 1 || workers > maxReindexWorkers {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("workers must be between 1 and %d", maxReindexWorkers), map[string]interface{}{
			"param": "workers",
			"value": workers,
		})
	}

	stats, err := s.service.Reindex(ctx, &indexer.Config{
		Workers:      workers,
		Force:        getBoolDefault(args, "force", false),
		Recategorize: getBoolDefault(args, "recategorize", false),
	})
	if err != nil {
		return nil, toolError("reindex failed", err)
	}

	response := map[string]interface{}{
		"scanned":       stats.Scanned,
		"reembedded":    stats.Reembedded,
		"recategorized": stats.Recategorized,
		"failed":        stats.Failed,
		"duration_ms":   stats.Duration.Milliseconds(),
	}
	if len(stats.ErrorMessages) > 0 {
		errorCount := len(stats.ErrorMessages)
		if errorCount > maxReportedErrors {
			response["errors"] = stats.ErrorMessages[:maxReportedErrors]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.service.Status(ctx)
	if err != nil {
		return nil, toolError("failed to get status", err)
	}

	dimensions := make(map[string]int, len(status.ByDimension))
	for dim, count := range status.ByDimension {
		dimensions[fmt.Sprintf("%d", dim)] = count
	}

	emb := s.service.Embedder()
	response := map[string]interface{}{
		"thoughts": map[string]interface{}{
			"live":    status.LiveThoughts,
			"deleted": status.DeletedThoughts,
		},
		"categories": map[string]interface{}{
			"active":   status.ActiveCategories,
			"archived": status.ArchivedCategories,
		},
		"embedding": map[string]interface{}{
			"provider":     emb.Provider(),
			"model":        emb.Model(),
			"dimension":    emb.Dimension(),
			"by_dimension": dimensions,
			"threshold":    s.service.Categorizer().Threshold(),
		},
		"database_size_mb": fmt.Sprintf("%.2f", status.DatabaseSizeMB),
	}
	if !status.LastThoughtAt.IsZero() {
		response["last_thought_at"] = status.LastThoughtAt.Format(timestampFormat)
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// toolError maps a service failure to its MCP error code
func toolError(message string, err error) error {
	code := ErrorCodeInternalError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		code = ErrorCodeNotFound
	case errors.Is(err, types.ErrEmptyContent),
		errors.Is(err, types.ErrContentTooLong),
		errors.Is(err, types.ErrEmptyName),
		errors.Is(err, types.ErrEmptyDescription),
		errors.Is(err, retrieval.ErrUnknownMode):
		code = ErrorCodeInvalidParams
	case errors.Is(err, types.ErrInvalidPattern):
		code = ErrorCodeInvalidPattern
	case errors.Is(err, types.ErrEmbeddingUnavailable):
		code = ErrorCodeEmbeddingUnavailable
	case errors.Is(err, types.ErrGenerationUnavailable):
		code = ErrorCodeGenerationUnavailable
	case errors.Is(err, types.ErrCategoryExists):
		code = ErrorCodeCategoryExists
	case errors.Is(err, types.ErrOtherNotArchivable):
		code = ErrorCodeOtherNotArchivable
	case errors.Is(err, types.ErrNoProfile):
		code = ErrorCodeNoProfile
	case errors.Is(err, indexer.ErrReindexInProgress):
		code = ErrorCodeReindexInProgress
	}

	return newMCPError(code, message, map[string]interface{}{
		"error": err.Error(),
	})
}

// arguments returns the call arguments; tools without parameters may receive none
func arguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, nil
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	return args, nil
}

// requireString extracts a non-blank string parameter
func requireString(args map[string]interface{}, key string) (string, error) {
	val, ok := args[key].(string)
	if !ok || strings.TrimSpace(val) == "" {
		return "", newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]interface{}{
			"param":  key,
			"reason": "missing or empty",
		})
	}
	return val, nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter, skipping blank and non-string items.
// A single string is accepted as a one-element list.
func getStringSlice(args map[string]interface{}, key string) []string {
	var out []string
	switch val := args[key].(type) {
	case string:
		if strings.TrimSpace(val) != "" {
			out = append(out, strings.TrimSpace(val))
		}
	case []string:
		for _, s := range val {
			if strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case []interface{}:
		for _, item := range val {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	}
	return out
}

// Response shaping

func thoughtJSON(t *types.Thought) map[string]interface{} {
	return map[string]interface{}{
		"id":          t.ID,
		"content":     t.Content,
		"category":    t.CategoryName(),
		"category_id": t.CategoryID,
		"created_at":  t.CreatedAt.Format(timestampFormat),
		"updated_at":  t.UpdatedAt.Format(timestampFormat),
	}
}

func resultsJSON(results []types.SearchResult) []map[string]interface{} {
	out := make([]map[string]interface{}, len(results))
	for i := range results {
		item := thoughtJSON(&results[i].Thought)
		item["rank"] = results[i].Rank
		item["score"] = results[i].Score
		out[i] = item
	}
	return out
}

func searchResponseJSON(r *retrieval.Response) map[string]interface{} {
	response := map[string]interface{}{
		"mode":        string(r.Mode),
		"query":       r.Query,
		"duration_ms": r.Duration.Milliseconds(),
	}
	if r.Skipped > 0 {
		response["skipped"] = r.Skipped
	}

	if r.Mode == retrieval.ModeAnswer {
		keywords := r.Keywords
		if keywords == nil {
			keywords = []string{}
		}
		response["answer"] = r.Answer
		response["sources"] = resultsJSON(r.Sources)
		response["keywords"] = keywords
		return response
	}

	response["count"] = len(r.Results)
	response["results"] = resultsJSON(r.Results)
	return response
}

func categoryJSON(c *types.Category) map[string]interface{} {
	return map[string]interface{}{
		"id":          c.ID,
		"name":        c.Name,
		"description": c.Description,
		"active":      c.IsActive,
	}
}

package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

// noArgs is the input schema for tools without parameters
func noArgs() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: map[string]interface{}{},
	}
}

// addThoughtTool returns the tool definition for add_thought
func addThoughtTool() mcp.Tool {
	return mcp.Tool{
		Name:        "add_thought",
		Description: "Store a short thought and file it under the best matching category",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"content": stringProp("Thought text (trimmed, at most the configured length)"),
			},
			Required: []string{"content"},
		},
	}
}

// editThoughtTool returns the tool definition for edit_thought
func editThoughtTool() mcp.Tool {
	return mcp.Tool{
		Name:        "edit_thought",
		Description: "Replace a thought's text; its embedding and category are recomputed",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id":      stringProp("Thought ID"),
				"content": stringProp("New thought text"),
			},
			Required: []string{"id", "content"},
		},
	}
}

// deleteThoughtsTool returns the tool definition for delete_thoughts
func deleteThoughtsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_thoughts",
		Description: "Delete one or more thoughts",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"ids": map[string]interface{}{
					"type":        "array",
					"description": "Thought IDs to delete",
					"items":       map[string]interface{}{"type": "string"},
					"minItems":    1,
				},
			},
			Required: []string{"ids"},
		},
	}
}

// listThoughtsTool returns the tool definition for list_thoughts
func listThoughtsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_thoughts",
		Description: "List thoughts newest first, optionally within one category",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"category": stringProp("Category name (case-insensitive)"),
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of thoughts to return (0 for all)",
					"default":     0,
					"minimum":     0,
				},
			},
		},
	}
}

// searchThoughtsTool returns the tool definition for search_thoughts
func searchThoughtsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_thoughts",
		Description: "Search thoughts by pattern, by meaning, or ask a question answered from them",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": stringProp("Search text. In literal mode a case-insensitive regular expression"),
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "literal (pattern match), semantic (similarity ranking), or answer (generated answer with sources)",
					"enum":        []string{"literal", "semantic", "answer"},
					"default":     "literal",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results (semantic and answer default to 5, literal to all)",
					"minimum":     0,
					"maximum":     100,
				},
				"category": stringProp("Only search thoughts in this category"),
			},
			Required: []string{"query"},
		},
	}
}

// extractKeywordsTool returns the tool definition for extract_keywords
func extractKeywordsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "extract_keywords",
		Description: "Extract the keyword cloud across all stored thoughts",
		InputSchema: noArgs(),
	}
}

// listCategoriesTool returns the tool definition for list_categories
func listCategoriesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_categories",
		Description: "List active categories with their most recent thoughts",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"include_archived": map[string]interface{}{
					"type":        "boolean",
					"description": "Also list archived categories",
					"default":     false,
				},
				"snippets": map[string]interface{}{
					"type":        "integer",
					"description": "Recent thoughts shown per active category",
					"default":     3,
					"minimum":     0,
				},
			},
		},
	}
}

// addCategoryTool returns the tool definition for add_category
func addCategoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "add_category",
		Description: "Create a category, or reactivate an archived one with the same name",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name":        stringProp("Category name (unique, case-insensitive)"),
				"description": stringProp("What belongs in the category; drives categorization"),
			},
			Required: []string{"name"},
		},
	}
}

// updateCategoryTool returns the tool definition for update_category
func updateCategoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "update_category",
		Description: "Change a category's description",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"category":    stringProp("Category ID or name"),
				"description": stringProp("New description"),
			},
			Required: []string{"category", "description"},
		},
	}
}

// archiveCategoryTool returns the tool definition for archive_category
func archiveCategoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "archive_category",
		Description: "Archive a category; its thoughts keep their assignment",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"category": stringProp("Category ID or name"),
			},
			Required: []string{"category"},
		},
	}
}

// generateCategoriesTool returns the tool definition for generate_categories
func generateCategoriesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "generate_categories",
		Description: "Replace the active categories with a set generated from the profile bio",
		InputSchema: noArgs(),
	}
}

// updateProfileTool returns the tool definition for update_profile
func updateProfileTool() mcp.Tool {
	return mcp.Tool{
		Name:        "update_profile",
		Description: "Set the profile name and bio used for category generation. Omitted fields keep their value",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": stringProp("Display name"),
				"bio":  stringProp("Free-text description of interests and activities"),
			},
		},
	}
}

// reindexTool returns the tool definition for reindex
func reindexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "reindex",
		Description: "Re-embed thoughts whose vectors do not match the current embedding provider",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "Re-embed every thought",
					"default":     false,
				},
				"recategorize": map[string]interface{}{
					"type":        "boolean",
					"description": "Re-run categorization on re-embedded thoughts",
					"default":     false,
				},
				"workers": map[string]interface{}{
					"type":        "integer",
					"description": "Concurrent embedding batches",
					"minimum":     1,
					"maximum":     16,
				},
			},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report stored thought and category counts, embedding dimensions and database size",
		InputSchema: noArgs(),
	}
}

package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/jotdown/internal/thoughts"
	"github.com/dshills/jotdown/pkg/types"
)

// handleListCategories handles the list_categories tool invocation
func (s *Server) handleListCategories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	snippets := getIntDefault(args, "snippets", thoughts.DefaultSnippetCount)
	if snippets < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "snippets cannot be negative", map[string]interface{}{
			"param": "snippets",
			"value": snippets,
		})
	}

	active, err := s.service.ActiveCategories(ctx)
	if err != nil {
		return nil, toolError("failed to list categories", err)
	}

	items := make([]map[string]interface{}, len(active))
	for i := range active {
		item := categoryJSON(&active[i])
		recent := []string{}
		if snippets > 0 {
			recent, err = s.service.RecentSnippets(ctx, active[i].Name, snippets)
			if err != nil {
				return nil, toolError("failed to load recent thoughts", err)
			}
		}
		item["recent"] = recent
		items[i] = item
	}

	response := map[string]interface{}{
		"count":      len(items),
		"categories": items,
	}

	if getBoolDefault(args, "include_archived", false) {
		archived, err := s.service.ArchivedCategories(ctx)
		if err != nil {
			return nil, toolError("failed to list archived categories", err)
		}
		archivedItems := make([]map[string]interface{}, len(archived))
		for i := range archived {
			archivedItems[i] = categoryJSON(&archived[i])
		}
		response["archived"] = archivedItems
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleAddCategory handles the add_category tool invocation
func (s *Server) handleAddCategory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	name, err := requireString(args, "name")
	if err != nil {
		return nil, err
	}

	category, err := s.service.AddCategory(ctx, name, getStringDefault(args, "description", ""))
	if err != nil {
		return nil, toolError(fmt.Sprintf("failed to add category %q", strings.TrimSpace(name)), err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"category": categoryJSON(category),
	})), nil
}

// handleUpdateCategory handles the update_category tool invocation
func (s *Server) handleUpdateCategory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	ref, err := requireString(args, "category")
	if err != nil {
		return nil, err
	}
	description, err := requireString(args, "description")
	if err != nil {
		return nil, err
	}

	category, err := s.service.FindCategory(ctx, strings.TrimSpace(ref))
	if err != nil {
		return nil, toolError("category not found", err)
	}

	category, err = s.service.UpdateCategoryDescription(ctx, category.ID, description)
	if err != nil {
		return nil, toolError("failed to update category", err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"category": categoryJSON(category),
	})), nil
}

// handleArchiveCategory handles the archive_category tool invocation
func (s *Server) handleArchiveCategory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	ref, err := requireString(args, "category")
	if err != nil {
		return nil, err
	}

	category, err := s.service.FindCategory(ctx, strings.TrimSpace(ref))
	if err != nil {
		return nil, toolError("category not found", err)
	}

	category, err = s.service.ArchiveCategory(ctx, category.ID)
	if err != nil {
		return nil, toolError("failed to archive category", err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"category": categoryJSON(category),
	})), nil
}

// handleGenerateCategories handles the generate_categories tool invocation
func (s *Server) handleGenerateCategories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	categories, err := s.service.GenerateCategories(ctx)
	if err != nil {
		return nil, toolError("failed to generate categories", err)
	}

	items := make([]map[string]interface{}, len(categories))
	for i := range categories {
		items[i] = categoryJSON(&categories[i])
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"count":      len(items),
		"categories": items,
	})), nil
}

// handleUpdateProfile handles the update_profile tool invocation
func (s *Server) handleUpdateProfile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	current, err := s.service.GetProfile(ctx)
	if err != nil {
		return nil, toolError("failed to load profile", err)
	}

	name := getStringDefault(args, "name", current.Name)
	bio := getStringDefault(args, "bio", current.Bio)

	var profile *types.Profile
	if name == current.Name && bio == current.Bio {
		profile = current
	} else if profile, err = s.service.UpdateProfile(ctx, name, bio); err != nil {
		return nil, toolError("failed to update profile", err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"name": strings.TrimSpace(profile.Name),
		"bio":  strings.TrimSpace(profile.Bio),
	})), nil
}

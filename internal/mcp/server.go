package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/dshills/jotdown/internal/thoughts"
)

const (
	// ServerName is the MCP server name
	ServerName = "jotdown"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server exposes a thoughts.Service over MCP
type Server struct {
	mcp     *server.MCPServer
	service *thoughts.Service
	logger  zerolog.Logger
}

// NewServer creates a new MCP server instance over service.
// The caller owns the service's storage and closes it after Serve returns.
func NewServer(service *thoughts.Service, logger zerolog.Logger) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("thoughts service is required")
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:     mcpServer,
		service: service,
		logger:  logger,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info().Str("server", ServerName).Str("version", ServerVersion).Msg("serving MCP on stdio")
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	// Thoughts
	s.mcp.AddTool(addThoughtTool(), s.handleAddThought)
	s.mcp.AddTool(editThoughtTool(), s.handleEditThought)
	s.mcp.AddTool(deleteThoughtsTool(), s.handleDeleteThoughts)
	s.mcp.AddTool(listThoughtsTool(), s.handleListThoughts)

	// Retrieval
	s.mcp.AddTool(searchThoughtsTool(), s.handleSearchThoughts)
	s.mcp.AddTool(extractKeywordsTool(), s.handleExtractKeywords)

	// Categories and profile
	s.mcp.AddTool(listCategoriesTool(), s.handleListCategories)
	s.mcp.AddTool(addCategoryTool(), s.handleAddCategory)
	s.mcp.AddTool(updateCategoryTool(), s.handleUpdateCategory)
	s.mcp.AddTool(archiveCategoryTool(), s.handleArchiveCategory)
	s.mcp.AddTool(generateCategoriesTool(), s.handleGenerateCategories)
	s.mcp.AddTool(updateProfileTool(), s.handleUpdateProfile)

	// Maintenance
	s.mcp.AddTool(reindexTool(), s.handleReindex)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)

	return nil
}

package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/cpp-cortex/internal/storage"
)

// AddCppStatsTool registers the cpp_stats tool with an MCP server.
func AddCppStatsTool(s *server.MCPServer, srv *Server) {
	tool := mcp.NewTool(
		"cpp_stats",
		mcp.WithDescription("Summarize the C++ index: entity counts by type, tracked files, relationships, store size, and when the index was last updated."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createCppStatsHandler(srv))
}

// createCppStatsHandler creates the handler function for the cpp_stats tool.
func createCppStatsHandler(srv *Server) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := srv.reader.GetStats()
		if err != nil {
			return nil, fmt.Errorf("stats query failed: %w", err)
		}

		response := &CppStatsResponse{Stats: stats}

		// Metadata reads are best-effort; the stats still stand without them.
		if version, err := storage.GetSchemaVersion(srv.db); err == nil {
			response.SchemaVersion = version
		}
		if name, err := storage.GetMetadata(srv.db, storage.MetaProjectName); err == nil {
			response.ProjectName = name
		}
		if runID, err := storage.GetMetadata(srv.db, storage.MetaLastRunID); err == nil {
			response.LastRunID = runID
		}
		if runAt, err := storage.GetMetadata(srv.db, storage.MetaLastRunAt); err == nil {
			response.LastRunAt = runAt
		}

		return marshalToolResponse(response)
	}
}

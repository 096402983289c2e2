package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/cpp-cortex/internal/graph"
)

// AddCppHierarchyTool registers the cpp_hierarchy tool with an MCP server.
func AddCppHierarchyTool(s *server.MCPServer, srv *Server) {
	tool := mcp.NewTool(
		"cpp_hierarchy",
		mcp.WithDescription("Walk the inheritance hierarchy of an indexed C++ class. Supports directions: derived (who inherits from this class), bases (what this class inherits from), both."),
		mcp.WithString("entity",
			mcp.Required(),
			mcp.Description("Class or struct name (e.g., 'Shape')")),
		mcp.WithString("namespace",
			mcp.Description("Exact namespace of the class. Empty string means the global scope; omit to match any namespace.")),
		mcp.WithString("direction",
			mcp.Description("Walk direction: 'derived', 'bases', or 'both' (default: both)")),
		mcp.WithNumber("depth",
			mcp.Description("Traversal depth in hops (default: 1, max: 10)")),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of results to return (default: 100, max: 500)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createCppHierarchyHandler(srv))
}

// createCppHierarchyHandler creates the handler function for the cpp_hierarchy tool.
func createCppHierarchyHandler(srv *Server) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}

		name, err := parseStringArg(argsMap, "entity", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		direction, _ := parseStringArg(argsMap, "direction", false)
		validDirections := map[string]graph.Direction{
			"":        graph.DirectionBoth,
			"derived": graph.DirectionDerived,
			"bases":   graph.DirectionBases,
			"both":    graph.DirectionBoth,
		}
		graphDirection, valid := validDirections[direction]
		if !valid {
			return mcp.NewToolResultError(fmt.Sprintf("invalid direction: %s (must be one of: derived, bases, both)", direction)), nil
		}

		req := &graph.QueryRequest{
			Name:       name,
			Namespace:  parseStringArgPtr(argsMap, "namespace"),
			Direction:  graphDirection,
			Depth:      parseClampedInt(argsMap, "depth", graph.DefaultDepth, 1, graph.MaxDepth),
			MaxResults: parseClampedInt(argsMap, "max_results", graph.DefaultMaxResults, 1, graph.MaxResultsLimit),
		}

		srv.refreshIfStale(ctx)

		response, err := srv.hierarchy.Query(ctx, req)
		if err != nil {
			if errors.Is(err, graph.ErrNotFound) {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return nil, fmt.Errorf("hierarchy query failed: %w", err)
		}

		return marshalToolResponse(response)
	}
}

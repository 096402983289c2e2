package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/cpp-cortex/internal/storage"
)

// AddCppSearchTool registers the cpp_search tool with an MCP server.
// This function is composable - it can be combined with other tool registrations.
func AddCppSearchTool(s *server.MCPServer, srv *Server) {
	tool := mcp.NewTool(
		"cpp_search",
		mcp.WithDescription("Search indexed C++ entities (classes, enums, functions, typedefs) by name. Exact mode matches name substrings with optional filters; fuzzy mode tolerates typos and partial names."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Entity name or name fragment (e.g., 'Shape', 'geo::Shape', 'parse')")),
		mcp.WithString("type",
			mcp.Description("Filter by entity type: 'class', 'enum', 'function', or 'typedef'")),
		mcp.WithString("namespace",
			mcp.Description("Filter by exact namespace (e.g., 'geo::detail'). Omit to search all namespaces.")),
		mcp.WithString("decl_type",
			mcp.Description("Filter by declaration kind: 'declaration', 'definition', or 'forward_declaration' (exact mode only)")),
		mcp.WithString("file",
			mcp.Description("Filter by file path substring (exact mode only)")),
		mcp.WithBoolean("fuzzy",
			mcp.Description("Use fuzzy name matching via the in-memory symbol index (default: false)")),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results to return (1-100, default: 25)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createCppSearchHandler(srv))
}

// createCppSearchHandler creates the handler function for the cpp_search tool.
func createCppSearchHandler(srv *Server) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}

		query, err := parseStringArg(argsMap, "query", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		entityType, _ := parseStringArg(argsMap, "type", false)
		if !validEntityType(entityType) {
			return mcp.NewToolResultError(fmt.Sprintf("invalid type: %s (must be one of: class, enum, function, typedef)", entityType)), nil
		}

		namespace, _ := parseStringArg(argsMap, "namespace", false)
		declType, _ := parseStringArg(argsMap, "decl_type", false)
		filePattern, _ := parseStringArg(argsMap, "file", false)
		fuzzy := parseBoolArg(argsMap, "fuzzy", false)
		limit := parseClampedInt(argsMap, "limit", 25, 1, 100)

		response := &CppSearchResponse{Query: query, Fuzzy: fuzzy}

		if fuzzy {
			srv.refreshIfStale(ctx)

			results, err := srv.symbols.Search(ctx, query, &SymbolSearchOptions{
				EntityType: entityType,
				Namespace:  namespace,
				Limit:      limit,
			})
			if err != nil {
				return nil, fmt.Errorf("symbol search failed: %w", err)
			}
			response.Results = results
		} else {
			var types []string
			if entityType != "" {
				types = []string{entityType}
			}
			entities, err := srv.reader.SearchEntities(storage.SearchFilter{
				NamePattern: query,
				Types:       types,
				Namespace:   namespace,
				DeclType:    declType,
				FilePattern: filePattern,
				Limit:       limit,
			})
			if err != nil {
				return nil, fmt.Errorf("entity search failed: %w", err)
			}

			response.Results = make([]EntityResult, len(entities))
			for i := range entities {
				response.Results[i] = entityToResult(&entities[i])
			}
		}

		response.Total = len(response.Results)
		return marshalToolResponse(response)
	}
}

func validEntityType(entityType string) bool {
	switch entityType {
	case "", storage.EntityClass, storage.EntityEnum, storage.EntityFunction, storage.EntityTypedef:
		return true
	}
	return false
}

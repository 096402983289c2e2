package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/cpp-cortex/internal/storage"
)

// AddCppMembersTool registers the cpp_members tool with an MCP server.
func AddCppMembersTool(s *server.MCPServer, srv *Server) {
	tool := mcp.NewTool(
		"cpp_members",
		mcp.WithDescription("List the fields and methods of an indexed C++ class or struct, with visibility, types, and method signatures."),
		mcp.WithString("entity",
			mcp.Required(),
			mcp.Description("Class or struct name (e.g., 'Shape')")),
		mcp.WithString("namespace",
			mcp.Description("Exact namespace of the class. Empty string means the global scope; omit to match any namespace.")),
		mcp.WithString("member_type",
			mcp.Description("Filter by member kind: 'field' or 'method'. Omit for both.")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createCppMembersHandler(srv))
}

// createCppMembersHandler creates the handler function for the cpp_members tool.
func createCppMembersHandler(srv *Server) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}

		name, err := parseStringArg(argsMap, "entity", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		memberType, _ := parseStringArg(argsMap, "member_type", false)
		switch memberType {
		case "", storage.MemberField, storage.MemberMethod:
		default:
			return mcp.NewToolResultError(fmt.Sprintf("invalid member_type: %s (must be 'field' or 'method')", memberType)), nil
		}

		namespace := parseStringArgPtr(argsMap, "namespace")

		entity, err := srv.reader.FindEntityByName(name, namespace, storage.EntityClass)
		if err != nil {
			return nil, fmt.Errorf("entity lookup failed: %w", err)
		}
		if entity == nil {
			return mcp.NewToolResultError(fmt.Sprintf("class not found: %s", name)), nil
		}

		members, err := srv.reader.GetEntityMembers(entity.ID, memberType)
		if err != nil {
			return nil, fmt.Errorf("member lookup failed: %w", err)
		}

		response := &CppMembersResponse{
			Entity:  entityToResult(entity),
			Total:   len(members),
			Members: make([]MemberResult, len(members)),
		}
		for i := range members {
			response.Members[i] = memberToResult(&members[i])
		}

		return marshalToolResponse(response)
	}
}

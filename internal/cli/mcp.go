package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/cpp-cortex/internal/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for C++ code navigation",
	Long: `Start the Model Context Protocol (MCP) server that lets LLM-powered coding
assistants query the index.

The MCP server:
- Answers from the SQLite index store built by 'cpp-cortex index'
- Provides the cpp_search, cpp_members, cpp_hierarchy, and cpp_stats tools
- Communicates via stdio (standard MCP transport)

Example:
  cpp-cortex mcp`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rootDir, err := projectRoot()
	if err != nil {
		return err
	}

	// Load configuration from .cpp-cortex/config.yml
	cfg, err := loadProjectConfig(rootDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	db, storePath, err := openStore(rootDir, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// Startup information goes to stderr; stdout carries the MCP transport
	fmt.Fprintf(os.Stderr, "cpp-cortex MCP server %s\n", Version)
	fmt.Fprintf(os.Stderr, "Store: %s\n\n", storePath)

	server, err := mcp.NewServer(ctx, db, Version)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer server.Close()

	// Serve (blocks until shutdown)
	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}

	return nil
}

package mcp

// Implementation Plan:
// 1. Server struct owning the store handle, searchers, and mcp-go server
// 2. NewServer - builds searchers over the store, registers the four tools
// 3. Serve - stdio loop with graceful shutdown on SIGINT/SIGTERM
// 4. refreshIfStale - rebuild searchers when the index run id moves

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/cpp-cortex/internal/graph"
	"github.com/mvp-joe/cpp-cortex/internal/storage"
)

// Server manages the MCP server lifecycle over an opened index store.
type Server struct {
	db        *sql.DB
	reader    *storage.EntityReader
	hierarchy graph.Searcher
	symbols   SymbolSearcher
	mcp       *server.MCPServer

	mu        sync.Mutex // Serializes staleness refreshes
	lastRunID string
}

// NewServer creates an MCP server exposing the C++ index tools. The caller
// owns db and is responsible for closing it.
func NewServer(ctx context.Context, db *sql.DB, version string) (*Server, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle is required")
	}

	hierarchy, err := graph.NewSearcher(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create hierarchy searcher: %w", err)
	}

	symbols, err := NewSymbolSearcher(ctx, db)
	if err != nil {
		hierarchy.Close()
		return nil, fmt.Errorf("failed to create symbol searcher: %w", err)
	}

	mcpServer := server.NewMCPServer(
		"cpp-cortex",
		version,
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		db:        db,
		reader:    storage.NewEntityReader(db),
		hierarchy: hierarchy,
		symbols:   symbols,
		mcp:       mcpServer,
	}

	// Searchers were just built, so the current run id is their baseline.
	if runID, err := storage.GetMetadata(db, storage.MetaLastRunID); err == nil {
		srv.lastRunID = runID
	}

	AddCppSearchTool(mcpServer, srv)
	AddCppMembersTool(mcpServer, srv)
	AddCppHierarchyTool(mcpServer, srv)
	AddCppStatsTool(mcpServer, srv)

	return srv, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting MCP server on stdio...")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
		}
	}()

	select {
	case <-sigCh:
		log.Printf("Received shutdown signal, stopping gracefully...")
		cancel()
		return nil
	case err := <-errCh:
		cancel()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// refreshIfStale rebuilds the in-memory searchers when an index run has
// completed since they were last loaded. Tool handlers call this before
// answering from in-memory state, so a long-running server tracks the
// store without a file watcher.
func (s *Server) refreshIfStale(ctx context.Context) {
	runID, err := storage.GetMetadata(s.db, storage.MetaLastRunID)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if runID == s.lastRunID {
		return
	}

	if err := s.symbols.Rebuild(ctx); err != nil {
		log.Printf("Warning: failed to rebuild symbol index: %v", err)
		return
	}
	if err := s.hierarchy.Reload(ctx); err != nil {
		log.Printf("Warning: failed to reload hierarchy graph: %v", err)
		return
	}
	s.lastRunID = runID
}

// Close releases all resources except db, which the caller owns.
func (s *Server) Close() error {
	if s.hierarchy != nil {
		s.hierarchy.Close()
	}
	if s.symbols != nil {
		return s.symbols.Close()
	}
	return nil
}

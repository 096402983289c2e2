package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/cpp-cortex/internal/indexer"
)

var (
	rebuildFlag bool
	quietFlag   bool
	watchFlag   bool
)

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the C++ codebase into the local store",
	Long: `Index parses the C++ sources under the current directory and stores the
declared entities (classes, enums, functions, typedefs), their members,
and inheritance relationships in .cpp-cortex/index.db.

Runs are incremental: only files whose mtime or content hash changed
since the last run are reparsed. Files that left the tree are pruned
from the store.

Examples:
  # Index the current directory incrementally
  cpp-cortex index

  # Discard the store and reparse everything
  cpp-cortex index --rebuild

  # Index without progress bars
  cpp-cortex index --quiet

  # Keep running and reindex on file changes
  cpp-cortex index --watch
`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVar(&rebuildFlag, "rebuild", false, "Discard the store and reparse every file")
	indexCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable progress bars and non-error output")
	indexCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch for file changes and reindex incrementally")
}

func runIndex(cmd *cobra.Command, args []string) error {
	// Set up context with cancellation for Ctrl+C
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupted! Cancelling indexing...")
		cancel()
	}()

	rootDir, err := projectRoot()
	if err != nil {
		return err
	}

	// Load configuration from .cpp-cortex/config.yml
	cfg, err := loadProjectConfig(rootDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	indexerConfig := cfg.ToIndexerConfig(rootDir)

	// Ensure the store directory exists
	if err := os.MkdirAll(filepath.Dir(indexerConfig.StorePath), 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	// Create indexer with progress reporting
	progress := NewCLIProgressReporter(quietFlag)
	idx, err := indexer.NewWithProgress(indexerConfig, progress)
	if err != nil {
		return fmt.Errorf("failed to create indexer: %w", err)
	}
	defer idx.Close()

	report, err := idx.Build(ctx, rebuildFlag)
	if err != nil {
		// Check if it was a cancellation
		if ctx.Err() != nil {
			return fmt.Errorf("indexing cancelled")
		}
		return fmt.Errorf("indexing failed: %w", err)
	}

	// Print summary (if not quiet, OnComplete already printed it)
	if quietFlag {
		fmt.Printf("Indexed %d file(s): %d entities in %.2fs\n",
			report.ParsedFiles, report.EntitiesStored, report.Duration.Seconds())
	}

	if !watchFlag {
		return nil
	}

	// Watch mode: stay resident and reindex on changes (blocks until cancelled)
	if !quietFlag {
		log.Println("Watching for changes (Ctrl+C to stop)...")
	}
	if err := idx.Watch(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("watch mode failed: %w", err)
	}
	if !quietFlag {
		log.Println("Watch mode stopped")
	}

	return nil
}

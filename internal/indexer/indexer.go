package indexer

import (
	"context"
	"path/filepath"
	"time"

	"github.com/mvp-joe/cpp-cortex/internal/indexer/parsers"
)

// Indexer provides the main interface for building and maintaining the index.
type Indexer interface {
	// Build indexes the configured root. With rebuild, the store contents are
	// discarded and every candidate file is parsed; without it, only files
	// the store reports as changed are reparsed. Returns a report of what
	// the run did.
	Build(ctx context.Context, rebuild bool) (*Report, error)

	// Update is Build without rebuild.
	Update(ctx context.Context) (*Report, error)

	// Watch starts watching for file changes and updates incrementally.
	// Blocks until context is cancelled.
	Watch(ctx context.Context) error

	// Close releases all resources held by the indexer.
	Close() error
}

// Parser extracts declared entities from C++ source files.
type Parser interface {
	// ParseFile reads and parses a source file from disk.
	ParseFile(ctx context.Context, filePath string) *parsers.Result

	// ParseSource parses source text already in memory. filePath labels the
	// result and decides translation-unit handling by extension.
	ParseSource(ctx context.Context, filePath string, source []byte) *parsers.Result

	// Extensions returns the file extensions this parser accepts.
	Extensions() []string

	// Language returns the parser's language name.
	Language() string
}

// Report summarizes one build or update run.
type Report struct {
	// RunID uniquely identifies this run; it is also recorded in the store's
	// index_metadata.
	RunID string

	TotalFiles   int // candidate files discovered
	ParsedFiles  int // files actually (re)parsed this run
	FailedFiles  int // files that could not be read or parsed
	SkippedFiles int // files skipped as unchanged
	DeletedFiles int // tracked files pruned because they left the tree

	EntitiesStored      int // entities stored this run
	RelationshipsLinked int // inheritance edges linked this run

	Duration time.Duration
}

// Config contains configuration for the indexer.
type Config struct {
	// Root directory of the codebase to index
	RootDir string

	// Paths configuration
	IncludePatterns []string
	IgnorePatterns  []string

	// Store location, usually <root>/.cpp-cortex/index.db
	StorePath string

	// Entity kinds to extract; empty means all of them
	EntityKinds []string
}

// DefaultStoreFile is the database file name inside StoreDirName.
const DefaultStoreFile = "index.db"

// DefaultConfig returns a configuration with sensible defaults. Include
// patterns are derived from the extensions the C++ parser accepts.
func DefaultConfig(rootDir string) *Config {
	includePatterns := []string{}
	for _, ext := range parsers.NewCppParser().Extensions() {
		includePatterns = append(includePatterns, "**/*"+ext)
	}

	return &Config{
		RootDir:         rootDir,
		IncludePatterns: includePatterns,
		IgnorePatterns: []string{
			"build/**",
			"cmake-build-*/**",
			"out/**",
			"third_party/**",
			"external/**",
			"vendor/**",
			".git/**",
			"node_modules/**",
		},
		StorePath: filepath.Join(rootDir, StoreDirName, DefaultStoreFile),
	}
}

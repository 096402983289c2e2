package indexer

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/mvp-joe/cpp-cortex/internal/indexer/parsers"
	"github.com/mvp-joe/cpp-cortex/internal/storage"
)

// indexer implements the Indexer interface.
type indexer struct {
	config    *Config
	parser    Parser
	discovery *FileDiscovery
	detector  ChangeDetector
	linker    *Linker

	db         *sql.DB
	ownsDB     bool
	entities   *storage.EntityWriter
	files      *storage.FileWriter
	fileReader *storage.FileReader

	progress ProgressReporter
}

// New creates a new indexer instance. It opens (and owns) the store at
// config.StorePath.
func New(config *Config) (Indexer, error) {
	return NewWithProgress(config, &NoOpProgressReporter{})
}

// NewWithProgress creates a new indexer instance with a custom progress
// reporter. The indexer opens and owns the store at config.StorePath.
func NewWithProgress(config *Config, progress ProgressReporter) (Indexer, error) {
	db, err := storage.Open(config.StorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	idx, err := newIndexer(config, db, true, progress)
	if err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

// NewWithDB creates a new indexer instance on a pre-opened store connection.
// The indexer will NOT close the connection; the caller is responsible for
// cleanup.
func NewWithDB(config *Config, db *sql.DB, progress ProgressReporter) (Indexer, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return newIndexer(config, db, false, progress)
}

func newIndexer(config *Config, db *sql.DB, ownsDB bool, progress ProgressReporter) (*indexer, error) {
	if config.RootDir == "" {
		config.RootDir = "."
	}

	if err := storage.Initialize(db, filepath.Base(absOrSelf(config.RootDir))); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	discovery, err := NewFileDiscovery(config.RootDir, config.IncludePatterns, config.IgnorePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to create file discovery: %w", err)
	}

	fileReader := storage.NewFileReader(db)

	linker, err := NewLinker(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create linker: %w", err)
	}

	if progress == nil {
		progress = &NoOpProgressReporter{}
	}

	return &indexer{
		config:     config,
		parser:     parsers.NewCppParser(config.EntityKinds...),
		discovery:  discovery,
		detector:   NewChangeDetector(config.RootDir, fileReader, discovery),
		linker:     linker,
		db:         db,
		ownsDB:     ownsDB,
		entities:   storage.NewEntityWriter(db),
		files:      storage.NewFileWriter(db),
		fileReader: fileReader,
		progress:   progress,
	}, nil
}

// absOrSelf resolves rootDir to an absolute path for naming purposes,
// falling back to the given value when resolution fails.
func absOrSelf(rootDir string) string {
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return rootDir
	}
	return abs
}

// Close releases all resources held by the indexer.
func (idx *indexer) Close() error {
	idx.linker.Close()
	if idx.ownsDB && idx.db != nil {
		return idx.db.Close()
	}
	return nil
}

// Build indexes the configured root.
func (idx *indexer) Build(ctx context.Context, rebuild bool) (*Report, error) {
	startTime := time.Now()
	report := &Report{RunID: uuid.NewString()}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if rebuild {
		log.Println("Rebuilding index from scratch...")
		if err := storage.ResetSchema(idx.db); err != nil {
			return nil, fmt.Errorf("failed to reset store: %w", err)
		}
		if err := storage.Initialize(idx.db, filepath.Base(absOrSelf(idx.config.RootDir))); err != nil {
			return nil, fmt.Errorf("failed to reinitialize store: %w", err)
		}
	}

	// Phase 1: Discovery and change detection
	idx.progress.OnDiscoveryStart()
	var changes *ChangeSet
	var err error
	if rebuild {
		changes, err = idx.detector.SnapshotAll(ctx)
	} else {
		changes, err = idx.detector.DetectChanges(ctx, nil)
	}
	if err != nil {
		return nil, err
	}

	report.TotalFiles = len(changes.Added) + len(changes.Modified) + len(changes.Unchanged) + len(changes.Failed)
	report.SkippedFiles = len(changes.Unchanged)
	report.FailedFiles = len(changes.Failed)
	idx.progress.OnDiscoveryComplete(report.TotalFiles)

	// Phase 2: Prune files that left the tree. Their tracking records and
	// entities go together; see DeleteFile.
	for _, relPath := range changes.Deleted {
		if err := idx.files.DeleteFile(relPath); err != nil {
			log.Printf("Warning: failed to prune deleted file %s: %v", relPath, err)
			continue
		}
		report.DeletedFiles++
	}
	if report.DeletedFiles > 0 {
		log.Printf("Pruned %d deleted file(s) from the index", report.DeletedFiles)
	}

	// Phase 3: Parse and store changed files
	toParse := changes.ToParse()
	idx.progress.OnParsingStart(len(toParse))
	if len(toParse) == 0 && report.DeletedFiles == 0 && !rebuild {
		log.Println("No changes detected")
	}

	for _, relPath := range toParse {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		state := changes.States[relPath]
		source, err := os.ReadFile(state.AbsPath)
		if err != nil {
			log.Printf("Warning: failed to read %s: %v", relPath, err)
			report.FailedFiles++
			continue
		}

		result := idx.parser.ParseSource(ctx, relPath, source)
		if result.Failed() {
			// Prior entities and the file record stay put, so the file is
			// retried on the next run.
			log.Printf("Warning: failed to parse %s: %v", relPath, result.Err)
			report.FailedFiles++
			continue
		}

		stored, err := idx.entities.ReplaceFileEntities(relPath, result.Entities)
		if err != nil {
			return nil, fmt.Errorf("failed to store entities for %s: %w", relPath, err)
		}
		if err := idx.files.UpdateFileRecord(relPath, state.LastModified, state.Hash); err != nil {
			return nil, fmt.Errorf("failed to update file record for %s: %w", relPath, err)
		}

		report.ParsedFiles++
		report.EntitiesStored += stored
		idx.progress.OnFileParsed(relPath, stored)
	}

	// Phase 4: Link inheritance relationships. Runs even when no file was
	// reparsed: a previously unresolvable base may have been indexed since.
	idx.progress.OnLinkingStart()
	linked, err := idx.linker.Link(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to link relationships: %w", err)
	}
	report.RelationshipsLinked = linked

	if err := storage.SetMetadata(idx.db, storage.MetaLastRunID, report.RunID); err != nil {
		log.Printf("Warning: failed to record run id: %v", err)
	}
	if err := storage.SetMetadata(idx.db, storage.MetaLastRunAt, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		log.Printf("Warning: failed to record run time: %v", err)
	}

	report.Duration = time.Since(startTime)
	log.Printf("Indexed %d file(s): %d parsed, %d skipped, %d failed, %d entities, %d relationships in %v",
		report.TotalFiles, report.ParsedFiles, report.SkippedFiles, report.FailedFiles,
		report.EntitiesStored, report.RelationshipsLinked, report.Duration.Round(time.Millisecond))
	idx.progress.OnComplete(report)

	return report, nil
}

// Update is Build without rebuild.
func (idx *indexer) Update(ctx context.Context) (*Report, error) {
	return idx.Build(ctx, false)
}

// Watch starts watching for file changes and updates incrementally.
func (idx *indexer) Watch(ctx context.Context) error {
	watcher, err := newIndexerWatcher(idx, idx.config.RootDir)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Stop()

	watcher.Start(ctx)

	<-ctx.Done()

	return nil
}

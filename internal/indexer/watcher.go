package indexer

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// IndexerWatcher watches the root directory for file changes and triggers
// incremental reindexing.
type IndexerWatcher struct {
	indexer      *indexer
	rootDir      string
	watcher      *fsnotify.Watcher
	debounceTime time.Duration
	stopCh       chan struct{}
	doneCh       chan struct{}
	stopOnce     sync.Once
}

// newIndexerWatcher creates a file watcher bound to an indexer.
func newIndexerWatcher(idx *indexer, rootDir string) (*IndexerWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	iw := &IndexerWatcher{
		indexer:      idx,
		rootDir:      rootDir,
		watcher:      watcher,
		debounceTime: 500 * time.Millisecond,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}

	// Add directories to watcher recursively
	if err := iw.addDirectoriesRecursively(rootDir); err != nil {
		watcher.Close()
		return nil, err
	}

	return iw, nil
}

// Start begins watching for file changes.
func (iw *IndexerWatcher) Start(ctx context.Context) {
	go iw.watch(ctx)
}

// Stop stops the file watcher. Safe to call more than once.
func (iw *IndexerWatcher) Stop() {
	iw.stopOnce.Do(func() {
		close(iw.stopCh)
		<-iw.doneCh // Wait for goroutine to finish
		iw.watcher.Close()
	})
}

// watch is the main event loop with debouncing logic.
func (iw *IndexerWatcher) watch(ctx context.Context) {
	defer close(iw.doneCh)

	var debounceTimer *time.Timer
	reindexCh := make(chan struct{}, 1)
	changedFiles := make(map[string]bool)
	sawRemove := false

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case <-iw.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-iw.watcher.Events:
			if !ok {
				return
			}

			if !iw.shouldProcessEvent(event) {
				continue
			}

			relPath, _ := filepath.Rel(iw.rootDir, event.Name)
			changedFiles[filepath.ToSlash(relPath)] = true
			if event.Op&fsnotify.Remove != 0 {
				sawRemove = true
			}

			// Handle new directories - add them to watcher
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if iw.shouldWatchDirectory(event.Name) {
						if err := iw.addDirectoriesRecursively(event.Name); err != nil {
							log.Printf("Warning: failed to watch new directory %s: %v", event.Name, err)
						}
					}
				}
			}

			// Reset debounce timer - properly stop and drain
			if debounceTimer != nil {
				if !debounceTimer.Stop() {
					// Timer already fired, drain the channel
					select {
					case <-debounceTimer.C:
					default:
					}
				}
			}

			// Create new timer that will trigger reindexing
			debounceTimer = time.AfterFunc(iw.debounceTime, func() {
				// Send reindex signal (non-blocking)
				select {
				case reindexCh <- struct{}{}:
				default:
				}
			})

		case <-reindexCh:
			iw.triggerReindex(ctx, changedFiles, sawRemove)
			// Clear state for next batch
			changedFiles = make(map[string]bool)
			sawRemove = false

		case err, ok := <-iw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("File watcher error: %v", err)
		}
	}
}

// triggerReindex executes an incremental update for a batch of events.
// Without a Remove in the batch, a hinted change check filters out spurious
// event bursts (editors rewriting identical contents) before the full scan.
// Remove events always force the full scan, which is what prunes deletions.
func (iw *IndexerWatcher) triggerReindex(ctx context.Context, changedFiles map[string]bool, sawRemove bool) {
	if len(changedFiles) == 0 {
		return
	}

	fileList := make([]string, 0, len(changedFiles))
	for file := range changedFiles {
		fileList = append(fileList, file)
	}

	if !sawRemove {
		changes, err := iw.indexer.detector.DetectChanges(ctx, fileList)
		if err != nil {
			log.Printf("Warning: change check failed, reindexing anyway: %v", err)
		} else if len(changes.ToParse()) == 0 && len(changes.Failed) == 0 {
			return
		}
	}

	log.Printf("Reindexing due to changes in %d file(s)...", len(fileList))
	start := time.Now()

	report, err := iw.indexer.Update(ctx)
	if err != nil {
		log.Printf("Error during incremental reindex: %v", err)
		return
	}

	log.Printf("Reindex complete in %v (%d parsed, %d entities, %d relationships)",
		time.Since(start).Round(time.Millisecond), report.ParsedFiles,
		report.EntitiesStored, report.RelationshipsLinked)
}

// shouldProcessEvent checks if an event should trigger reindexing.
func (iw *IndexerWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	// Only care about WRITE, CREATE, and REMOVE events
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) == 0 {
		return false
	}

	relPath, err := filepath.Rel(iw.rootDir, event.Name)
	if err != nil {
		return false
	}

	// Directory events matter too: a created directory must start being
	// watched even though it matches no include pattern.
	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		return iw.shouldWatchDirectory(event.Name)
	}

	return iw.indexer.discovery.Matches(relPath)
}

// shouldWatchDirectory checks if a directory should be watched.
func (iw *IndexerWatcher) shouldWatchDirectory(path string) bool {
	relPath, err := filepath.Rel(iw.rootDir, path)
	if err != nil {
		return false
	}

	// Normalize path separators for glob matching
	relPath = filepath.ToSlash(relPath)
	if relPath == "." {
		return true
	}

	return !iw.indexer.discovery.shouldIgnore(relPath)
}

// addDirectoriesRecursively adds all directories in the tree to the watcher.
func (iw *IndexerWatcher) addDirectoriesRecursively(rootPath string) error {
	return filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Log but continue - don't fail the entire watch for one directory
			log.Printf("Warning: error accessing %s: %v", path, err)
			return nil
		}

		if !info.IsDir() {
			return nil
		}

		if !iw.shouldWatchDirectory(path) {
			return filepath.SkipDir
		}

		if err := iw.watcher.Add(path); err != nil {
			log.Printf("Warning: failed to watch directory %s: %v", path, err)
			return nil // Continue anyway
		}

		return nil
	})
}

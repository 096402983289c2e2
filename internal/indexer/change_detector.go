package indexer

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mvp-joe/cpp-cortex/internal/storage"
)

// ChangeDetector compares filesystem state to store state and returns what changed.
type ChangeDetector interface {
	// DetectChanges compares disk to the store and returns files needing
	// processing. If hint is non-empty, only those files are checked
	// (optimization from the watcher) and deletions are not detected.
	// If hint is empty, all candidates are discovered and compared.
	DetectChanges(ctx context.Context, hint []string) (*ChangeSet, error)

	// SnapshotAll captures every discovered candidate file as Modified,
	// without consulting the store. Used for rebuilds, where the store
	// contents are discarded up front.
	SnapshotAll(ctx context.Context) (*ChangeSet, error)
}

// ChangeSet contains the result of change detection. Paths are slash-separated
// and relative to the scan root.
type ChangeSet struct {
	Added     []string // New files with no store record
	Modified  []string // Files whose mtime or content hash differs from the store
	Deleted   []string // Files in the store but no longer on disk
	Unchanged []string // Files whose recorded state matches disk
	Failed    []string // Files that could not be stat'd or hashed

	// States carries the observed disk state for added and modified files so
	// the builder records exactly the state it parsed.
	States map[string]*FileState
}

// ToParse returns the added and modified files in a stable order.
func (cs *ChangeSet) ToParse() []string {
	files := make([]string, 0, len(cs.Added)+len(cs.Modified))
	files = append(files, cs.Added...)
	files = append(files, cs.Modified...)
	return files
}

// changeDetector implements ChangeDetector.
type changeDetector struct {
	rootDir   string
	files     *storage.FileReader
	discovery *FileDiscovery
}

// NewChangeDetector creates a new change detector.
func NewChangeDetector(rootDir string, files *storage.FileReader, discovery *FileDiscovery) ChangeDetector {
	return &changeDetector{
		rootDir:   rootDir,
		files:     files,
		discovery: discovery,
	}
}

// DetectChanges implements the change detection algorithm.
//
// Algorithm:
// 1. If hint provided, only check those files; if empty, discover all candidates
// 2. For each file on disk:
//    a. Stat and hash the file
//    b. Ask the store whether its recorded (mtime, hash) differs
//    c. Neither differs: Unchanged
//    d. Either differs: Modified. A restored mtime does not mask changed
//       contents, and an mtime-only drift still forces a reparse.
//    e. No record at all: Added
// 3. Files with records but not seen on disk: Deleted (full discovery only)
func (cd *changeDetector) DetectChanges(ctx context.Context, hint []string) (*ChangeSet, error) {
	changes := newChangeSet()

	filesToCheck, err := cd.resolveCandidates(hint)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(filesToCheck))

	for _, absPath := range filesToCheck {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		state, err := captureFileState(cd.rootDir, absPath)
		if err != nil {
			if os.IsNotExist(err) {
				// Race between discovery and stat; the deletion pass below
				// picks the file up if the store tracks it.
				continue
			}
			log.Printf("Warning: failed to read state of %s: %v", absPath, err)
			relPath, relErr := filepath.Rel(cd.rootDir, absPath)
			if relErr == nil {
				changes.Failed = append(changes.Failed, filepath.ToSlash(relPath))
			}
			continue
		}
		seen[state.RelPath] = true

		modified, err := cd.files.IsFileModified(state.RelPath, state.LastModified, state.Hash)
		if err != nil {
			return nil, fmt.Errorf("failed to check store record for %s: %w", state.RelPath, err)
		}
		if !modified {
			changes.Unchanged = append(changes.Unchanged, state.RelPath)
			continue
		}

		record, err := cd.files.GetFileRecord(state.RelPath)
		if err != nil {
			return nil, fmt.Errorf("failed to get store record for %s: %w", state.RelPath, err)
		}
		if record == nil {
			changes.Added = append(changes.Added, state.RelPath)
		} else {
			changes.Modified = append(changes.Modified, state.RelPath)
		}
		changes.States[state.RelPath] = state
	}

	// Deletions can only be concluded from a full scan; a hint says nothing
	// about files it does not mention.
	if len(hint) == 0 {
		tracked, err := cd.files.GetAllFiles()
		if err != nil {
			return nil, fmt.Errorf("failed to read tracked files: %w", err)
		}
		for relPath := range tracked {
			if !seen[relPath] {
				changes.Deleted = append(changes.Deleted, relPath)
			}
		}
	}

	return changes, nil
}

// SnapshotAll captures the state of every discovered candidate file and marks
// it Modified, so a rebuild parses everything it can see.
func (cd *changeDetector) SnapshotAll(ctx context.Context) (*ChangeSet, error) {
	changes := newChangeSet()

	discovered, err := cd.discovery.DiscoverFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}

	for _, absPath := range discovered {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		state, err := captureFileState(cd.rootDir, absPath)
		if err != nil {
			log.Printf("Warning: failed to read state of %s: %v", absPath, err)
			relPath, relErr := filepath.Rel(cd.rootDir, absPath)
			if relErr == nil {
				changes.Failed = append(changes.Failed, filepath.ToSlash(relPath))
			}
			continue
		}
		changes.Modified = append(changes.Modified, state.RelPath)
		changes.States[state.RelPath] = state
	}

	return changes, nil
}

// resolveCandidates normalizes the hint into absolute paths, or discovers all
// candidates when the hint is empty.
func (cd *changeDetector) resolveCandidates(hint []string) ([]string, error) {
	if len(hint) == 0 {
		discovered, err := cd.discovery.DiscoverFiles()
		if err != nil {
			return nil, fmt.Errorf("failed to discover files: %w", err)
		}
		return discovered, nil
	}

	files := make([]string, 0, len(hint))
	for _, file := range hint {
		if filepath.IsAbs(file) {
			files = append(files, file)
		} else {
			files = append(files, filepath.Join(cd.rootDir, file))
		}
	}
	return files, nil
}

func newChangeSet() *ChangeSet {
	return &ChangeSet{
		Added:     []string{},
		Modified:  []string{},
		Deleted:   []string{},
		Unchanged: []string{},
		Failed:    []string{},
		States:    make(map[string]*FileState),
	}
}

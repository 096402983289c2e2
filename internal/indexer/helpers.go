package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// calculateChecksum computes SHA-256 hash of a file.
func calculateChecksum(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}

// FileState captures the on-disk state of one candidate file at scan time.
// RelPath is slash-separated and relative to the scan root; it is the key
// the store tracks the file under.
type FileState struct {
	AbsPath      string
	RelPath      string
	LastModified time.Time
	Hash         string
}

// captureFileState stats and hashes a single file.
func captureFileState(rootDir, filePath string) (*FileState, error) {
	relPath, err := filepath.Rel(rootDir, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get relative path: %w", err)
	}

	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	checksum, err := calculateChecksum(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate checksum: %w", err)
	}

	return &FileState{
		AbsPath:      filePath,
		RelPath:      filepath.ToSlash(relPath),
		LastModified: fileInfo.ModTime(),
		Hash:         checksum,
	}, nil
}

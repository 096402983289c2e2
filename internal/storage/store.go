package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens the SQLite store at dbPath, creating parent directories as
// needed. Foreign keys are enabled through the DSN so every pooled
// connection gets them, not just the first.
func Open(dbPath string) (*sql.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", dbPath, err)
	}

	return db, nil
}

// Initialize ensures the schema exists and records the project name in
// index_metadata. Idempotent: an already-initialized store keeps its data.
func Initialize(db *sql.DB, projectName string) error {
	if err := CreateSchema(db); err != nil {
		return err
	}
	if projectName != "" {
		if err := SetMetadata(db, MetaProjectName, projectName); err != nil {
			return err
		}
	}
	return nil
}

// Exists reports whether a store file is present at dbPath.
func Exists(dbPath string) bool {
	info, err := os.Stat(dbPath)
	return err == nil && !info.IsDir()
}

// StoreSize returns the store's size in bytes as SQLite sees it
// (page_count * page_size). Works for file-backed and in-memory stores.
func StoreSize(db *sql.DB) (int64, error) {
	var size int64
	err := db.QueryRow("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()").Scan(&size)
	if err != nil {
		return 0, fmt.Errorf("failed to query store size: %w", err)
	}
	return size, nil
}

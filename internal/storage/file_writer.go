package storage

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// FileWriter handles writing file change-detection records to SQLite.
type FileWriter struct {
	db *sql.DB
}

// NewFileWriter creates a FileWriter instance.
// DB must have schema already created via CreateSchema().
func NewFileWriter(db *sql.DB) *FileWriter {
	return &FileWriter{db: db}
}

// UpdateFileRecord writes or refreshes the record for one file, stamping
// parsed_at with the current time. Uses INSERT OR REPLACE keyed on the
// file_path UNIQUE constraint.
//
// Timestamps are stored RFC3339Nano so the mtime survives the round-trip
// exactly and .Equal comparisons in IsFileModified stay meaningful.
func (w *FileWriter) UpdateFileRecord(filePath string, lastModified time.Time, fileHash string) error {
	now := time.Now().UTC()

	_, err := sq.Insert("files").
		Columns("file_path", "last_modified", "file_hash", "parsed_at").
		Values(
			filePath,
			lastModified.Format(time.RFC3339Nano),
			fileHash,
			now.Format(time.RFC3339Nano),
		).
		Options("OR REPLACE").
		RunWith(w.db).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to write file record for %s: %w", filePath, err)
	}

	return nil
}

// DeleteFile removes a file from the index: its tracking record plus every
// entity attributed to it (members and relationships cascade).
func (w *FileWriter) DeleteFile(filePath string) error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	_, err = sq.Delete("entities").
		Where(sq.Eq{"file_path": filePath}).
		RunWith(tx).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to delete entities for %s: %w", filePath, err)
	}

	_, err = sq.Delete("files").
		Where(sq.Eq{"file_path": filePath}).
		RunWith(tx).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to delete file record for %s: %w", filePath, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}

	return nil
}

// Close releases resources held by the writer.
// The underlying DB connection is NOT closed (caller owns it).
func (w *FileWriter) Close() error {
	return nil
}

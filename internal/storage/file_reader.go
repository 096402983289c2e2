package storage

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// FileReader handles reading file change-detection records from SQLite.
type FileReader struct {
	db *sql.DB
}

// NewFileReader creates a FileReader instance.
// DB should have schema already created.
func NewFileReader(db *sql.DB) *FileReader {
	return &FileReader{db: db}
}

// GetFileRecord retrieves the record for a single file.
// Returns (nil, nil) if the file has never been parsed.
func (r *FileReader) GetFileRecord(filePath string) (*FileRecord, error) {
	record := &FileRecord{}
	var lastModified, parsedAt string

	err := sq.Select("id", "file_path", "last_modified", "file_hash", "parsed_at").
		From("files").
		Where(sq.Eq{"file_path": filePath}).
		RunWith(r.db).
		QueryRow().
		Scan(
			&record.ID,
			&record.FilePath,
			&lastModified,
			&record.FileHash,
			&parsedAt,
		)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file record for %s: %w", filePath, err)
	}

	// RFC3339Nano parses both second- and nanosecond-precision timestamps
	record.LastModified, _ = time.Parse(time.RFC3339Nano, lastModified)
	record.ParsedAt, _ = time.Parse(time.RFC3339Nano, parsedAt)

	return record, nil
}

// GetAllFiles retrieves every file record keyed by file_path.
func (r *FileReader) GetAllFiles() (map[string]*FileRecord, error) {
	rows, err := sq.Select("id", "file_path", "last_modified", "file_hash", "parsed_at").
		From("files").
		OrderBy("file_path").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query all files: %w", err)
	}
	defer rows.Close()

	records := make(map[string]*FileRecord)
	for rows.Next() {
		record := &FileRecord{}
		var lastModified, parsedAt string

		err := rows.Scan(
			&record.ID,
			&record.FilePath,
			&lastModified,
			&record.FileHash,
			&parsedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file record: %w", err)
		}

		record.LastModified, _ = time.Parse(time.RFC3339Nano, lastModified)
		record.ParsedAt, _ = time.Parse(time.RFC3339Nano, parsedAt)

		records[record.FilePath] = record
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating file records: %w", err)
	}

	return records, nil
}

// IsFileModified reports whether a file's on-disk state differs from its
// stored record. True when the file has no record, the mtime differs, or the
// content hash differs. Either difference alone is enough; a restored mtime
// does not mask changed contents.
func (r *FileReader) IsFileModified(filePath string, lastModified time.Time, fileHash string) (bool, error) {
	record, err := r.GetFileRecord(filePath)
	if err != nil {
		return false, err
	}
	if record == nil {
		return true, nil
	}
	if !record.LastModified.Equal(lastModified) {
		return true, nil
	}
	return record.FileHash != fileHash, nil
}

// Close releases resources held by the reader.
// DB connection is NOT closed (caller owns it).
func (r *FileReader) Close() error {
	return nil
}

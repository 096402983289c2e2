package storage

// Test Plan for FileWriter:
// - UpdateFileRecord inserts a new record and stamps parsed_at
// - UpdateFileRecord on an existing path replaces mtime and hash (OR REPLACE)
// - DeleteFile removes the record and every entity attributed to the path
// - DeleteFile on an untracked path is a no-op
// - Close releases resources without closing the caller's DB

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileWriter_UpdateFileRecord(t *testing.T) {
	t.Parallel()

	db := NewTestDB(t)
	writer := NewFileWriter(db)
	defer writer.Close()
	reader := NewFileReader(db)

	mtime := time.Date(2026, 2, 1, 9, 30, 0, 123456789, time.UTC)
	err := writer.UpdateFileRecord("src/app.cpp", mtime, "hash-v1")
	require.NoError(t, err)

	record, err := reader.GetFileRecord("src/app.cpp")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "src/app.cpp", record.FilePath)
	assert.Equal(t, "hash-v1", record.FileHash)
	assert.True(t, record.LastModified.Equal(mtime), "nanosecond mtime should survive the round-trip")
	assert.False(t, record.ParsedAt.IsZero(), "parsed_at should be stamped")
}

func TestFileWriter_UpdateFileRecord_Replaces(t *testing.T) {
	t.Parallel()

	db := NewTestDB(t)
	writer := NewFileWriter(db)
	reader := NewFileReader(db)

	first := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	second := first.Add(42 * time.Minute)

	require.NoError(t, writer.UpdateFileRecord("src/app.cpp", first, "hash-v1"))
	require.NoError(t, writer.UpdateFileRecord("src/app.cpp", second, "hash-v2"))

	record, err := reader.GetFileRecord("src/app.cpp")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "hash-v2", record.FileHash)
	assert.True(t, record.LastModified.Equal(second))

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM files").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "upsert must not duplicate the record")
}

func TestFileWriter_DeleteFile(t *testing.T) {
	t.Parallel()

	db := NewTestDB(t)
	fileWriter := NewFileWriter(db)
	entityWriter := NewEntityWriter(db)

	_, err := entityWriter.AddEntity(&Entity{
		Name: "Gone", EntityType: EntityClass, FilePath: "old.hpp", LineNumber: 1,
		DeclType: DeclDefinition, Class: &ClassData{},
		Members: []Member{{MemberType: MemberField, Name: "x_", DataType: "int", Visibility: AccessPrivate, Ordinal: 0}},
	})
	require.NoError(t, err)
	require.NoError(t, fileWriter.UpdateFileRecord("old.hpp", time.Now().UTC(), "hash"))

	err = fileWriter.DeleteFile("old.hpp")
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM files").Scan(&count))
	assert.Equal(t, 0, count)
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM entities").Scan(&count))
	assert.Equal(t, 0, count)
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM members").Scan(&count))
	assert.Equal(t, 0, count)

	// Untracked paths delete cleanly
	err = fileWriter.DeleteFile("never-indexed.hpp")
	require.NoError(t, err)
}

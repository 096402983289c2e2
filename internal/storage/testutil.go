package storage

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// NewTestDB creates a fully configured in-memory SQLite database for testing.
//
// The database includes:
//   - Foreign key constraints enabled (CRITICAL for cascade deletes)
//   - Full schema created (all tables and indexes)
//   - Automatic cleanup registered with t.Cleanup()
//
// This is the standard test database helper - use it for 90% of tests.
//
// Example:
//
//	func TestSomething(t *testing.T) {
//	    db := storage.NewTestDB(t)
//	    // ... test code ...
//	    // No need to close - t.Cleanup() handles it
//	}
func NewTestDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// A second pooled connection would see a different in-memory database,
	// so pin the pool to one connection.
	db.SetMaxOpenConns(1)

	// Enable foreign key constraints (required for cascade deletes)
	// SQLite disables foreign keys by default for backward compatibility
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	// Create full schema (tables and indexes)
	err = CreateSchema(db)
	require.NoError(t, err)

	return db
}

// NewTestDBFile creates a file-based SQLite database in t.TempDir().
//
// Use this when you need to test:
//   - Database persistence across connections
//   - File operations (copy, move, delete)
//   - Multi-connection scenarios
//
// The database includes:
//   - Foreign key constraints enabled
//   - Full schema created
//   - File located in t.TempDir() (auto-cleaned up)
//   - Automatic connection cleanup registered with t.Cleanup()
func NewTestDBFile(t testing.TB) *sql.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// Create full schema
	err = CreateSchema(db)
	require.NoError(t, err)

	return db
}

// NewTestDBMinimal creates an in-memory SQLite database without schema.
//
// Use this when you need to:
//   - Test schema creation itself (CreateSchema, ResetSchema)
//   - Create custom test schemas
//   - Have full control over database structure
//
// You must manually create your schema after getting the database.
func NewTestDBMinimal(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	db.SetMaxOpenConns(1)

	// Enable foreign key constraints
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	// Do NOT create schema - caller is responsible

	return db
}

package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is the current on-disk schema version. The five-table layout
// is the durable contract; bump this only with a migration path, never by
// destroying existing stores on update.
const SchemaVersion = "1"

// Well-known index_metadata keys.
const (
	MetaSchemaVersion = "schema_version"
	MetaProjectName   = "project_name"
	MetaCreatedAt     = "created_at"
	MetaLastRunID     = "last_run_id"
	MetaLastRunAt     = "last_run_at"
)

// CreateSchema creates all tables and indexes for the symbol store.
// Uses a transaction for atomicity - all schema creation succeeds or fails together.
//
// Schema includes:
//   - entities, members, relationships: the parsed symbol data
//   - files: per-file change-detection records
//   - index_metadata: schema version, project name, last run
//
// Idempotent: safe to call on a database that already has the schema.
// Must be called with SQLite PRAGMA foreign_keys = ON.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	// Enable foreign keys (must be set for each connection)
	if _, err := tx.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Create all tables in dependency order
	tables := []struct {
		name string
		ddl  string
	}{
		{"entities", createEntitiesTable},
		{"files", createFilesTable},
		{"members", createMembersTable},
		{"relationships", createRelationshipsTable},
		{"index_metadata", createMetadataTable},
	}

	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	// Create all indexes
	indexes := getAllIndexes()
	for i, idx := range indexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	// Bootstrap index_metadata. ON CONFLICT DO NOTHING keeps an existing
	// store's version and creation time intact.
	now := time.Now().UTC().Format(time.RFC3339)
	bootstrapSQL := `
		INSERT INTO index_metadata (key, value, updated_at) VALUES
			('schema_version', ?, ?),
			('created_at', ?, ?)
		ON CONFLICT(key) DO NOTHING
	`
	if _, err := tx.Exec(bootstrapSQL, SchemaVersion, now, now, now); err != nil {
		return fmt.Errorf("failed to bootstrap index_metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}

	return nil
}

// ResetSchema drops every store table and recreates the schema from scratch.
// Used by full rebuilds. All indexed data is lost.
func ResetSchema(db *sql.DB) error {
	// Children before parents so the drops pass with foreign_keys = ON.
	drops := []string{
		"DROP TABLE IF EXISTS relationships",
		"DROP TABLE IF EXISTS members",
		"DROP TABLE IF EXISTS entities",
		"DROP TABLE IF EXISTS files",
		"DROP TABLE IF EXISTS index_metadata",
	}
	for _, drop := range drops {
		if _, err := db.Exec(drop); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
	}
	return CreateSchema(db)
}

// GetSchemaVersion retrieves the schema version from index_metadata.
// Returns "0" if the table doesn't exist (new database).
func GetSchemaVersion(db *sql.DB) (string, error) {
	// First check if index_metadata table exists
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='index_metadata'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check index_metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil // New database
	}

	// Table exists, query for version
	var version string
	query := "SELECT value FROM index_metadata WHERE key = 'schema_version'"
	err = db.QueryRow(query).Scan(&version)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("schema_version key not found in index_metadata")
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

// SetMetadata sets or updates one index_metadata key.
func SetMetadata(db *sql.DB, key, value string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO index_metadata (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`
	_, err := db.Exec(query, key, value, now)
	if err != nil {
		return fmt.Errorf("failed to set metadata %s: %w", key, err)
	}
	return nil
}

// GetMetadata retrieves one index_metadata value. Returns "" when the key
// is not present.
func GetMetadata(db *sql.DB, key string) (string, error) {
	var value string
	err := db.QueryRow("SELECT value FROM index_metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query metadata %s: %w", key, err)
	}
	return value, nil
}

// Table DDL constants

const createEntitiesTable = `
CREATE TABLE IF NOT EXISTS entities (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,                          -- Identifier as written in source
    entity_type TEXT NOT NULL,                   -- class, enum, function, typedef
    namespace TEXT NOT NULL DEFAULT '',          -- "::"-joined enclosing namespaces
    file_path TEXT NOT NULL,                     -- Relative path, forward slashes
    line_number INTEGER NOT NULL,                -- 1-based declaration line
    decl_type TEXT NOT NULL,                     -- declaration, definition, forward_declaration
    is_template INTEGER NOT NULL DEFAULT 0,      -- Boolean: template-wrapped declaration
    template_params TEXT NOT NULL DEFAULT '',    -- Verbatim template parameter list text
    is_private_impl INTEGER NOT NULL DEFAULT 0,  -- Boolean: defined with a body in a translation unit
    data_json TEXT NOT NULL DEFAULT '{}'         -- Variant payload (see models.go)
)
`

const createFilesTable = `
CREATE TABLE IF NOT EXISTS files (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    file_path TEXT NOT NULL UNIQUE,              -- Relative path, forward slashes
    last_modified TEXT NOT NULL,                 -- RFC 3339 mtime from filesystem
    file_hash TEXT NOT NULL,                     -- SHA-256 for change detection
    parsed_at TEXT NOT NULL                      -- RFC 3339 when this file was parsed
)
`

const createMembersTable = `
CREATE TABLE IF NOT EXISTS members (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    entity_id INTEGER NOT NULL,                  -- Owning class/struct entity
    member_type TEXT NOT NULL,                   -- field, method
    name TEXT NOT NULL,
    data_type TEXT NOT NULL DEFAULT '',          -- Field type, or method return type
    visibility TEXT NOT NULL,                    -- public, protected, private
    is_static INTEGER NOT NULL DEFAULT 0,        -- Boolean
    ordinal INTEGER NOT NULL,                    -- Declaration order within the entity
    data_json TEXT NOT NULL DEFAULT '{}',        -- Method payload (see models.go)
    FOREIGN KEY (entity_id) REFERENCES entities(id) ON DELETE CASCADE
)
`

const createRelationshipsTable = `
CREATE TABLE IF NOT EXISTS relationships (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    from_entity_id INTEGER NOT NULL,             -- Source entity (the derived class)
    to_entity_id INTEGER NOT NULL,               -- Target entity (the base class)
    relationship_type TEXT NOT NULL,             -- inherits_from
    relationship_data TEXT NOT NULL DEFAULT '{}',-- Edge payload: access, is_virtual
    FOREIGN KEY (from_entity_id) REFERENCES entities(id) ON DELETE CASCADE,
    FOREIGN KEY (to_entity_id) REFERENCES entities(id) ON DELETE CASCADE,
    UNIQUE(from_entity_id, to_entity_id, relationship_type)
)
`

const createMetadataTable = `
CREATE TABLE IF NOT EXISTS index_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)
`

// getAllIndexes returns all index creation statements.
func getAllIndexes() []string {
	return []string{
		// entities table indexes
		"CREATE INDEX IF NOT EXISTS idx_entities_name ON entities(name)",
		"CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(entity_type)",
		"CREATE INDEX IF NOT EXISTS idx_entities_namespace ON entities(namespace)",
		"CREATE INDEX IF NOT EXISTS idx_entities_file_path ON entities(file_path)",

		// files table indexes
		"CREATE INDEX IF NOT EXISTS idx_files_file_path ON files(file_path)",

		// members table indexes
		"CREATE INDEX IF NOT EXISTS idx_members_entity_id ON members(entity_id)",
		"CREATE INDEX IF NOT EXISTS idx_members_member_type ON members(member_type)",

		// relationships table indexes
		"CREATE INDEX IF NOT EXISTS idx_relationships_from ON relationships(from_entity_id)",
		"CREATE INDEX IF NOT EXISTS idx_relationships_to ON relationships(to_entity_id)",
		"CREATE INDEX IF NOT EXISTS idx_relationships_type ON relationships(relationship_type)",
	}
}

package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// EntityWriter handles writing parsed entities, members, and relationships
// to SQLite.
type EntityWriter struct {
	db *sql.DB
}

// NewEntityWriter creates an EntityWriter instance.
// DB must have schema already created via CreateSchema().
func NewEntityWriter(db *sql.DB) *EntityWriter {
	return &EntityWriter{db: db}
}

// AddEntity writes one entity plus its joined Members and returns the
// store-assigned entity id. The id is also written back to entity.ID.
func (w *EntityWriter) AddEntity(entity *Entity) (int64, error) {
	tx, err := w.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	id, err := insertEntity(tx, entity)
	if err != nil {
		return 0, err
	}
	if err := insertMembers(tx, id, entity.Members); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit entity insert: %w", err)
	}

	entity.ID = id
	return id, nil
}

// ReplaceFileEntities swaps filePath's stored entities for a fresh parse in
// a single transaction: delete every entity attributed to the file (members
// and relationships cascade), then insert the new set. Returns the number of
// entities written. Store-assigned ids are written back to the entities.
func (w *EntityWriter) ReplaceFileEntities(filePath string, entities []*Entity) (int, error) {
	tx, err := w.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = sq.Delete("entities").
		Where(sq.Eq{"file_path": filePath}).
		RunWith(tx).
		Exec()
	if err != nil {
		return 0, fmt.Errorf("failed to clear entities for %s: %w", filePath, err)
	}

	for _, entity := range entities {
		id, err := insertEntity(tx, entity)
		if err != nil {
			return 0, err
		}
		if err := insertMembers(tx, id, entity.Members); err != nil {
			return 0, err
		}
		entity.ID = id
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit file replace: %w", err)
	}

	return len(entities), nil
}

// ClearFileEntities deletes every entity attributed to filePath. Member and
// relationship rows cascade via foreign keys. No-op when the file has none.
func (w *EntityWriter) ClearFileEntities(filePath string) error {
	_, err := sq.Delete("entities").
		Where(sq.Eq{"file_path": filePath}).
		RunWith(w.db).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to clear entities for %s: %w", filePath, err)
	}
	return nil
}

// AddRelationship records a directed edge between two stored entities and
// returns its id. Re-adding an existing (from, to, type) edge refreshes the
// payload instead of accumulating a duplicate row.
func (w *EntityWriter) AddRelationship(fromID, toID int64, relType string, data *RelationshipData) (int64, error) {
	payload := "{}"
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return 0, fmt.Errorf("failed to encode relationship payload: %w", err)
		}
		payload = string(encoded)
	}

	_, err := sq.Insert("relationships").
		Columns("from_entity_id", "to_entity_id", "relationship_type", "relationship_data").
		Values(fromID, toID, relType, payload).
		Suffix(`ON CONFLICT(from_entity_id, to_entity_id, relationship_type)
			DO UPDATE SET relationship_data = excluded.relationship_data`).
		RunWith(w.db).
		Exec()
	if err != nil {
		return 0, fmt.Errorf("failed to insert relationship %d->%d: %w", fromID, toID, err)
	}

	// LastInsertId is not meaningful when the upsert took the UPDATE arm,
	// so read the row id back by its natural key.
	var id int64
	err = sq.Select("id").
		From("relationships").
		Where(sq.Eq{
			"from_entity_id":    fromID,
			"to_entity_id":      toID,
			"relationship_type": relType,
		}).
		RunWith(w.db).
		QueryRow().
		Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to read relationship id: %w", err)
	}
	return id, nil
}

// Close releases resources held by the writer.
// The underlying DB connection is NOT closed (caller owns it).
func (w *EntityWriter) Close() error {
	return nil
}

func insertEntity(tx *sql.Tx, entity *Entity) (int64, error) {
	dataJSON, err := marshalEntityData(entity)
	if err != nil {
		return 0, fmt.Errorf("failed to encode payload for %s: %w", entity.Name, err)
	}

	res, err := sq.Insert("entities").
		Columns(
			"name", "entity_type", "namespace", "file_path", "line_number",
			"decl_type", "is_template", "template_params", "is_private_impl", "data_json",
		).
		Values(
			entity.Name,
			entity.EntityType,
			entity.Namespace,
			entity.FilePath,
			entity.LineNumber,
			entity.DeclType,
			entity.IsTemplate,
			entity.TemplateParams,
			entity.IsPrivateImpl,
			dataJSON,
		).
		RunWith(tx).
		Exec()
	if err != nil {
		return 0, fmt.Errorf("failed to insert entity %s: %w", entity.Name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read entity id for %s: %w", entity.Name, err)
	}
	return id, nil
}

func insertMembers(tx *sql.Tx, entityID int64, members []Member) error {
	if len(members) == 0 {
		return nil
	}

	// Build the query once with Squirrel, then prepare it for the batch
	sqlStr, _, err := sq.Insert("members").
		Columns("entity_id", "member_type", "name", "data_type", "visibility", "is_static", "ordinal", "data_json").
		Values(0, "", "", "", "", false, 0, "").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL: %w", err)
	}

	stmt, err := tx.Prepare(sqlStr)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := range members {
		m := &members[i]
		dataJSON, err := marshalMemberData(m)
		if err != nil {
			return fmt.Errorf("failed to encode member %s: %w", m.Name, err)
		}
		_, err = stmt.Exec(
			entityID,
			m.MemberType,
			m.Name,
			m.DataType,
			m.Visibility,
			m.IsStatic,
			m.Ordinal,
			dataJSON,
		)
		if err != nil {
			return fmt.Errorf("failed to insert member %s: %w", m.Name, err)
		}
	}

	return nil
}

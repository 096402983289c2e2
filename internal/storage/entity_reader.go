package storage

import (
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// entityColumns is the SELECT list shared by every entity query, in the scan
// order scanEntities expects.
var entityColumns = []string{
	"id", "name", "entity_type", "namespace", "file_path", "line_number",
	"decl_type", "is_template", "template_params", "is_private_impl", "data_json",
}

// EntityReader handles querying entities, members, and relationships.
type EntityReader struct {
	db *sql.DB
}

// NewEntityReader creates an EntityReader instance.
func NewEntityReader(db *sql.DB) *EntityReader {
	return &EntityReader{db: db}
}

// SearchEntities returns entities matching filter, ordered by
// (file_path, line_number) ascending. Zero-valued filter fields do not
// constrain the result; set fields are combined with AND.
func (r *EntityReader) SearchEntities(filter SearchFilter) ([]Entity, error) {
	query := sq.Select(entityColumns...).From("entities")

	if filter.NamePattern != "" {
		query = query.Where(sq.Like{"name": "%" + filter.NamePattern + "%"})
	}
	if len(filter.Types) > 0 {
		query = query.Where(sq.Eq{"entity_type": filter.Types})
	}
	if filter.Namespace != "" {
		query = query.Where(sq.Eq{"namespace": filter.Namespace})
	}
	if filter.DeclType != "" {
		query = query.Where(sq.Eq{"decl_type": filter.DeclType})
	}
	if filter.FilePattern != "" {
		query = query.Where(sq.Like{"file_path": "%" + filter.FilePattern + "%"})
	}

	query = query.OrderBy("file_path", "line_number")
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	rows, err := query.RunWith(r.db).Query()
	if err != nil {
		return nil, fmt.Errorf("failed to search entities: %w", err)
	}
	defer rows.Close()

	return scanEntities(rows)
}

// FindEntityByName returns the first entity (lowest id, i.e. insertion
// order) matching name, or nil when nothing matches. A non-nil namespace
// restricts the match to that exact namespace, "" being the global
// namespace; a nil namespace matches any. entityType restricts when
// non-empty.
func (r *EntityReader) FindEntityByName(name string, namespace *string, entityType string) (*Entity, error) {
	query := sq.Select(entityColumns...).
		From("entities").
		Where(sq.Eq{"name": name})

	if namespace != nil {
		query = query.Where(sq.Eq{"namespace": *namespace})
	}
	if entityType != "" {
		query = query.Where(sq.Eq{"entity_type": entityType})
	}

	var entity Entity
	var dataJSON string
	err := query.OrderBy("id").
		Limit(1).
		RunWith(r.db).
		QueryRow().
		Scan(
			&entity.ID, &entity.Name, &entity.EntityType, &entity.Namespace,
			&entity.FilePath, &entity.LineNumber, &entity.DeclType,
			&entity.IsTemplate, &entity.TemplateParams, &entity.IsPrivateImpl,
			&dataJSON,
		)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find entity %s: %w", name, err)
	}

	if err := unmarshalEntityData(&entity, dataJSON); err != nil {
		return nil, err
	}
	return &entity, nil
}

// GetEntityByID returns the entity with the given id, or nil when absent.
func (r *EntityReader) GetEntityByID(id int64) (*Entity, error) {
	var entity Entity
	var dataJSON string
	err := sq.Select(entityColumns...).
		From("entities").
		Where(sq.Eq{"id": id}).
		RunWith(r.db).
		QueryRow().
		Scan(
			&entity.ID, &entity.Name, &entity.EntityType, &entity.Namespace,
			&entity.FilePath, &entity.LineNumber, &entity.DeclType,
			&entity.IsTemplate, &entity.TemplateParams, &entity.IsPrivateImpl,
			&dataJSON,
		)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entity %d: %w", id, err)
	}

	if err := unmarshalEntityData(&entity, dataJSON); err != nil {
		return nil, err
	}
	return &entity, nil
}

// GetEntityMembers returns the members of one entity ordered by
// (ordinal, name). memberType narrows to "field" or "method" when non-empty.
func (r *EntityReader) GetEntityMembers(entityID int64, memberType string) ([]Member, error) {
	query := sq.Select(
		"id", "entity_id", "member_type", "name", "data_type",
		"visibility", "is_static", "ordinal", "data_json",
	).
		From("members").
		Where(sq.Eq{"entity_id": entityID})

	if memberType != "" {
		query = query.Where(sq.Eq{"member_type": memberType})
	}

	rows, err := query.OrderBy("ordinal", "name").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query members for entity %d: %w", entityID, err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		var dataJSON string
		err := rows.Scan(
			&m.ID, &m.EntityID, &m.MemberType, &m.Name, &m.DataType,
			&m.Visibility, &m.IsStatic, &m.Ordinal, &dataJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member row: %w", err)
		}
		if err := unmarshalMemberData(&m, dataJSON); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return members, nil
}

// GetRelationships returns edges touching entityID. direction selects which
// endpoint must match: "from", "to", or "both" (the default for "").
// relType narrows by relationship_type when non-empty.
func (r *EntityReader) GetRelationships(entityID int64, relType, direction string) ([]Relationship, error) {
	query := sq.Select("id", "from_entity_id", "to_entity_id", "relationship_type", "relationship_data").
		From("relationships")

	switch direction {
	case DirectionFrom:
		query = query.Where(sq.Eq{"from_entity_id": entityID})
	case DirectionTo:
		query = query.Where(sq.Eq{"to_entity_id": entityID})
	case DirectionBoth, "":
		query = query.Where(sq.Or{
			sq.Eq{"from_entity_id": entityID},
			sq.Eq{"to_entity_id": entityID},
		})
	default:
		return nil, fmt.Errorf("unknown relationship direction %q", direction)
	}

	if relType != "" {
		query = query.Where(sq.Eq{"relationship_type": relType})
	}

	rows, err := query.OrderBy("id").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query relationships for entity %d: %w", entityID, err)
	}
	defer rows.Close()

	return scanRelationships(rows)
}

// ListRelationships returns every edge in the store, optionally narrowed by
// relationship_type. Used to load the in-memory hierarchy graph.
func (r *EntityReader) ListRelationships(relType string) ([]Relationship, error) {
	query := sq.Select("id", "from_entity_id", "to_entity_id", "relationship_type", "relationship_data").
		From("relationships")
	if relType != "" {
		query = query.Where(sq.Eq{"relationship_type": relType})
	}

	rows, err := query.OrderBy("id").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to list relationships: %w", err)
	}
	defer rows.Close()

	return scanRelationships(rows)
}

// GetEntitiesWithBases returns class entities whose payload records at least
// one base class. The SQL filter is a coarse substring probe on data_json;
// the decoded payload is checked before a row is returned.
func (r *EntityReader) GetEntitiesWithBases() ([]Entity, error) {
	query := sq.Select(entityColumns...).
		From("entities").
		Where(sq.Eq{"entity_type": EntityClass}).
		Where(sq.Like{"data_json": `%"base_classes"%`}).
		OrderBy("file_path", "line_number")

	rows, err := query.RunWith(r.db).Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query entities with bases: %w", err)
	}
	defer rows.Close()

	entities, err := scanEntities(rows)
	if err != nil {
		return nil, err
	}

	withBases := entities[:0]
	for _, e := range entities {
		if e.Class != nil && len(e.Class.BaseClasses) > 0 {
			withBases = append(withBases, e)
		}
	}
	return withBases, nil
}

// GetStats summarizes the store: entity counts by type, tracked files,
// relationship count, and on-disk size.
func (r *EntityReader) GetStats() (*Stats, error) {
	stats := &Stats{EntitiesByType: make(map[string]int)}

	rows, err := sq.Select("entity_type", "COUNT(*)").
		From("entities").
		GroupBy("entity_type").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to count entities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entityType string
		var count int
		if err := rows.Scan(&entityType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan entity count: %w", err)
		}
		stats.EntitiesByType[entityType] = count
		stats.TotalEntities += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	err = sq.Select("COUNT(*)").
		From("files").
		RunWith(r.db).
		QueryRow().
		Scan(&stats.FilesTracked)
	if err != nil {
		return nil, fmt.Errorf("failed to count files: %w", err)
	}

	err = sq.Select("COUNT(*)").
		From("relationships").
		RunWith(r.db).
		QueryRow().
		Scan(&stats.Relationships)
	if err != nil {
		return nil, fmt.Errorf("failed to count relationships: %w", err)
	}

	size, err := StoreSize(r.db)
	if err != nil {
		return nil, err
	}
	stats.StoreSizeBytes = size

	return stats, nil
}

// Close releases resources held by the reader.
// The underlying DB connection is NOT closed (caller owns it).
func (r *EntityReader) Close() error {
	return nil
}

func scanEntities(rows *sql.Rows) ([]Entity, error) {
	var entities []Entity
	for rows.Next() {
		var e Entity
		var dataJSON string
		err := rows.Scan(
			&e.ID, &e.Name, &e.EntityType, &e.Namespace, &e.FilePath,
			&e.LineNumber, &e.DeclType, &e.IsTemplate, &e.TemplateParams,
			&e.IsPrivateImpl, &dataJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entity row: %w", err)
		}
		if err := unmarshalEntityData(&e, dataJSON); err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return entities, nil
}

func scanRelationships(rows *sql.Rows) ([]Relationship, error) {
	var rels []Relationship
	for rows.Next() {
		var rel Relationship
		var dataJSON string
		err := rows.Scan(&rel.ID, &rel.FromEntityID, &rel.ToEntityID, &rel.RelationshipType, &dataJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to scan relationship row: %w", err)
		}
		if dataJSON != "" && dataJSON != "{}" {
			rel.Data = &RelationshipData{}
			if err := unmarshalRelationshipData(rel.Data, dataJSON); err != nil {
				return nil, err
			}
		}
		rels = append(rels, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return rels, nil
}

package indexer

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/maypok86/otter"

	"github.com/mvp-joe/cpp-cortex/internal/storage"
)

// resolutionCacheCapacity bounds the per-pass base-name resolution cache.
// Large codebases resolve the same common bases (interfaces, CRTP helpers)
// over and over; one lookup per distinct (namespace, name) pair is enough.
const resolutionCacheCapacity = 4096

// resolutionKey identifies one base-class lookup: the owning entity's
// namespace plus the base name.
type resolutionKey struct {
	namespace string
	name      string
}

// Linker runs the relationship-linking pass over stored entities.
type Linker struct {
	reader *storage.EntityReader
	writer *storage.EntityWriter
	cache  otter.Cache[resolutionKey, int64]
}

// NewLinker creates a Linker on the given store connection.
func NewLinker(db *sql.DB) (*Linker, error) {
	cache, err := otter.MustBuilder[resolutionKey, int64](resolutionCacheCapacity).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create resolution cache: %w", err)
	}

	return &Linker{
		reader: storage.NewEntityReader(db),
		writer: storage.NewEntityWriter(db),
		cache:  cache,
	}, nil
}

// Link connects every stored class or struct that carries base classes to the
// indexed entities those bases resolve to, one inherits_from edge per base.
// Bases that do not resolve (std::, third-party, not yet indexed) are skipped
// silently. Edges upsert by (from, to, type), so repeated passes refresh
// rather than accumulate. Returns the number of edges written this pass.
func (l *Linker) Link(ctx context.Context) (int, error) {
	entities, err := l.reader.GetEntitiesWithBases()
	if err != nil {
		return 0, fmt.Errorf("failed to load entities with bases: %w", err)
	}

	// Resolutions only hold within one pass; the store changes between them.
	l.cache.Clear()

	linked := 0
	for i := range entities {
		select {
		case <-ctx.Done():
			return linked, ctx.Err()
		default:
		}

		derived := &entities[i]
		if derived.Class == nil {
			continue
		}

		for _, base := range derived.Class.BaseClasses {
			// Base names are stored with template arguments already stripped,
			// so "Container<int>" arrives here as "Container".
			baseID, err := l.resolveBase(derived.Namespace, base.Name)
			if err != nil {
				return linked, fmt.Errorf("failed to resolve base %s of %s: %w", base.Name, derived.Name, err)
			}
			if baseID == 0 {
				continue
			}

			_, err = l.writer.AddRelationship(derived.ID, baseID, storage.RelationInheritsFrom, &storage.RelationshipData{
				Access:    base.Access,
				IsVirtual: base.IsVirtual,
			})
			if err != nil {
				return linked, fmt.Errorf("failed to link %s to base %s: %w", derived.Name, base.Name, err)
			}
			linked++
		}
	}

	return linked, nil
}

// resolveBase finds the entity id for a base-class name, scoped to the
// owner's namespace first, then unscoped (first match by id). Best-effort
// name resolution, not symbol resolution: with same-named classes in several
// namespaces the unscoped fallback picks the lowest id. A zero id marks a
// cached miss.
func (l *Linker) resolveBase(namespace, name string) (int64, error) {
	key := resolutionKey{namespace: namespace, name: name}
	if id, ok := l.cache.Get(key); ok {
		return id, nil
	}

	entity, err := l.reader.FindEntityByName(name, &namespace, storage.EntityClass)
	if err != nil {
		return 0, err
	}
	if entity == nil {
		entity, err = l.reader.FindEntityByName(name, nil, storage.EntityClass)
		if err != nil {
			return 0, err
		}
	}

	var id int64
	if entity != nil {
		id = entity.ID
	}
	l.cache.Set(key, id)
	return id, nil
}

// Close releases the resolution cache.
func (l *Linker) Close() {
	l.cache.Close()
}

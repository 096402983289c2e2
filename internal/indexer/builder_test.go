package indexer

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/cpp-cortex/internal/storage"
)

// Test Plan for the index builder:
// - Full build over the shared C++ fixtures stores every entity and links
//   the inheritance edges between them
// - A second update reparses nothing and leaves counts identical (idempotent)
// - Re-parsing a changed file replaces its entities, never duplicates them
// - A content change with the mtime restored is still reparsed
// - Deleting a file from disk prunes its record and entities on update
// - Rebuild reparses everything without duplicating
// - Linking is order independent: the base may be parsed after the derived
//   class, or arrive in a later run
// - The Base/Foo scenario end to end
// - New() owns a file-backed store that survives reopening
// - Context cancellation aborts a build

// newTestIndexer builds an indexer over rootDir backed by a fresh in-memory
// store. The returned db outlives the indexer via t.Cleanup.
func newTestIndexer(t *testing.T, rootDir string) (Indexer, *sql.DB) {
	t.Helper()
	db := storage.NewTestDB(t)
	config := DefaultConfig(rootDir)
	idx, err := NewWithDB(config, db, nil)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx, db
}

func TestBuilder_FullBuildOverFixtures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	idx, db := newTestIndexer(t, "../../testdata/code/cpp")

	report, err := idx.Build(ctx, false)
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 2, report.TotalFiles)
	assert.Equal(t, 2, report.ParsedFiles)
	assert.Equal(t, 0, report.FailedFiles)
	assert.Equal(t, 0, report.SkippedFiles)
	assert.Equal(t, 16, report.EntitiesStored)
	// Shape : public Drawable, virtual Counted resolves both bases.
	assert.Equal(t, 2, report.RelationshipsLinked)
	assert.Greater(t, report.Duration, time.Duration(0))

	// Spot-check one entity and its inheritance edges.
	reader := storage.NewEntityReader(db)
	shape, err := reader.FindEntityByName("Shape", nil, storage.EntityClass)
	require.NoError(t, err)
	require.NotNil(t, shape)
	assert.Equal(t, "geo", shape.Namespace)

	rels, err := reader.GetRelationships(shape.ID, storage.RelationInheritsFrom, storage.DirectionFrom)
	require.NoError(t, err)
	assert.Len(t, rels, 2)

	// The run is recorded in the store metadata.
	runID, err := storage.GetMetadata(db, storage.MetaLastRunID)
	require.NoError(t, err)
	assert.Equal(t, report.RunID, runID)
}

func TestBuilder_IdempotentUpdate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	idx, db := newTestIndexer(t, "../../testdata/code/cpp")

	first, err := idx.Update(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, first.ParsedFiles)

	reader := storage.NewEntityReader(db)
	statsAfterFirst, err := reader.GetStats()
	require.NoError(t, err)

	second, err := idx.Update(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, second.TotalFiles)
	assert.Equal(t, 0, second.ParsedFiles)
	assert.Equal(t, 2, second.SkippedFiles)
	assert.Equal(t, 0, second.EntitiesStored)

	statsAfterSecond, err := reader.GetStats()
	require.NoError(t, err)
	assert.Equal(t, statsAfterFirst.TotalEntities, statsAfterSecond.TotalEntities)
	assert.Equal(t, statsAfterFirst.EntitiesByType, statsAfterSecond.EntitiesByType)
	// The linking pass reruns but upserts, so the edge count holds too.
	assert.Equal(t, statsAfterFirst.Relationships, statsAfterSecond.Relationships)
}

func TestBuilder_ReparseReplacesEntities(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rootDir := t.TempDir()
	idx, db := newTestIndexer(t, rootDir)

	absPath := filepath.Join(rootDir, "shapes.hpp")
	writeFile(t, absPath, "class Circle {};\nclass Square {};\n")

	_, err := idx.Build(ctx, false)
	require.NoError(t, err)

	reader := storage.NewEntityReader(db)
	square, err := reader.FindEntityByName("Square", nil, "")
	require.NoError(t, err)
	require.NotNil(t, square)

	// Drop Square from the file and update.
	writeFile(t, absPath, "class Circle {};\n")
	report, err := idx.Update(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.ParsedFiles)

	square, err = reader.FindEntityByName("Square", nil, "")
	require.NoError(t, err)
	assert.Nil(t, square, "stale entity survived a reparse")

	circles, err := reader.SearchEntities(storage.SearchFilter{NamePattern: "Circle"})
	require.NoError(t, err)
	assert.Len(t, circles, 1, "reparse duplicated an entity")
}

// Restoring the mtime after an equal-length edit must not mask the change.
func TestBuilder_HashChangeWithRestoredMtimeReparses(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rootDir := t.TempDir()
	idx, db := newTestIndexer(t, rootDir)

	absPath := filepath.Join(rootDir, "one.hpp")
	writeFile(t, absPath, "class Alpha {};\n")

	_, err := idx.Build(ctx, false)
	require.NoError(t, err)

	original, err := os.Stat(absPath)
	require.NoError(t, err)

	// Same byte count, different name, mtime rolled back.
	writeFile(t, absPath, "class Gamma {};\n")
	require.NoError(t, os.Chtimes(absPath, time.Now(), original.ModTime()))

	report, err := idx.Update(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.ParsedFiles)

	reader := storage.NewEntityReader(db)
	gamma, err := reader.FindEntityByName("Gamma", nil, "")
	require.NoError(t, err)
	assert.NotNil(t, gamma)

	alpha, err := reader.FindEntityByName("Alpha", nil, "")
	require.NoError(t, err)
	assert.Nil(t, alpha)
}

func TestBuilder_DeletionPrunes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rootDir := t.TempDir()
	idx, db := newTestIndexer(t, rootDir)

	writeFile(t, filepath.Join(rootDir, "keep.hpp"), "class Keep {};\n")
	writeFile(t, filepath.Join(rootDir, "drop.hpp"), "class Drop {};\n")

	_, err := idx.Build(ctx, false)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(rootDir, "drop.hpp")))

	report, err := idx.Update(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.DeletedFiles)
	assert.Equal(t, 1, report.TotalFiles)

	reader := storage.NewEntityReader(db)
	dropped, err := reader.FindEntityByName("Drop", nil, "")
	require.NoError(t, err)
	assert.Nil(t, dropped, "entities of a deleted file survived the update")

	fileReader := storage.NewFileReader(db)
	record, err := fileReader.GetFileRecord("drop.hpp")
	require.NoError(t, err)
	assert.Nil(t, record)

	kept, err := reader.FindEntityByName("Keep", nil, "")
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestBuilder_RebuildReparsesEverything(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	idx, db := newTestIndexer(t, "../../testdata/code/cpp")

	_, err := idx.Build(ctx, false)
	require.NoError(t, err)

	reader := storage.NewEntityReader(db)
	before, err := reader.GetStats()
	require.NoError(t, err)

	report, err := idx.Build(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 2, report.ParsedFiles)
	assert.Equal(t, 0, report.SkippedFiles)

	after, err := reader.GetStats()
	require.NoError(t, err)
	assert.Equal(t, before.TotalEntities, after.TotalEntities)
	assert.Equal(t, before.Relationships, after.Relationships)
}

// The base class is discovered after the derived class (z_ prefix sorts it
// last), yet linking still produces exactly one correct edge.
func TestBuilder_LinkingOrderIndependent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rootDir := t.TempDir()
	idx, db := newTestIndexer(t, rootDir)

	writeFile(t, filepath.Join(rootDir, "a_derived.hpp"), "class Derived : public Base {};\n")
	writeFile(t, filepath.Join(rootDir, "z_base.hpp"), "class Base {};\n")

	_, err := idx.Build(ctx, false)
	require.NoError(t, err)

	reader := storage.NewEntityReader(db)
	edges, err := reader.ListRelationships(storage.RelationInheritsFrom)
	require.NoError(t, err)
	require.Len(t, edges, 1)

	derived, err := reader.FindEntityByName("Derived", nil, "")
	require.NoError(t, err)
	base, err := reader.FindEntityByName("Base", nil, "")
	require.NoError(t, err)

	assert.Equal(t, derived.ID, edges[0].FromEntityID)
	assert.Equal(t, base.ID, edges[0].ToEntityID)
	require.NotNil(t, edges[0].Data)
	assert.Equal(t, storage.AccessPublic, edges[0].Data.Access)
	assert.False(t, edges[0].Data.IsVirtual)
}

// A base that arrives in a later run is linked by that run's pass, because
// linking is unconditional on every build and update.
func TestBuilder_LateArrivingBaseGetsLinked(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rootDir := t.TempDir()
	idx, db := newTestIndexer(t, rootDir)

	writeFile(t, filepath.Join(rootDir, "derived.hpp"), "class Derived : public Base {};\n")

	first, err := idx.Build(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 0, first.RelationshipsLinked)

	writeFile(t, filepath.Join(rootDir, "base.hpp"), "class Base {};\n")

	second, err := idx.Update(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, second.ParsedFiles, "only the new file should parse")
	assert.Equal(t, 1, second.RelationshipsLinked)

	reader := storage.NewEntityReader(db)
	edges, err := reader.ListRelationships(storage.RelationInheritsFrom)
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}

func TestBuilder_BaseFooScenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rootDir := t.TempDir()
	idx, db := newTestIndexer(t, rootDir)

	writeFile(t, filepath.Join(rootDir, "foo.hpp"), `class Base {
public:
    int x;
};

class Foo : public Base {
public:
    void bar();
};
`)

	report, err := idx.Build(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, report.EntitiesStored)
	assert.Equal(t, 1, report.RelationshipsLinked)

	reader := storage.NewEntityReader(db)

	base, err := reader.FindEntityByName("Base", nil, storage.EntityClass)
	require.NoError(t, err)
	require.NotNil(t, base)
	fields, err := reader.GetEntityMembers(base.ID, storage.MemberField)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "x", fields[0].Name)
	assert.Equal(t, "int", fields[0].DataType)
	assert.Equal(t, storage.AccessPublic, fields[0].Visibility)

	foo, err := reader.FindEntityByName("Foo", nil, storage.EntityClass)
	require.NoError(t, err)
	require.NotNil(t, foo)
	methods, err := reader.GetEntityMembers(foo.ID, storage.MemberMethod)
	require.NoError(t, err)
	require.Len(t, methods, 1)
	assert.Equal(t, "bar", methods[0].Name)

	edges, err := reader.GetRelationships(foo.ID, storage.RelationInheritsFrom, storage.DirectionFrom)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, base.ID, edges[0].ToEntityID)
	require.NotNil(t, edges[0].Data)
	assert.Equal(t, storage.AccessPublic, edges[0].Data.Access)
	assert.False(t, edges[0].Data.IsVirtual)
}

// New() owns a file-backed store: data written by one instance is visible
// after closing and reopening.
func TestBuilder_FileBackedStoreSurvivesReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rootDir := t.TempDir()
	writeFile(t, filepath.Join(rootDir, "app.hpp"), "class App {};\n")

	config := DefaultConfig(rootDir)

	idx, err := New(config)
	require.NoError(t, err)

	_, err = idx.Build(ctx, false)
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	assert.True(t, storage.Exists(config.StorePath))

	reopened, err := New(config)
	require.NoError(t, err)
	defer reopened.Close()

	report, err := reopened.Update(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.ParsedFiles)
	assert.Equal(t, 1, report.SkippedFiles)
}

func TestBuilder_ContextCancellation(t *testing.T) {
	t.Parallel()

	rootDir := t.TempDir()
	writeFile(t, filepath.Join(rootDir, "a.cpp"), "class A {};\n")
	idx, _ := newTestIndexer(t, rootDir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := idx.Build(ctx, false)
	assert.ErrorIs(t, err, context.Canceled)
}

package mcp

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/cpp-cortex/internal/graph"
	"github.com/mvp-joe/cpp-cortex/internal/storage"
)

// setupTestServer builds a Server over db. Seed the store before calling:
// the hierarchy graph and symbol index are loaded at construction.
func setupTestServer(t *testing.T, db *sql.DB) *Server {
	t.Helper()

	srv, err := NewServer(context.Background(), db, "test")
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv
}

// addInheritsEdge records that derived inherits from base.
func addInheritsEdge(t *testing.T, w *storage.EntityWriter, derived, base int64) {
	t.Helper()

	_, err := w.AddRelationship(derived, base, storage.RelationInheritsFrom,
		&storage.RelationshipData{Access: storage.AccessPublic})
	require.NoError(t, err)
}

func TestNewServer_RequiresDB(t *testing.T) {
	t.Parallel()

	srv, err := NewServer(context.Background(), nil, "test")
	require.Error(t, err)
	assert.Nil(t, srv)
	assert.Contains(t, err.Error(), "database handle is required")
}

func TestNewServer_LoadsExistingStore(t *testing.T) {
	t.Parallel()

	db := storage.NewTestDB(t)
	w := storage.NewEntityWriter(db)
	addSymbolEntity(t, w, "Shape", "geo", storage.EntityClass)

	srv := setupTestServer(t, db)

	results, err := srv.symbols.Search(context.Background(), "Shape", nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "geo::Shape", results[0].QualifiedName)
}

func TestServer_RefreshSkippedWhenRunUnchanged(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := storage.NewTestDB(t)
	w := storage.NewEntityWriter(db)
	addSymbolEntity(t, w, "Shape", "geo", storage.EntityClass)

	srv := setupTestServer(t, db)

	// New entity without a new run id stays invisible to the fuzzy index
	addSymbolEntity(t, w, "Texture", "render", storage.EntityClass)
	srv.refreshIfStale(ctx)

	results, err := srv.symbols.Search(ctx, "Texture", nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestServer_RefreshOnNewRun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := storage.NewTestDB(t)
	w := storage.NewEntityWriter(db)
	shapeID := addSymbolEntity(t, w, "Shape", "geo", storage.EntityClass)

	srv := setupTestServer(t, db)

	// Simulate an index run completing behind the server
	textureID := addSymbolEntity(t, w, "Texture", "render", storage.EntityClass)
	addInheritsEdge(t, w, textureID, shapeID)
	require.NoError(t, storage.SetMetadata(db, storage.MetaLastRunID, "run-2"))

	srv.refreshIfStale(ctx)

	// Fuzzy index sees the new entity
	results, err := srv.symbols.Search(ctx, "Texture", nil)
	require.NoError(t, err)
	require.Len(t, results, 1)

	// Hierarchy graph sees the new edge
	resp, err := srv.hierarchy.Query(ctx, &graph.QueryRequest{
		Name:      "Shape",
		Direction: graph.DirectionDerived,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Texture", resp.Results[0].Node.Name)
}

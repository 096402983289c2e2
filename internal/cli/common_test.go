package cli

// Test Plan for CLI Helpers:
// - openStore refuses to open a store that was never built
// - openStore opens an existing store and reports its path
// - loadProjectConfig honors the global --config flag
// - qualifiedName joins namespace and name with "::"
// - formatNumber inserts thousand separators
// - truncate shortens long strings with an ellipsis

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/cpp-cortex/internal/config"
	"github.com/mvp-joe/cpp-cortex/internal/storage"
)

// chdir switches the working directory for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()

	originalWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(originalWd) })
}

// seedProjectStore creates <root>/.cpp-cortex/index.db with a small class
// hierarchy, mirroring what an index run would leave behind.
func seedProjectStore(t *testing.T, rootDir string) {
	t.Helper()

	storePath := filepath.Join(rootDir, ".cpp-cortex", "index.db")
	db, err := storage.Open(storePath)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, storage.Initialize(db, "demo"))

	w := storage.NewEntityWriter(db)

	shapeID, err := w.AddEntity(&storage.Entity{
		Name:       "Shape",
		EntityType: storage.EntityClass,
		Namespace:  "geo",
		FilePath:   "src/geo/shape.hpp",
		LineNumber: 10,
		DeclType:   storage.DeclDefinition,
		Class:      &storage.ClassData{},
		Members: []storage.Member{
			{
				MemberType: storage.MemberField,
				Name:       "scale_",
				DataType:   "double",
				Visibility: storage.AccessPrivate,
				Ordinal:    0,
			},
			{
				MemberType: storage.MemberMethod,
				Name:       "area",
				DataType:   "double",
				Visibility: storage.AccessPublic,
				Ordinal:    1,
				Method:     &storage.MethodData{IsConst: true, IsVirtual: true},
			},
		},
	})
	require.NoError(t, err)

	circleID, err := w.AddEntity(&storage.Entity{
		Name:       "Circle",
		EntityType: storage.EntityClass,
		Namespace:  "geo",
		FilePath:   "src/geo/circle.hpp",
		LineNumber: 8,
		DeclType:   storage.DeclDefinition,
		Class: &storage.ClassData{
			BaseClasses: []storage.BaseClass{{Name: "Shape", Access: storage.AccessPublic}},
		},
	})
	require.NoError(t, err)

	_, err = w.AddEntity(&storage.Entity{
		Name:       "normalize",
		EntityType: storage.EntityFunction,
		Namespace:  "",
		FilePath:   "src/util.hpp",
		LineNumber: 3,
		DeclType:   storage.DeclDeclaration,
		Function:   &storage.FunctionData{ReturnType: "double"},
	})
	require.NoError(t, err)

	_, err = w.AddRelationship(circleID, shapeID, storage.RelationInheritsFrom,
		&storage.RelationshipData{Access: storage.AccessPublic})
	require.NoError(t, err)

	require.NoError(t, storage.SetMetadata(db, storage.MetaLastRunID, "run-1"))
	require.NoError(t, storage.SetMetadata(db, storage.MetaLastRunAt, time.Now().UTC().Format(time.RFC3339Nano)))
}

func TestOpenStore_RefusesMissingStore(t *testing.T) {
	// Test: openStore refuses to open a store that was never built
	tempDir := t.TempDir()
	cfg := config.Default()

	db, _, err := openStore(tempDir, cfg)

	require.Error(t, err)
	assert.Nil(t, db)
	assert.Contains(t, err.Error(), "no index found")
	assert.Contains(t, err.Error(), "cpp-cortex index")
}

func TestOpenStore_OpensExistingStore(t *testing.T) {
	// Test: openStore opens an existing store and reports its path
	tempDir := t.TempDir()
	seedProjectStore(t, tempDir)
	cfg := config.Default()

	db, storePath, err := openStore(tempDir, cfg)

	require.NoError(t, err)
	require.NotNil(t, db)
	defer db.Close()

	assert.Equal(t, filepath.Join(tempDir, ".cpp-cortex", "index.db"), storePath)

	reader := storage.NewEntityReader(db)
	entities, err := reader.SearchEntities(storage.SearchFilter{NamePattern: "Shape"})
	require.NoError(t, err)
	assert.Len(t, entities, 1)
}

func TestLoadProjectConfig_ConfigFlagOverride(t *testing.T) {
	// Test: loadProjectConfig honors the global --config flag
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "custom.yml")
	require.NoError(t, os.WriteFile(configPath, []byte("storage:\n  path: custom.db\n"), 0644))

	cfgFile = configPath
	defer func() { cfgFile = "" }()

	cfg, err := loadProjectConfig(tempDir)

	require.NoError(t, err)
	assert.Equal(t, "custom.db", cfg.Storage.Path)
}

func TestQualifiedName(t *testing.T) {
	// Test: qualifiedName joins namespace and name with "::"
	assert.Equal(t, "geo::Shape", qualifiedName(&storage.Entity{Name: "Shape", Namespace: "geo"}))
	assert.Equal(t, "Shape", qualifiedName(&storage.Entity{Name: "Shape"}))
}

func TestFormatNumber(t *testing.T) {
	// Test: formatNumber inserts thousand separators
	assert.Equal(t, "0", formatNumber(0))
	assert.Equal(t, "999", formatNumber(999))
	assert.Equal(t, "1,000", formatNumber(1000))
	assert.Equal(t, "1,234,567", formatNumber(1234567))
}

func TestTruncate(t *testing.T) {
	// Test: truncate shortens long strings with an ellipsis
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly-10", truncate("exactly-10", 10))
	assert.Equal(t, "this-is...", truncate("this-is-too-long", 10))
}

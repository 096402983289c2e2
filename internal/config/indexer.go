package config

import (
	"path/filepath"

	"github.com/mvp-joe/cpp-cortex/internal/indexer"
)

// ToIndexerConfig converts a Config to an indexer.Config.
// The rootDir parameter specifies the root directory of the codebase to index.
func (c *Config) ToIndexerConfig(rootDir string) *indexer.Config {
	return &indexer.Config{
		RootDir:         rootDir,
		IncludePatterns: c.Paths.Include,
		IgnorePatterns:  c.Paths.Ignore,
		StorePath:       c.StorePath(rootDir),
		EntityKinds:     c.Index.Entities,
	}
}

// StorePath resolves the store location for rootDir. An empty configured
// path means the default store inside the project's .cpp-cortex directory;
// a relative path is resolved against rootDir.
func (c *Config) StorePath(rootDir string) string {
	path := c.Storage.Path
	switch {
	case path == "":
		return filepath.Join(rootDir, indexer.StoreDirName, indexer.DefaultStoreFile)
	case filepath.IsAbs(path):
		return path
	default:
		return filepath.Join(rootDir, path)
	}
}

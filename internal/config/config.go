package config

import (
	"github.com/mvp-joe/cpp-cortex/internal/indexer"
)

// Config represents the complete cpp-cortex configuration.
// It can be loaded from .cpp-cortex/config.yml with environment variable
// overrides.
type Config struct {
	Paths   PathsConfig   `yaml:"paths" mapstructure:"paths"`
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
	Index   IndexConfig   `yaml:"index" mapstructure:"index"`
}

// PathsConfig defines which files to index and which to ignore.
type PathsConfig struct {
	Include []string `yaml:"include" mapstructure:"include"` // glob patterns for C++ sources
	Ignore  []string `yaml:"ignore" mapstructure:"ignore"`   // glob patterns to skip
}

// StorageConfig defines where the symbol store lives.
type StorageConfig struct {
	// Path overrides the default <root>/.cpp-cortex/index.db location.
	// A relative path is resolved against the project root.
	Path string `yaml:"path" mapstructure:"path"`
}

// IndexConfig narrows what the indexer extracts.
type IndexConfig struct {
	// Entities restricts extraction to the listed kinds
	// (class, enum, function, typedef). Empty means all of them.
	Entities []string `yaml:"entities" mapstructure:"entities"`
}

// Default returns a configuration with sensible defaults. Include and
// ignore patterns come from the indexer so the two cannot drift.
func Default() *Config {
	base := indexer.DefaultConfig("")

	return &Config{
		Paths: PathsConfig{
			Include: base.IncludePatterns,
			Ignore:  base.IgnorePatterns,
		},
		Storage: StorageConfig{
			Path: "", // Empty means <root>/.cpp-cortex/index.db
		},
		Index: IndexConfig{
			Entities: nil,
		},
	}
}

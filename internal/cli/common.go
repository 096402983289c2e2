package cli

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/mvp-joe/cpp-cortex/internal/config"
	"github.com/mvp-joe/cpp-cortex/internal/storage"
)

// projectRoot returns the directory whose index the CLI operates on.
// Commands always run against the current working directory.
func projectRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return wd, nil
}

// loadProjectConfig loads the project configuration, honoring the global
// --config flag when set.
func loadProjectConfig(rootDir string) (*config.Config, error) {
	if cfgFile != "" {
		return config.NewFileLoader(rootDir, cfgFile).Load()
	}
	return config.LoadConfigFromDir(rootDir)
}

// openStore opens the project's index store for querying. It refuses to
// create a missing store; only 'cpp-cortex index' creates one.
func openStore(rootDir string, cfg *config.Config) (*sql.DB, string, error) {
	storePath := cfg.StorePath(rootDir)
	if !storage.Exists(storePath) {
		return nil, "", fmt.Errorf("no index found at %s (run 'cpp-cortex index' first)", storePath)
	}

	db, err := storage.Open(storePath)
	if err != nil {
		return nil, "", err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Store: %s\n", storePath)
	}

	return db, storePath, nil
}

// qualifiedName renders an entity name with its namespace prefix.
func qualifiedName(e *storage.Entity) string {
	if e.Namespace == "" {
		return e.Name
	}
	return e.Namespace + "::" + e.Name
}

// formatNumber formats integer with thousand separators.
// Examples: 1234 -> "1,234", 1234567 -> "1,234,567"
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	var result string
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return result
}

// truncate truncates a string to the specified length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

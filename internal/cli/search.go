package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/cpp-cortex/internal/storage"
)

var (
	searchTypes     []string
	searchNamespace string
	searchDecl      string
	searchFile      string
	searchLimit     int
)

var validEntityTypes = map[string]bool{
	storage.EntityClass:    true,
	storage.EntityEnum:     true,
	storage.EntityFunction: true,
	storage.EntityTypedef:  true,
}

var validDeclTypes = map[string]bool{
	storage.DeclDeclaration:        true,
	storage.DeclDefinition:         true,
	storage.DeclForwardDeclaration: true,
}

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <pattern>",
	Short: "Search indexed entities by name",
	Long: `Search looks up indexed entities whose name contains the given pattern
(case-insensitive). Results can be narrowed by entity type, namespace,
declaration kind, and file path.

Examples:
  # All entities whose name contains "shape"
  cpp-cortex search shape

  # Classes only
  cpp-cortex search shape --type class

  # Definitions in the geo namespace
  cpp-cortex search shape --namespace geo --decl definition

  # Entities declared under include/
  cpp-cortex search shape --file include/
`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringSliceVarP(&searchTypes, "type", "t", nil, "Entity types (class, enum, function, typedef)")
	searchCmd.Flags().StringVarP(&searchNamespace, "namespace", "n", "", "Exact namespace match")
	searchCmd.Flags().StringVarP(&searchDecl, "decl", "d", "", "Declaration kind (declaration, definition, forward_declaration)")
	searchCmd.Flags().StringVarP(&searchFile, "file", "f", "", "File path substring match")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 50, "Maximum number of results (0 = unlimited)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	for _, entityType := range searchTypes {
		if !validEntityTypes[entityType] {
			return fmt.Errorf("invalid type: %s (must be one of: class, enum, function, typedef)", entityType)
		}
	}
	if searchDecl != "" && !validDeclTypes[searchDecl] {
		return fmt.Errorf("invalid decl: %s (must be one of: declaration, definition, forward_declaration)", searchDecl)
	}

	rootDir, err := projectRoot()
	if err != nil {
		return err
	}
	cfg, err := loadProjectConfig(rootDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	db, _, err := openStore(rootDir, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	reader := storage.NewEntityReader(db)
	entities, err := reader.SearchEntities(storage.SearchFilter{
		NamePattern: args[0],
		Types:       searchTypes,
		Namespace:   searchNamespace,
		DeclType:    searchDecl,
		FilePattern: searchFile,
		Limit:       searchLimit,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(entities) == 0 {
		fmt.Println("No entities found")
		return nil
	}

	// Print header
	fmt.Printf("%-30s %-10s %-20s %-20s %s\n",
		"Name", "Kind", "Namespace", "Decl", "Location")
	fmt.Println(strings.Repeat("-", 100))

	for _, e := range entities {
		namespace := e.Namespace
		if namespace == "" {
			namespace = "(global)"
		}
		fmt.Printf("%-30s %-10s %-20s %-20s %s:%d\n",
			truncate(e.Name, 30),
			e.EntityType,
			truncate(namespace, 20),
			e.DeclType,
			e.FilePath,
			e.LineNumber)
	}

	fmt.Println()
	fmt.Printf("Total: %d match(es)\n", len(entities))

	return nil
}

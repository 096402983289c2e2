package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/cpp-cortex/internal/graph"
)

var (
	hierarchyNamespace string
	hierarchyDirection string
	hierarchyDepth     int
)

// hierarchyCmd represents the hierarchy command
var hierarchyCmd = &cobra.Command{
	Use:   "hierarchy <class-name>",
	Short: "Show the inheritance hierarchy of a class",
	Long: `Hierarchy resolves a class by name and walks its inheritance
relationships: derived classes, base classes, or both.

Depth counts hops from the root: direct bases and subclasses are depth 1.

Examples:
  cpp-cortex hierarchy Shape
  cpp-cortex hierarchy Shape --direction derived --depth 3
  cpp-cortex hierarchy Widget --namespace ui --direction bases
`,
	Args: cobra.ExactArgs(1),
	RunE: runHierarchy,
}

func init() {
	rootCmd.AddCommand(hierarchyCmd)
	hierarchyCmd.Flags().StringVarP(&hierarchyNamespace, "namespace", "n", "", "Exact namespace of the class")
	hierarchyCmd.Flags().StringVarP(&hierarchyDirection, "direction", "d", "both", "Walk direction (derived, bases, both)")
	hierarchyCmd.Flags().IntVar(&hierarchyDepth, "depth", 1, "Traversal depth (max 10)")
}

func runHierarchy(cmd *cobra.Command, args []string) error {
	direction := graph.Direction(hierarchyDirection)
	switch direction {
	case graph.DirectionDerived, graph.DirectionBases, graph.DirectionBoth:
	default:
		return fmt.Errorf("invalid direction: %s (must be one of: derived, bases, both)", hierarchyDirection)
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

	searcher, err := graph.NewSearcher(db)
	if err != nil {
		return fmt.Errorf("failed to load hierarchy graph: %w", err)
	}
	defer searcher.Close()

	// Set only when the flag was given; nil matches any namespace
	var namespace *string
	if cmd.Flags().Changed("namespace") {
		namespace = &hierarchyNamespace
	}

	resp, err := searcher.Query(context.Background(), &graph.QueryRequest{
		Name:      args[0],
		Namespace: namespace,
		Direction: direction,
		Depth:     hierarchyDepth,
	})
	if err != nil {
		return err
	}

	root := resp.Root
	fmt.Printf("%s (%s:%d)\n", root.QualifiedName(), root.FilePath, root.LineNumber)

	if len(resp.Results) == 0 {
		fmt.Println("No related classes found")
		return nil
	}
	fmt.Println()

	// Print header
	fmt.Printf("%-10s %-6s %-35s %s\n", "Relation", "Depth", "Class", "Location")
	fmt.Println(strings.Repeat("-", 90))

	for _, r := range resp.Results {
		line := fmt.Sprintf("%-10s %-6d %-35s %s:%d",
			string(r.Relation),
			r.Depth,
			truncate(r.Node.QualifiedName(), 35),
			r.Node.FilePath,
			r.Node.LineNumber)
		if verbose && r.Access != "" {
			marker := r.Access
			if r.IsVirtual {
				marker += " virtual"
			}
			line += "  [" + marker + "]"
		}
		fmt.Println(line)
	}

	fmt.Println()
	if resp.Truncated {
		fmt.Printf("Total: %d of %d (truncated)\n", resp.TotalReturned, resp.TotalFound)
	} else {
		fmt.Printf("Total: %d class(es)\n", resp.TotalReturned)
	}

	return nil
}

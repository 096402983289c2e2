package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/cpp-cortex/internal/storage"
)

var (
	membersNamespace string
	membersType      string
)

// membersCmd represents the members command
var membersCmd = &cobra.Command{
	Use:   "members <class-name>",
	Short: "List the fields and methods of a class",
	Long: `Members resolves a class or struct by name and lists its fields and
methods in declaration order.

When several indexed classes share the name, --namespace picks one;
without it the first stored match wins.

Examples:
  cpp-cortex members Shape
  cpp-cortex members Shape --namespace geo
  cpp-cortex members Shape --type method
`,
	Args: cobra.ExactArgs(1),
	RunE: runMembers,
}

func init() {
	rootCmd.AddCommand(membersCmd)
	membersCmd.Flags().StringVarP(&membersNamespace, "namespace", "n", "", "Exact namespace of the class")
	membersCmd.Flags().StringVarP(&membersType, "type", "t", "", "Member kind (field or method)")
}

func runMembers(cmd *cobra.Command, args []string) error {
	if membersType != "" && membersType != storage.MemberField && membersType != storage.MemberMethod {
		return fmt.Errorf("invalid type: %s (must be 'field' or 'method')", membersType)
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

	// Set only when the flag was given; nil matches any namespace and ""
	// selects the global scope
	var namespace *string
	if cmd.Flags().Changed("namespace") {
		namespace = &membersNamespace
	}

	entity, err := reader.FindEntityByName(args[0], namespace, storage.EntityClass)
	if err != nil {
		return fmt.Errorf("failed to resolve class: %w", err)
	}
	if entity == nil {
		return fmt.Errorf("class not found: %s", args[0])
	}

	members, err := reader.GetEntityMembers(entity.ID, membersType)
	if err != nil {
		return fmt.Errorf("failed to load members: %w", err)
	}

	fmt.Printf("%s (%s:%d)\n", qualifiedName(entity), entity.FilePath, entity.LineNumber)

	if len(members) == 0 {
		fmt.Println("No members recorded")
		return nil
	}
	fmt.Println()

	// Print header
	fmt.Printf("%-25s %-8s %-25s %-10s %s\n",
		"Name", "Kind", "Type", "Access", "Attributes")
	fmt.Println(strings.Repeat("-", 90))

	for _, m := range members {
		fmt.Printf("%-25s %-8s %-25s %-10s %s\n",
			truncate(m.Name, 25),
			m.MemberType,
			truncate(m.DataType, 25),
			m.Visibility,
			memberAttributes(m))
	}

	fmt.Println()
	fmt.Printf("Total: %d member(s)\n", len(members))

	return nil
}

// memberAttributes renders the static/const/virtual markers of a member.
func memberAttributes(m storage.Member) string {
	var attrs []string
	if m.IsStatic {
		attrs = append(attrs, "static")
	}
	if m.Method != nil {
		if m.Method.IsConst {
			attrs = append(attrs, "const")
		}
		if m.Method.IsPureVirtual {
			attrs = append(attrs, "pure virtual")
		} else if m.Method.IsVirtual {
			attrs = append(attrs, "virtual")
		}
	}
	if len(attrs) == 0 {
		return "-"
	}
	return strings.Join(attrs, ", ")
}

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/cpp-cortex/internal/storage"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Long: `Stats summarizes the index store: entity counts by type, tracked files,
relationships, store size, and the metadata of the last run.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	rootDir, err := projectRoot()
	if err != nil {
		return err
	}
	cfg, err := loadProjectConfig(rootDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	db, storePath, err := openStore(rootDir, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	reader := storage.NewEntityReader(db)
	stats, err := reader.GetStats()
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}

	projectName, _ := storage.GetMetadata(db, storage.MetaProjectName)
	schemaVersion, err := storage.GetSchemaVersion(db)
	if err != nil {
		schemaVersion = "unknown"
	}
	lastRunID, _ := storage.GetMetadata(db, storage.MetaLastRunID)
	lastRunAt, _ := storage.GetMetadata(db, storage.MetaLastRunAt)

	fmt.Println("Index Store:")
	if projectName != "" {
		fmt.Printf("  Project: %s\n", projectName)
	}
	fmt.Printf("  Path:    %s\n", storePath)
	fmt.Printf("  Schema:  %s\n", schemaVersion)
	fmt.Printf("  Size:    %.2f MB\n", float64(stats.StoreSizeBytes)/(1024*1024))
	fmt.Println()

	fmt.Println("Contents:")
	fmt.Printf("  Entities:      %s\n", formatNumber(stats.TotalEntities))
	for _, entityType := range []string{storage.EntityClass, storage.EntityEnum, storage.EntityFunction, storage.EntityTypedef} {
		if n, ok := stats.EntitiesByType[entityType]; ok {
			fmt.Printf("    %-10s %s\n", entityType, formatNumber(n))
		}
	}
	fmt.Printf("  Files:         %s\n", formatNumber(stats.FilesTracked))
	fmt.Printf("  Relationships: %s\n", formatNumber(stats.Relationships))
	fmt.Println()

	fmt.Println("Last Run:")
	if lastRunID == "" {
		fmt.Println("  Never indexed")
		return nil
	}
	fmt.Printf("  Run ID: %s\n", lastRunID)
	if lastRunAt != "" {
		fmt.Printf("  At:     %s\n", formatRunTime(lastRunAt))
	}

	return nil
}

// formatRunTime renders a stored RFC 3339 run timestamp as local time with
// a relative suffix. Unparseable values pass through unchanged.
func formatRunTime(value string) string {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return value
	}
	return fmt.Sprintf("%s (%s)", ts.Local().Format("2006-01-02 15:04:05"), formatTimeSince(ts))
}

// formatTimeSince formats a timestamp as time ago.
// Examples: "5m ago", "2h ago", "3d ago"
func formatTimeSince(t time.Time) string {
	since := time.Since(t)

	days := int(since.Hours() / 24)
	hours := int(since.Hours()) % 24
	minutes := int(since.Minutes()) % 60

	if days > 0 {
		if hours > 0 {
			return fmt.Sprintf("%dd %dh ago", days, hours)
		}
		return fmt.Sprintf("%dd ago", days)
	}

	if hours > 0 {
		if minutes > 0 {
			return fmt.Sprintf("%dh %dm ago", hours, minutes)
		}
		return fmt.Sprintf("%dh ago", hours)
	}

	if minutes > 0 {
		return fmt.Sprintf("%dm ago", minutes)
	}

	return fmt.Sprintf("%ds ago", int(since.Seconds()))
}

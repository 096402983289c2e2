package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cpp-cortex",
	Short: "cpp-cortex - C++ code indexer and query tool",
	Long: `cpp-cortex indexes C++ codebases into a local SQLite store and answers
structural queries about them: entity search, class members, inheritance
hierarchies, and index statistics.

The index lives in .cpp-cortex/index.db under the project root. Parsing
uses tree-sitter, so no compiler or build system is required.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <root>/.cpp-cortex/config.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

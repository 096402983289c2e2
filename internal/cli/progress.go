package cli

import (
	"fmt"
	"log"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/cpp-cortex/internal/indexer"
)

// CLIProgressReporter implements progress reporting with progress bars.
type CLIProgressReporter struct {
	quiet    bool
	parseBar *progressbar.ProgressBar
}

// NewCLIProgressReporter creates a new CLI progress reporter.
func NewCLIProgressReporter(quiet bool) *CLIProgressReporter {
	return &CLIProgressReporter{quiet: quiet}
}

func (c *CLIProgressReporter) OnDiscoveryStart() {
	if c.quiet {
		return
	}
	log.Println("Discovering files...")
}

func (c *CLIProgressReporter) OnDiscoveryComplete(totalFiles int) {
	if c.quiet {
		return
	}
	log.Printf("Found %d candidate file(s)\n", totalFiles)
}

func (c *CLIProgressReporter) OnParsingStart(filesToParse int) {
	if c.quiet || filesToParse == 0 {
		return
	}

	c.parseBar = progressbar.NewOptions(filesToParse,
		progressbar.OptionSetDescription("Parsing files"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)
}

func (c *CLIProgressReporter) OnFileParsed(relPath string, entities int) {
	if c.quiet {
		return
	}
	if c.parseBar != nil {
		c.parseBar.Add(1)
	}
}

func (c *CLIProgressReporter) OnLinkingStart() {
	if c.quiet {
		return
	}
	// Failed files never reach the bar, so it may not have completed
	if c.parseBar != nil {
		c.parseBar.Finish()
		c.parseBar = nil
	}
	log.Println("Linking inheritance relationships...")
}

func (c *CLIProgressReporter) OnComplete(report *indexer.Report) {
	if c.quiet {
		return
	}

	fmt.Println()
	fmt.Printf("✓ Indexing complete: %s entities in %.1fs\n",
		formatNumber(report.EntitiesStored), report.Duration.Seconds())
	fmt.Printf("  Parsed:        %s file(s)\n", formatNumber(report.ParsedFiles))
	fmt.Printf("  Unchanged:     %s file(s)\n", formatNumber(report.SkippedFiles))
	if report.FailedFiles > 0 {
		fmt.Printf("  Failed:        %s file(s)\n", formatNumber(report.FailedFiles))
	}
	if report.DeletedFiles > 0 {
		fmt.Printf("  Pruned:        %s file(s)\n", formatNumber(report.DeletedFiles))
	}
	fmt.Printf("  Relationships: %s\n", formatNumber(report.RelationshipsLinked))
}

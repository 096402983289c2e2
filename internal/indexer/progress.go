package indexer

// ProgressReporter provides callbacks for reporting indexing progress.
// Implementations can display progress bars, log messages, or remain silent.
type ProgressReporter interface {
	// OnDiscoveryStart is called when file discovery begins.
	OnDiscoveryStart()

	// OnDiscoveryComplete is called when file discovery finishes.
	OnDiscoveryComplete(totalFiles int)

	// OnParsingStart is called before parsing begins, with the number of
	// files that will actually be (re)parsed.
	OnParsingStart(filesToParse int)

	// OnFileParsed is called after each file is parsed and stored.
	OnFileParsed(relPath string, entities int)

	// OnLinkingStart is called before the relationship-linking pass.
	OnLinkingStart()

	// OnComplete is called when a build or update finishes successfully.
	OnComplete(report *Report)
}

// NoOpProgressReporter is a progress reporter that does nothing.
// Used when progress reporting is disabled (e.g., --quiet flag).
type NoOpProgressReporter struct{}

func (n *NoOpProgressReporter) OnDiscoveryStart()                         {}
func (n *NoOpProgressReporter) OnDiscoveryComplete(totalFiles int)        {}
func (n *NoOpProgressReporter) OnParsingStart(filesToParse int)           {}
func (n *NoOpProgressReporter) OnFileParsed(relPath string, entities int) {}
func (n *NoOpProgressReporter) OnLinkingStart()                           {}
func (n *NoOpProgressReporter) OnComplete(report *Report)                 {}

package parsers

import "github.com/mvp-joe/cpp-cortex/internal/storage"

// Result is the outcome of parsing a single source file.
//
// Per-file failures travel in Err instead of aborting anything: a file that
// cannot be read or parsed carries an empty Entities slice and a non-nil
// Err, and the index builder records it as failed while continuing with the
// rest of the scan.
type Result struct {
	// FilePath is the path the entities were recorded under.
	FilePath string

	// Entities holds every extracted declaration in source order.
	Entities []*storage.Entity

	// Err is the read or parse error, nil on success.
	Err error
}

// Failed reports whether the file produced a read or parse error.
func (r *Result) Failed() bool {
	return r.Err != nil
}

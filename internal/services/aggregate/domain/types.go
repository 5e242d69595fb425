// Package domain holds the data structures and ports of the aggregation job
package domain

import (
	"slices"
	"time"

	"ghscore/internal/adapters/ingest/gharchive"
	perr "ghscore/internal/platform/errors"
)

// HourRef re-exports the archive hour bucket parsed from file names
type HourRef = gharchive.HourRef

// FileResult is the outcome of one archive file
type FileResult struct {
	Path    string
	Hour    HourRef
	HasHour bool

	Lines           int64 // non-blank lines read
	Unclassified    int64 // lines without a type tag
	Decoded         int64 // pull request and push lines decoded
	BadLines        int64 // classified lines that failed to decode
	Bytes           int64
	CompressedBytes int64
	Repos           int // entries in this file's store
	NameConflicts   uint64
	Elapsed         time.Duration

	// Err is set when the file could not be read to the end. Its counts are not merged
	Err error
}

// OK reports whether the file was read to the end
func (r FileResult) OK() bool { return r.Err == nil }

// Code is the error code label for metrics and logs, "ok" on success
func (r FileResult) Code() string {
	if r.Err == nil {
		return "ok"
	}
	return perr.CodeOf(r.Err).String()
}

// RunReport describes one job run over a set of files
type RunReport struct {
	Files   []FileResult // in input order; files never dispatched stay zero and are counted in Skipped
	Skipped int
	Elapsed time.Duration
}

// Totals adds up counters over the files that were read to the end
type Totals struct {
	Files           int
	Failed          int
	Lines           int64
	Unclassified    int64
	Decoded         int64
	BadLines        int64
	Bytes           int64
	CompressedBytes int64
}

// Totals sums the per-file counters. Lines and bytes of failed files count too
func (r RunReport) Totals() Totals {
	var t Totals
	for _, f := range r.Files {
		if f.Path == "" {
			continue
		}
		t.Files++
		if !f.OK() {
			t.Failed++
		}
		t.Lines += f.Lines
		t.Unclassified += f.Unclassified
		t.Decoded += f.Decoded
		t.BadLines += f.BadLines
		t.Bytes += f.Bytes
		t.CompressedBytes += f.CompressedBytes
	}
	return t
}

// AllFailed reports whether files were attempted and none of them succeeded
func (r RunReport) AllFailed() bool {
	t := r.Totals()
	return t.Files > 0 && t.Failed == t.Files
}

// Hours lists the distinct archive hours of files read to the end, oldest first.
// Files whose names carry no hour are left out
func (r RunReport) Hours() []HourRef {
	var out []HourRef
	for _, f := range r.Files {
		if f.Path == "" || !f.OK() || !f.HasHour {
			continue
		}
		if !slices.Contains(out, f.Hour) {
			out = append(out, f.Hour)
		}
	}
	slices.SortFunc(out, func(a, b HourRef) int { return a.UTC().Compare(b.UTC()) })
	return out
}

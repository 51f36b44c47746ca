// Package ingest folds one locally produced classification into the scan log.
//
// Ingest is pure: it takes the current log and returns the next one. The
// engine owns the log and persists the returned value before acknowledging.
package ingest

import (
	"time"

	"github.com/roach88/scanledger/internal/history"
	"github.com/roach88/scanledger/internal/keys"
)

// IDGenerator mints opaque Entry identifiers.
// Implemented by engine.UUIDv7Generator and engine.FixedGenerator.
type IDGenerator interface {
	Generate() string
}

// Kind tells whether an ingest created an Entry or merged into one.
type Kind int

const (
	Added Kind = iota + 1
	MergedAsDuplicate
)

// String returns the kind's wire name.
func (k Kind) String() string {
	switch k {
	case Added:
		return "added"
	case MergedAsDuplicate:
		return "merged_as_duplicate"
	default:
		return "unknown"
	}
}

// Input is one classification result plus its provenance.
type Input struct {
	// Scan carries the classification. A zero At is replaced by now.
	Scan history.Scan

	// Requested is the status the caller wants for a recyclable item.
	// Zero means MarkedForRecycle.
	Requested history.Status
}

// Outcome is the result of one ingest.
type Outcome struct {
	Kind  Kind
	Entry history.Entry
	Log   []history.Entry
}

// Ingest applies in to log.
//
// Entries of the same calendar day are searched in log order (most recent
// first). The first one whose similarity tokens match and whose material does
// not veto receives the scan and moves to the front. Otherwise a new Entry is
// created at the front.
func Ingest(log []history.Entry, in Input, now time.Time, loc *time.Location, ids IDGenerator) Outcome {
	scan := in.Scan
	if scan.At.IsZero() {
		scan.At = now
	}
	scan = scan.Normalized()

	day := keys.DayKey(scan.At, loc)
	tokens := keys.SimilarityTokens(scan.Item, scan.Material)

	for i, e := range log {
		if e.DayKey(loc) != day {
			continue
		}
		if !keys.Compatible(tokens, e.Tokens(), scan.Material, e.Material) {
			continue
		}
		merged := e.RecordScan(scan, in.Requested)
		return Outcome{
			Kind:  MergedAsDuplicate,
			Entry: merged.Clone(),
			Log:   moveToFront(log, i, merged),
		}
	}

	created := history.NewEntry(ids.Generate(), scan, in.Requested)
	out := make([]history.Entry, 0, len(log)+1)
	out = append(out, created)
	for _, e := range log {
		out = append(out, e.Clone())
	}
	return Outcome{Kind: Added, Entry: created.Clone(), Log: out}
}

// moveToFront returns a copy of log with log[i] replaced by e at index 0.
func moveToFront(log []history.Entry, i int, e history.Entry) []history.Entry {
	out := make([]history.Entry, 0, len(log))
	out = append(out, e)
	for j, other := range log {
		if j != i {
			out = append(out, other.Clone())
		}
	}
	return out
}

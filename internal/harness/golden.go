package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/scanledger/internal/canon"
	"github.com/roach88/scanledger/internal/history"
)

// Snapshot is the part of a run compared against golden files.
type Snapshot struct {
	ScenarioName string
	Trace        []TraceEvent
	Entries      []history.Entry
}

func (s *Snapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		m := map[string]any{
			"step":    ev.Step,
			"op":      ev.Op,
			"outcome": ev.Outcome,
		}
		if ev.EntryID != "" {
			m["entry_id"] = ev.EntryID
		}
		if ev.Op == OpReconcile {
			m["merged"] = ev.Merged
			m["synthesized"] = ev.Synthesized
			m["collapsed"] = ev.Collapsed
			m["changed"] = ev.Changed
		}
		trace[i] = m
	}

	log := make([]any, len(s.Entries))
	for i, e := range s.Entries {
		log[i] = map[string]any{
			"id":                e.ID,
			"date":              e.Date.UTC().Format("2006-01-02T15:04:05Z07:00"),
			"item":              e.Item,
			"item_key":          e.ItemKey(),
			"status":            e.Status.String(),
			"scan_count":        e.ScanCount,
			"carbon_g":          canon.Grams(e.CarbonSavedKg),
			"source":            string(e.Source),
			"remote_item_key":   e.RemoteItemKey,
			"remote_image_path": e.RemoteImagePath,
		}
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         trace,
		"log":           log,
	}
}

// Marshal returns the canonical JSON form of s.
func (s *Snapshot) Marshal() ([]byte, error) {
	return canon.Marshal(s.toCanonicalMap())
}

// RunWithGolden runs scenario in a temporary directory and compares the
// snapshot with testdata/golden/<name>.golden. The result is returned for
// further checks.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, t.TempDir())
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result with its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snap := Snapshot{ScenarioName: name, Trace: result.Trace, Entries: result.Entries}
	data, err := snap.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}

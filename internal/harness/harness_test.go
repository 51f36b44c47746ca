package harness

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scanledger/internal/history"
)

func TestScenarios(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors:\n%s", strings.Join(result.Errors, "\n"))
			assert.NotEmpty(t, result.Digest)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/f_remote_only.yaml")
	require.NoError(t, err)

	first, err := Run(context.Background(), s, t.TempDir())
	require.NoError(t, err)
	second, err := Run(context.Background(), s, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, first.Digest, second.Digest)
	assert.Equal(t, first.Trace, second.Trace)
}

func TestRun_ExpectMismatchFails(t *testing.T) {
	s := &Scenario{
		Name:        "mismatch",
		Description: "expects the wrong outcome",
		Steps: []Step{{
			Ingest: &IngestStep{At: "2025-03-14T09:00:00Z", Item: "Jar", Material: "glass", Bin: "recycling", Recyclable: true},
			Expect: &Expect{Outcome: "merged_as_duplicate"},
		}},
		Assertions: []Assertion{{Type: AssertEntryCount, Count: 2}},
	}

	result, err := Run(context.Background(), s, t.TempDir())
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], `outcome "added", want "merged_as_duplicate"`)
	assert.Contains(t, result.Errors[1], "Assertion failed: entry_count")
}

func TestRun_UsesScenarioClock(t *testing.T) {
	s := &Scenario{
		Name:        "clock",
		Description: "scan without a timestamp takes the engine clock",
		Now:         "2025-06-01T08:00:00Z",
		Steps: []Step{{
			Ingest: &IngestStep{Item: "Jar", Material: "glass", Bin: "recycling", Recyclable: true},
		}},
		Assertions: []Assertion{{Type: AssertEntry, Expect: map[string]any{"date": "2025-06-01T08:00:00Z"}}},
	}

	result, err := Run(context.Background(), s, t.TempDir())
	require.NoError(t, err)
	assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
}

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadScenario_Errors(t *testing.T) {
	const valid = `
name: x
description: y
steps:
  - mark_recycled: entry-001
assertions:
  - type: entry_count
    count: 0
`
	_, err := LoadScenario(writeScenario(t, valid))
	require.NoError(t, err)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing file", "", "failed to read"},
		{"unknown field", valid + "extra: true\n", "failed to parse YAML"},
		{"no name", strings.Replace(valid, "name: x", "", 1), "name is required"},
		{"no steps", "name: x\ndescription: y\nsteps: []\nassertions:\n  - type: entry_count\n", "steps list"},
		{"two ops", strings.Replace(valid, "  - mark_recycled: entry-001", "  - mark_recycled: entry-001\n    patch_remote_image: {id: a, path: b}", 1), "exactly one"},
		{"bad status", strings.Replace(valid, "  - mark_recycled: entry-001", "  - ingest: {item: Jar, status: shiny}", 1), "ingest.status"},
		{"bad at", strings.Replace(valid, "  - mark_recycled: entry-001", "  - ingest: {item: Jar, at: noon}", 1), "ingest.at"},
		{"unknown assertion", strings.Replace(valid, "type: entry_count", "type: vibes", 1), "unknown assertion type"},
		{"bad timezone", valid + "timezone: Nowhere/Land\n", "timezone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "missing.yaml")
			if tt.body != "" {
				path = writeScenario(t, tt.body)
			}
			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func testResult() *Result {
	at := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	r := NewResult()
	r.Entries = []history.Entry{
		history.NewEntry("entry-001", history.Scan{At: at, Item: "Jar", Material: "glass", Bin: "recycling", Recyclable: true, CarbonSavedKg: 0.2}, history.StatusNone),
	}
	r.AddTrace(TraceEvent{Step: 1, Op: OpIngest, Outcome: "added", EntryID: "entry-001"})
	return r
}

func TestEvaluateAssertions(t *testing.T) {
	r := testResult()

	passing := []Assertion{
		{Type: AssertEntryCount, Count: 1},
		{Type: AssertEntry, Index: 0, Expect: map[string]any{"item_key": "jar|glass|recycling", "carbon_g": 200, "recyclable": true}},
		{Type: AssertEntry, ID: "entry-001", Expect: map[string]any{"carbon_saved_kg": 0.2}},
		{Type: AssertTraceCount, Op: OpIngest, Outcome: "added", Count: 1},
		{Type: AssertTraceCount, Op: OpReconcile, Count: 0},
	}
	assert.Empty(t, EvaluateAssertions(r, passing))

	failing := []Assertion{
		{Type: AssertEntryCount, Count: 3},
		{Type: AssertEntry, Index: 4, Expect: map[string]any{"item": "Jar"}},
		{Type: AssertEntry, ID: "entry-999", Expect: map[string]any{"item": "Jar"}},
		{Type: AssertEntry, Expect: map[string]any{"status": "recycled", "colour": "green"}},
		{Type: AssertTraceCount, Op: OpIngest, Count: 2},
	}
	errs := EvaluateAssertions(r, failing)
	require.Len(t, errs, 5)
	assert.Contains(t, errs[1], "an entry at index 4")
	assert.Contains(t, errs[2], "id entry-999")
	assert.Contains(t, errs[3], "colour: unknown field")
	assert.Contains(t, errs[3], "status: got marked_for_recycle, want recycled")
}

func TestCheckExpect(t *testing.T) {
	one, zero, yes := 1, 0, true
	ev := TraceEvent{Op: OpReconcile, Outcome: "applied", Merged: 1, Changed: false}

	assert.Empty(t, checkExpect(ev, nil))
	assert.Empty(t, checkExpect(ev, &Expect{Outcome: "applied", Merged: &one, Synthesized: &zero}))

	errs := checkExpect(ev, &Expect{Merged: &zero, Changed: &yes})
	assert.Equal(t, []string{"merged 1, want 0", "changed false, want true"}, errs)
}

func TestSnapshot_Marshal(t *testing.T) {
	r := testResult()
	snap := Snapshot{ScenarioName: "unit", Trace: r.Trace, Entries: r.Entries}

	data, err := snap.Marshal()
	require.NoError(t, err)
	assert.Equal(t,
		`{"log":[{"carbon_g":200,"date":"2025-03-14T09:00:00Z","id":"entry-001","item":"Jar","item_key":"jar|glass|recycling","remote_image_path":"","remote_item_key":"","scan_count":1,"source":"text","status":"marked_for_recycle"}],"scenario_name":"unit","trace":[{"entry_id":"entry-001","op":"ingest","outcome":"added","step":1}]}`,
		string(data))
}

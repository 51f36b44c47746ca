package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/scanledger/internal/canon"
	"github.com/roach88/scanledger/internal/history"
)

// Assertion validates the final log or the trace.
type Assertion struct {
	// Type is one of entry_count, entry, trace_count.
	Type string `yaml:"type"`

	// Count is used by entry_count and trace_count.
	Count int `yaml:"count,omitempty"`

	// Index or ID selects the Entry for an entry assertion. ID wins when set.
	Index int    `yaml:"index,omitempty"`
	ID    string `yaml:"id,omitempty"`

	// Expect holds the Entry fields to compare (subset match).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Op and Outcome filter trace events for trace_count.
	Op      string `yaml:"op,omitempty"`
	Outcome string `yaml:"outcome,omitempty"`
}

// Assertion type constants.
const (
	AssertEntryCount = "entry_count"
	AssertEntry      = "entry"
	AssertTraceCount = "trace_count"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	fmt.Fprintf(&buf, "\nTrace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s %s\n", ev.Step, ev.Op, ev.Outcome, ev.EntryID)
	}
	return buf.String()
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertEntryCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertEntry:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for entry", index)
		}
		if a.Index < 0 {
			return fmt.Errorf("assertions[%d]: index must be non-negative", index)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// EvaluateAssertions returns one message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertEntryCount:
			err = assertEntryCount(result, a)
		case AssertEntry:
			err = assertEntry(result, a)
		case AssertTraceCount:
			err = assertTraceCount(result, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func assertEntryCount(r *Result, a Assertion) error {
	if len(r.Entries) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertEntryCount,
		Expected: fmt.Sprintf("%d entries", a.Count),
		Actual:   fmt.Sprintf("%d entries", len(r.Entries)),
		Trace:    r.Trace,
	}
}

func assertEntry(r *Result, a Assertion) error {
	entry, ok := selectEntry(r.Entries, a)
	if !ok {
		target := fmt.Sprintf("index %d", a.Index)
		if a.ID != "" {
			target = "id " + a.ID
		}
		return &AssertionError{
			Type:     AssertEntry,
			Expected: "an entry at " + target,
			Actual:   fmt.Sprintf("%d entries", len(r.Entries)),
			Trace:    r.Trace,
		}
	}

	view := entryFields(entry)
	var mismatches []string
	for _, k := range sortedKeys(a.Expect) {
		got, ok := view[k]
		if !ok {
			mismatches = append(mismatches, fmt.Sprintf("%s: unknown field", k))
			continue
		}
		if fmt.Sprint(got) != fmt.Sprint(a.Expect[k]) {
			mismatches = append(mismatches, fmt.Sprintf("%s: got %v, want %v", k, got, a.Expect[k]))
		}
	}
	if len(mismatches) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertEntry,
		Expected: fmt.Sprintf("%v", a.Expect),
		Actual:   strings.Join(mismatches, "; "),
		Trace:    r.Trace,
	}
}

func assertTraceCount(r *Result, a Assertion) error {
	n := 0
	for _, ev := range r.Trace {
		if ev.Op == a.Op && (a.Outcome == "" || ev.Outcome == a.Outcome) {
			n++
		}
	}
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%d %s %s step(s)", a.Count, a.Op, a.Outcome),
		Actual:   fmt.Sprintf("%d", n),
		Trace:    r.Trace,
	}
}

func selectEntry(entries []history.Entry, a Assertion) (history.Entry, bool) {
	if a.ID != "" {
		for _, e := range entries {
			if e.ID == a.ID {
				return e, true
			}
		}
		return history.Entry{}, false
	}
	if a.Index >= len(entries) {
		return history.Entry{}, false
	}
	return entries[a.Index], true
}

// entryFields is the canonical view of e plus the derived keys.
func entryFields(e history.Entry) map[string]any {
	view := canon.EntryView(e)
	delete(view, "scans")
	view["item_key"] = e.ItemKey()
	view["carbon_saved_kg"] = e.CarbonSavedKg
	return view
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

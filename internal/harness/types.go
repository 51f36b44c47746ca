package harness

import "github.com/roach88/scanledger/internal/history"

// TraceEvent records what one step did.
type TraceEvent struct {
	Step    int    `json:"step"`
	Op      string `json:"op"`
	Outcome string `json:"outcome"`
	EntryID string `json:"entry_id,omitempty"`

	// Set for reconcile steps only.
	Merged      int  `json:"merged,omitempty"`
	Synthesized int  `json:"synthesized,omitempty"`
	Collapsed   int  `json:"collapsed,omitempty"`
	Changed     bool `json:"changed,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`

	// Entries is the final log, most recent first.
	Entries []history.Entry `json:"entries"`

	// Digest is the canonical digest of Entries.
	Digest string `json:"digest"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends ev to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}

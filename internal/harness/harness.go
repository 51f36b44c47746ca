package harness

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/roach88/scanledger/internal/canon"
	"github.com/roach88/scanledger/internal/engine"
	"github.com/roach88/scanledger/internal/history"
	"github.com/roach88/scanledger/internal/ingest"
	"github.com/roach88/scanledger/internal/store"
	"github.com/roach88/scanledger/internal/testutil"
)

// clockStep is how far the engine clock moves per command.
const clockStep = time.Minute

// Harness drives one engine through a scenario.
type Harness struct {
	engine *engine.Engine
	loc    *time.Location
}

// Run executes scenario against a fresh SQLite store created in workDir.
//
// Execution flow:
//  1. Open the store and start the engine with sequential IDs and a step clock
//  2. Apply each step, checking its expect clause
//  3. Snapshot the log and stop the engine
//  4. Reopen the store and compare what was persisted with the snapshot
//  5. Evaluate assertions
func Run(ctx context.Context, scenario *Scenario, workDir string) (*Result, error) {
	loc, err := scenario.location()
	if err != nil {
		return nil, err
	}
	start, err := scenario.start()
	if err != nil {
		return nil, err
	}

	dbPath := filepath.Join(workDir, scenario.Name+".db")
	st, err := store.OpenSQLite(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	clock := testutil.NewStepClock(start, clockStep)
	eng, err := engine.New(ctx, st,
		engine.WithIDGenerator(testutil.NewSequentialIDs("entry")),
		engine.WithNow(clock.Now),
		engine.WithLocation(loc),
	)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to start engine: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- eng.Run(runCtx) }()

	h := &Harness{engine: eng, loc: loc}
	result := NewResult()
	stepErr := h.executeSteps(ctx, scenario.Steps, result)

	var snapshot []history.Entry
	if stepErr == nil {
		snapshot, stepErr = eng.Snapshot(ctx)
	}

	eng.Stop()
	<-done
	cancel()
	if err := st.Close(); err != nil && stepErr == nil {
		stepErr = fmt.Errorf("failed to close store: %w", err)
	}
	if stepErr != nil {
		return nil, stepErr
	}

	result.Entries = snapshot
	result.Digest, err = canon.Digest(snapshot)
	if err != nil {
		return nil, err
	}

	if err := verifyPersisted(ctx, dbPath, result.Digest); err != nil {
		result.AddError(err.Error())
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// verifyPersisted reopens the store and checks it holds the same log.
func verifyPersisted(ctx context.Context, path, want string) error {
	st, err := store.OpenSQLite(ctx, path)
	if err != nil {
		return fmt.Errorf("reopen store: %w", err)
	}
	defer st.Close()

	entries, err := st.Load(ctx)
	if err != nil {
		return fmt.Errorf("reload log: %w", err)
	}
	got, err := canon.Digest(entries)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("persisted log differs from memory: digest %s, want %s", got, want)
	}
	return nil
}

// executeSteps applies each step in order. Engine errors that a step's
// expect clause anticipates (for example an invalid transition) become part
// of the trace; anything else aborts the run.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		ev, err := h.execute(ctx, step)
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Op(), err)
		}
		ev.Step = i + 1
		ev.Op = step.Op()
		result.AddTrace(ev)

		for _, msg := range checkExpect(ev, step.Expect) {
			result.AddError(fmt.Sprintf("step %d (%s): %s", ev.Step, ev.Op, msg))
		}
	}
	return nil
}

func (h *Harness) execute(ctx context.Context, step Step) (TraceEvent, error) {
	switch step.Op() {
	case OpIngest:
		in, err := ingestInput(step.Ingest)
		if err != nil {
			return TraceEvent{}, err
		}
		res, err := h.engine.Ingest(ctx, in)
		if err != nil {
			return TraceEvent{}, err
		}
		return TraceEvent{Outcome: res.Kind.String(), EntryID: res.Entry.ID}, nil

	case OpReconcile:
		res, err := h.engine.Reconcile(ctx, step.Reconcile)
		if err != nil {
			return TraceEvent{}, err
		}
		return TraceEvent{
			Outcome:     "applied",
			Merged:      res.Merged,
			Synthesized: res.Synthesized,
			Collapsed:   res.Collapsed,
			Changed:     res.Changed,
		}, nil

	case OpMarkRecycled:
		entry, err := h.engine.MarkRecycled(ctx, step.MarkRecycled)
		switch {
		case errors.Is(err, engine.ErrEntryNotFound):
			return TraceEvent{Outcome: "entry_not_found", EntryID: step.MarkRecycled}, nil
		case errors.Is(err, engine.ErrInvalidTransition):
			return TraceEvent{Outcome: "invalid_transition", EntryID: step.MarkRecycled}, nil
		case err != nil:
			return TraceEvent{}, err
		}
		return TraceEvent{Outcome: entry.Status.String(), EntryID: entry.ID}, nil

	case OpPatchRemoteImage:
		p := step.PatchRemoteImage
		found, err := h.engine.PatchRemoteImage(ctx, p.ID, p.Path)
		if err != nil {
			return TraceEvent{}, err
		}
		outcome := "patched"
		if !found {
			outcome = "skipped"
		}
		return TraceEvent{Outcome: outcome, EntryID: p.ID}, nil
	}
	return TraceEvent{}, fmt.Errorf("unknown step")
}

func ingestInput(s *IngestStep) (ingest.Input, error) {
	var at time.Time
	if s.At != "" {
		var err error
		if at, err = time.Parse(time.RFC3339, s.At); err != nil {
			return ingest.Input{}, err
		}
	}
	var requested history.Status
	if s.Status != "" {
		if err := requested.UnmarshalText([]byte(s.Status)); err != nil {
			return ingest.Input{}, err
		}
	}
	return ingest.Input{
		Scan: history.Scan{
			At:             at,
			Item:           s.Item,
			Material:       s.Material,
			Bin:            s.Bin,
			Notes:          s.Notes,
			Recyclable:     s.Recyclable,
			CarbonSavedKg:  s.CarbonSavedKg,
			Source:         history.ParseSource(s.Source),
			LocalImagePath: s.LocalImagePath,
		},
		Requested: requested,
	}, nil
}

func checkExpect(ev TraceEvent, want *Expect) []string {
	if want == nil {
		return nil
	}
	var errs []string
	if want.Outcome != "" && want.Outcome != ev.Outcome {
		errs = append(errs, fmt.Sprintf("outcome %q, want %q", ev.Outcome, want.Outcome))
	}
	if want.Merged != nil && *want.Merged != ev.Merged {
		errs = append(errs, fmt.Sprintf("merged %d, want %d", ev.Merged, *want.Merged))
	}
	if want.Synthesized != nil && *want.Synthesized != ev.Synthesized {
		errs = append(errs, fmt.Sprintf("synthesized %d, want %d", ev.Synthesized, *want.Synthesized))
	}
	if want.Changed != nil && *want.Changed != ev.Changed {
		errs = append(errs, fmt.Sprintf("changed %t, want %t", ev.Changed, *want.Changed))
	}
	return errs
}

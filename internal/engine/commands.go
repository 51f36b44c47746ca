package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/scanledger/internal/canon"
	"github.com/roach88/scanledger/internal/history"
	"github.com/roach88/scanledger/internal/ingest"
	"github.com/roach88/scanledger/internal/reconcile"
)

type commandKind int

const (
	cmdIngest commandKind = iota + 1
	cmdReconcile
	cmdMarkRecycled
	cmdPatchRemoteImage
	cmdSnapshot
)

func (k commandKind) String() string {
	switch k {
	case cmdIngest:
		return "ingest"
	case cmdReconcile:
		return "reconcile"
	case cmdMarkRecycled:
		return "mark_recycled"
	case cmdPatchRemoteImage:
		return "patch_remote_image"
	case cmdSnapshot:
		return "snapshot"
	default:
		return "unknown"
	}
}

type command struct {
	kind    commandKind
	seq     int64
	input   ingest.Input
	records []history.RemoteRecord
	id      string
	path    string
	reply   chan reply
}

type reply struct {
	ingest    IngestResult
	reconcile ReconcileResult
	entry     history.Entry
	found     bool
	entries   []history.Entry
	err       error
}

// IngestResult reports how a scan was folded into the log.
type IngestResult struct {
	Kind  ingest.Kind
	Entry history.Entry
	Seq   int64
}

// ReconcileResult summarizes one applied remote batch.
type ReconcileResult struct {
	Merged      int
	Synthesized int
	Collapsed   int

	// Changed is false when the batch left the log byte-identical.
	Changed bool

	// Digest is the log digest after the batch.
	Digest string

	Seq int64
}

// Ingest folds one classification result into the log and saves it.
//
// If the save fails the returned error is a *PersistError and the result is
// still valid: the scan is in the in-memory log and will be saved by a later
// command.
func (e *Engine) Ingest(ctx context.Context, in ingest.Input) (IngestResult, error) {
	r := e.submit(ctx, &command{kind: cmdIngest, input: in})
	return r.ingest, r.err
}

// Reconcile merges a fetched remote batch into the log and saves it.
// A *PersistError leaves the merged log in memory, as with Ingest.
func (e *Engine) Reconcile(ctx context.Context, records []history.RemoteRecord) (ReconcileResult, error) {
	r := e.submit(ctx, &command{kind: cmdReconcile, records: records})
	return r.reconcile, r.err
}

// MarkRecycled moves an Entry from MarkedForRecycle to Recycled.
// Any other starting status fails with ErrInvalidTransition.
func (e *Engine) MarkRecycled(ctx context.Context, id string) (history.Entry, error) {
	r := e.submit(ctx, &command{kind: cmdMarkRecycled, id: id})
	return r.entry, r.err
}

// PatchRemoteImage records the uploaded image path of an Entry.
// It reports false, without error, when the Entry no longer exists.
func (e *Engine) PatchRemoteImage(ctx context.Context, id, path string) (bool, error) {
	r := e.submit(ctx, &command{kind: cmdPatchRemoteImage, id: id, path: path})
	return r.found, r.err
}

// Snapshot returns a copy of the log, most recent first.
func (e *Engine) Snapshot(ctx context.Context) ([]history.Entry, error) {
	r := e.submit(ctx, &command{kind: cmdSnapshot})
	return r.entries, r.err
}

// apply executes one command. Called only from the Run goroutine.
func (e *Engine) apply(ctx context.Context, c *command) reply {
	switch c.kind {
	case cmdIngest:
		return e.applyIngest(ctx, c)
	case cmdReconcile:
		return e.applyReconcile(ctx, c)
	case cmdMarkRecycled:
		return e.applyMarkRecycled(ctx, c)
	case cmdPatchRemoteImage:
		return e.applyPatchRemoteImage(ctx, c)
	case cmdSnapshot:
		return reply{entries: e.log.Snapshot()}
	default:
		return reply{err: fmt.Errorf("unknown command kind: %d", c.kind)}
	}
}

func (e *Engine) applyIngest(ctx context.Context, c *command) reply {
	out := ingest.Ingest(e.log.Snapshot(), c.input, e.now(), e.loc, e.ids)
	e.log.Replace(out.Log)

	slog.Info("scan ingested",
		"seq", c.seq,
		"entry_id", out.Entry.ID,
		"kind", out.Kind.String(),
		"item", out.Entry.Item,
		"scan_count", out.Entry.ScanCount,
	)

	return reply{
		ingest: IngestResult{Kind: out.Kind, Entry: out.Entry, Seq: c.seq},
		err:    e.persist(ctx, c),
	}
}

func (e *Engine) applyReconcile(ctx context.Context, c *command) reply {
	before := e.log.Snapshot()
	beforeDigest, err := canon.Digest(before)
	if err != nil {
		return reply{err: fmt.Errorf("digest log: %w", err)}
	}

	res := reconcile.Reconcile(before, c.records, reconcile.Options{
		Now:      e.now(),
		Location: e.loc,
		Policy:   e.policy,
	})
	e.log.Replace(res.Entries)

	afterDigest, err := canon.Digest(e.log.Snapshot())
	if err != nil {
		return reply{err: fmt.Errorf("digest log: %w", err)}
	}

	if res.Collapsed > 0 {
		slog.Warn("duplicate entries collapsed",
			"seq", c.seq,
			"collapsed", res.Collapsed,
			"event", "invariant_repaired",
		)
	}
	slog.Info("remote batch reconciled",
		"seq", c.seq,
		"records", len(c.records),
		"merged", res.Merged,
		"synthesized", res.Synthesized,
		"changed", beforeDigest != afterDigest,
	)

	return reply{
		reconcile: ReconcileResult{
			Merged:      res.Merged,
			Synthesized: res.Synthesized,
			Collapsed:   res.Collapsed,
			Changed:     beforeDigest != afterDigest,
			Digest:      afterDigest,
			Seq:         c.seq,
		},
		err: e.persist(ctx, c),
	}
}

func (e *Engine) applyMarkRecycled(ctx context.Context, c *command) reply {
	entry, ok := e.log.Get(c.id)
	if !ok {
		return reply{err: fmt.Errorf("mark recycled %s: %w", c.id, ErrEntryNotFound)}
	}
	if entry.Status != history.MarkedForRecycle {
		return reply{err: fmt.Errorf("mark recycled %s from %s: %w", c.id, entry.Status, ErrInvalidTransition)}
	}

	e.log.Update(c.id, func(x history.Entry) history.Entry {
		x.Status = history.Recycled
		return x
	})
	updated, _ := e.log.Get(c.id)

	slog.Info("entry marked recycled", "seq", c.seq, "entry_id", c.id)
	return reply{entry: updated, err: e.persist(ctx, c)}
}

func (e *Engine) applyPatchRemoteImage(ctx context.Context, c *command) reply {
	found := e.log.Update(c.id, func(x history.Entry) history.Entry {
		x.RemoteImagePath = c.path
		return x
	})
	if !found {
		slog.Debug("remote image patch skipped: entry gone", "seq", c.seq, "entry_id", c.id)
		return reply{}
	}
	return reply{found: true, err: e.persist(ctx, c)}
}

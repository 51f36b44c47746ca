package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/scanledger/internal/canon"
	"github.com/roach88/scanledger/internal/carbon"
	"github.com/roach88/scanledger/internal/history"
	"github.com/roach88/scanledger/internal/store"
)

// IDGenerator mints identifiers for new Entries.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// Engine is the single serialization domain for the scan log.
//
// Thread-safety model:
//   - Ingest, Reconcile, MarkRecycled, PatchRemoteImage, Snapshot: safe from any goroutine
//   - Run: must be called from exactly one goroutine
//
// Everything below queue is touched only by the Run goroutine.
type Engine struct {
	queue *commandQueue
	clock *Clock

	store  store.Boundary
	log    *history.Log
	ids    IDGenerator
	now    func() time.Time
	loc    *time.Location
	policy carbon.Policy

	saved string // digest of the last saved log
	dirty bool   // a save failed since the last successful one
}

// Option configures an Engine.
type Option func(*Engine)

// WithIDGenerator sets the Entry identifier source. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithNow sets the wall clock. Default: time.Now.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLocation sets the location used to bucket scans into days.
// Default: time.Local.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithPolicy sets the carbon policy used for remote records.
func WithPolicy(p carbon.Policy) Option {
	return func(e *Engine) {
		if p != nil {
			e.policy = p
		}
	}
}

// New loads the log from b and returns an Engine owning it.
// The Engine does not close b.
func New(ctx context.Context, b store.Boundary, opts ...Option) (*Engine, error) {
	entries, err := b.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load log: %w", err)
	}
	saved, err := canon.Digest(entries)
	if err != nil {
		return nil, fmt.Errorf("digest loaded log: %w", err)
	}

	e := &Engine{
		queue:  newCommandQueue(),
		clock:  NewClock(),
		store:  b,
		log:    history.NewLog(entries),
		ids:    UUIDv7Generator{},
		now:    time.Now,
		loc:    time.Local,
		policy: carbon.Default(),
		saved:  saved,
	}
	for _, opt := range opts {
		opt(e)
	}

	slog.Debug("engine loaded log", "entries", e.log.Len(), "digest", saved)
	return e, nil
}

// Location returns the location used for day bucketing.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Policy returns the carbon policy.
func (e *Engine) Policy() carbon.Policy {
	return e.policy
}

// Run starts the single-writer command loop.
// Blocks until ctx is cancelled or Stop is called. Commands still queued at
// that point fail with ErrStopped.
//
// ERROR HANDLING: a command's error goes back to its caller; the loop itself
// logs and continues.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting", "entries", e.log.Len())
	defer e.drain()

	for {
		if c, ok := e.queue.TryDequeue(); ok {
			c.reply <- e.apply(ctx, c)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel closes with the queue.
			if e.queue.Len() == 0 && e.queue.Closed() {
				slog.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop gracefully shuts down the engine. Run returns once the queue is empty.
func (e *Engine) Stop() {
	e.queue.Close()
}

func (e *Engine) drain() {
	for _, c := range e.queue.Drain() {
		c.reply <- reply{err: ErrStopped}
	}
}

// submit enqueues c and waits for its reply or ctx.
func (e *Engine) submit(ctx context.Context, c *command) reply {
	c.seq = e.clock.Next()
	c.reply = make(chan reply, 1)
	if !e.queue.Enqueue(c) {
		return reply{err: ErrStopped}
	}
	select {
	case <-ctx.Done():
		return reply{err: ctx.Err()}
	case r := <-c.reply:
		return r
	}
}

// persist saves the whole log unless it is unchanged since the last save.
// Called only from the Run goroutine.
func (e *Engine) persist(ctx context.Context, c *command) error {
	entries := e.log.Snapshot()
	digest, err := canon.Digest(entries)
	if err != nil {
		return &PersistError{Op: c.kind.String(), Seq: c.seq, Err: err}
	}
	if digest == e.saved && !e.dirty {
		slog.Debug("save skipped: log unchanged", "seq", c.seq, "op", c.kind.String())
		return nil
	}

	if err := e.store.Save(ctx, entries); err != nil {
		e.dirty = true
		slog.Error("save failed",
			"seq", c.seq,
			"op", c.kind.String(),
			"entries", len(entries),
			"error", err,
			"event", "persist_failed",
		)
		return &PersistError{Op: c.kind.String(), Seq: c.seq, Err: err}
	}

	if e.dirty {
		slog.Info("log flushed after earlier save failure", "seq", c.seq)
	}
	e.saved = digest
	e.dirty = false
	return nil
}

package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/scanledger/internal/carbon"
	"github.com/roach88/scanledger/internal/engine"
	"github.com/roach88/scanledger/internal/history"
	"github.com/roach88/scanledger/internal/images"
	"github.com/roach88/scanledger/internal/remote"
)

// Applier is the part of the engine the syncer mutates through.
type Applier interface {
	Reconcile(ctx context.Context, records []history.RemoteRecord) (engine.ReconcileResult, error)
	PatchRemoteImage(ctx context.Context, id, path string) (bool, error)
}

var _ Applier = (*engine.Engine)(nil)

type taskKind int

const (
	taskPush taskKind = iota + 1
	taskUpload
)

func (k taskKind) String() string {
	switch k {
	case taskPush:
		return "push"
	case taskUpload:
		return "upload"
	default:
		return "unknown"
	}
}

type task struct {
	kind      taskKind
	record    history.RemoteRecord
	entryID   string
	localPath string
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithLogger sets the logger used for task progress.
func WithLogger(l *slog.Logger) Option {
	return func(s *Syncer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWarningHandler registers fn to receive every Warning. fn is called from
// worker goroutines.
func WithWarningHandler(fn func(Warning)) Option {
	return func(s *Syncer) {
		s.onWarning = fn
	}
}

// Syncer owns the background sync queue.
type Syncer struct {
	cfg       Config
	store     remote.Store
	uploader  images.Uploader
	applier   Applier
	logger    *slog.Logger
	onWarning func(Warning)

	mu     sync.RWMutex
	closed bool
	tasks  chan task
}

// New returns a Syncer. uploader may be nil when images are not synced;
// store may be nil when only uploads are queued.
func New(store remote.Store, uploader images.Uploader, applier Applier, cfg Config, opts ...Option) *Syncer {
	cfg = cfg.withDefaults()
	s := &Syncer{
		cfg:      cfg,
		store:    store,
		uploader: uploader,
		applier:  applier,
		logger:   slog.Default(),
		tasks:    make(chan task, cfg.QueueSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run processes queued tasks until Close is called and the queue is drained,
// or ctx is cancelled.
func (s *Syncer) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	for {
		select {
		case <-ctx.Done():
			_ = g.Wait()
			return nil
		case t, ok := <-s.tasks:
			if !ok {
				return g.Wait()
			}
			g.Go(func() error {
				s.handle(gctx, t)
				return nil
			})
		}
	}
}

// Close stops accepting tasks. Run returns once the queued ones finish.
func (s *Syncer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.tasks)
}

// Pending returns the number of queued tasks not yet picked up.
func (s *Syncer) Pending() int {
	return len(s.tasks)
}

// EnqueuePush queues rec for insertion into the remote store. It never
// blocks; a full queue drops the task with a Warning.
func (s *Syncer) EnqueuePush(rec history.RemoteRecord) error {
	return s.enqueue(task{kind: taskPush, record: rec})
}

// EnqueueUpload queues the capture for entryID. On success the Entry's
// remote image path is patched.
func (s *Syncer) EnqueueUpload(entryID, localPath string) error {
	if s.uploader == nil {
		return nil
	}
	return s.enqueue(task{kind: taskUpload, entryID: entryID, localPath: localPath})
}

// EnqueueEntries queues a push for every entry and an upload for every entry
// whose capture has not reached remote storage yet. Unlike the single-task
// methods it waits for queue space, so Run must be draining the queue. It
// returns the number of tasks accepted, stopping early when ctx is done or
// the Syncer is closed.
func (s *Syncer) EnqueueEntries(ctx context.Context, entries []history.Entry, loc *time.Location, policy carbon.Policy) (int, error) {
	n := 0
	for _, e := range entries {
		if err := s.enqueueWait(ctx, task{kind: taskPush, record: history.RecordFor(e, loc, policy)}); err != nil {
			return n, err
		}
		n++
		if e.HasLocalImage() && e.RemoteImagePath == "" && s.uploader != nil {
			if err := s.enqueueWait(ctx, task{kind: taskUpload, entryID: e.ID, localPath: e.LocalImagePath}); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

func (s *Syncer) enqueue(t task) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	select {
	case s.tasks <- t:
		return nil
	default:
		s.warn(t, 0, ErrQueueFull)
		return ErrQueueFull
	}
}

func (s *Syncer) enqueueWait(ctx context.Context, t task) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	select {
	case s.tasks <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Syncer) handle(ctx context.Context, t task) {
	switch t.kind {
	case taskPush:
		s.push(ctx, t)
	case taskUpload:
		s.upload(ctx, t)
	}
}

func (s *Syncer) push(ctx context.Context, t task) {
	calls, err := s.attempt(ctx, func(ctx context.Context) error {
		return s.store.Insert(ctx, t.record)
	})
	if err != nil {
		s.warn(t, calls, err)
		return
	}
	s.logger.Debug("sync_push", "item_key", t.record.ItemKey, "day_key", t.record.DayKey, "attempts", calls)
}

func (s *Syncer) upload(ctx context.Context, t task) {
	var ref string
	calls, err := s.attempt(ctx, func(ctx context.Context) error {
		var err error
		ref, err = s.uploader.Upload(ctx, t.entryID, t.localPath)
		return err
	})
	if err != nil {
		s.warn(t, calls, err)
		return
	}

	found, err := s.applier.PatchRemoteImage(ctx, t.entryID, ref)
	if err != nil {
		s.warn(t, calls, fmt.Errorf("patch remote image: %w", err))
		return
	}
	if !found {
		s.logger.Debug("sync_upload_orphaned", "entry_id", t.entryID, "ref", ref)
		return
	}
	s.logger.Debug("sync_upload", "entry_id", t.entryID, "ref", ref, "attempts", calls)
}

func (s *Syncer) warn(t task, attempts int, err error) {
	w := Warning{
		Op:       t.kind.String(),
		EntryID:  t.entryID,
		ItemKey:  t.record.ItemKey,
		Attempts: attempts,
		Err:      err,
	}
	s.logger.Warn("sync_warning",
		"op", w.Op,
		"entry_id", w.EntryID,
		"item_key", w.ItemKey,
		"attempts", w.Attempts,
		"error", err,
	)
	if s.onWarning != nil {
		s.onWarning(w)
	}
}

// Pull fetches the newest remote records and applies them as one batch. The
// fetch holds nothing on the engine; a cancelled context discards the batch.
func (s *Syncer) Pull(ctx context.Context) (engine.ReconcileResult, error) {
	var records []history.RemoteRecord
	_, err := s.attempt(ctx, func(ctx context.Context) error {
		var err error
		records, err = s.store.Fetch(ctx, s.cfg.FetchLimit)
		return err
	})
	if err != nil {
		return engine.ReconcileResult{}, fmt.Errorf("fetch remote records: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return engine.ReconcileResult{}, err
	}

	res, err := s.applier.Reconcile(ctx, records)
	if err != nil {
		return res, fmt.Errorf("reconcile %d records: %w", len(records), err)
	}
	s.logger.Info("sync_pull",
		"records", len(records),
		"merged", res.Merged,
		"synthesized", res.Synthesized,
		"changed", res.Changed,
	)
	return res, nil
}

package syncer

import (
	"errors"
	"fmt"
)

// ErrQueueFull is the cause of a Warning for a task that was never queued.
var ErrQueueFull = errors.New("sync queue full")

// ErrClosed is returned by the enqueue methods after Close.
var ErrClosed = errors.New("syncer closed")

// Warning is a non-fatal sync failure. The local log is unaffected.
type Warning struct {
	Op       string
	EntryID  string
	ItemKey  string
	Attempts int
	Err      error
}

func (w Warning) Error() string {
	target := w.ItemKey
	if w.EntryID != "" {
		target = w.EntryID
	}
	return fmt.Sprintf("%s %s failed after %d attempt(s): %v", w.Op, target, w.Attempts, w.Err)
}

func (w Warning) Unwrap() error { return w.Err }

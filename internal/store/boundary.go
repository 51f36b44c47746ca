package store

import (
	"context"
	"errors"

	"github.com/roach88/scanledger/internal/history"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store: closed")

// Boundary loads and saves the whole scan log.
//
// Save replaces the stored log atomically: after a failed Save, Load returns
// the previously saved log.
type Boundary interface {
	Load(ctx context.Context) ([]history.Entry, error)
	Save(ctx context.Context, entries []history.Entry) error
	Close() error
}

var (
	_ Boundary = (*SQLite)(nil)
	_ Boundary = (*File)(nil)
)

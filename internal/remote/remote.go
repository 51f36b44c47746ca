// Package remote talks to the authoritative impact log shared by a user's
// devices.
//
// The server side upserts on (user, dayKey, itemKey) and keeps maxima, so
// pushing the same record twice is harmless; the syncer relies on that to
// retry pushes.
package remote

import (
	"context"
	"database/sql"
	"errors"

	"github.com/roach88/scanledger/internal/history"
)

// ErrInvalidRecord is returned by Insert for records the log cannot key.
var ErrInvalidRecord = errors.New("remote: invalid record")

// Store is the remote impact log.
type Store interface {
	// Fetch returns up to limit records, most recent first.
	// A limit of zero or less means no limit.
	Fetch(ctx context.Context, limit int) ([]history.RemoteRecord, error)

	// Insert upserts rec.
	Insert(ctx context.Context, rec history.RemoteRecord) error
}

// DBTX is the subset of database/sql used by Postgres.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ Store = (*Postgres)(nil)
	_ Store = (*File)(nil)
)

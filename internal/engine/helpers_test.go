package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/scanledger/internal/history"
	"github.com/roach88/scanledger/internal/ingest"
)

var testDay = time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)

var errDiskFull = errors.New("disk full")

// memStore is an in-memory store.Boundary that can be told to fail.
type memStore struct {
	mu      sync.Mutex
	entries []history.Entry
	saves   int
	failing bool
}

func (m *memStore) Load(context.Context) ([]history.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]history.Entry(nil), m.entries...), nil
}

func (m *memStore) Save(_ context.Context, entries []history.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errDiskFull
	}
	m.saves++
	m.entries = append([]history.Entry(nil), entries...)
	return nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) setFailing(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = v
}

func (m *memStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *memStore) saved() []history.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]history.Entry(nil), m.entries...)
}

// startEngine runs an engine until the test ends.
func startEngine(t *testing.T, s *memStore, ids ...string) *Engine {
	t.Helper()
	e, err := New(context.Background(), s,
		WithIDGenerator(NewFixedGenerator(ids...)),
		WithNow(func() time.Time { return testDay.Add(12 * time.Hour) }),
		WithLocation(time.UTC),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return e
}

func scanInput(offset time.Duration, item, material string, recyclable bool) ingest.Input {
	return ingest.Input{Scan: history.Scan{
		At:         testDay.Add(offset),
		Item:       item,
		Material:   material,
		Recyclable: recyclable,
		Bin:        "blue",
		Source:     history.SourcePhoto,
	}}
}

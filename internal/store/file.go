package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/roach88/scanledger/internal/history"
)

// File stores the scan log as a single JSON document.
//
// Writes go to a temporary file in the same directory, are synced, then
// renamed over the log, so a crash never leaves a truncated file behind.
type File struct {
	mu     sync.Mutex
	path   string
	closed bool
}

// OpenFile prepares a JSON log at path. The directory is created if needed;
// the file itself is created on the first Save.
func OpenFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	return &File{path: path}, nil
}

// Path returns the log file path.
func (f *File) Path() string {
	return f.path
}

// Load reads the log. A missing file is an empty log. A legacy file is
// upgraded and rewritten in the current format before returning.
func (f *File) Load(ctx context.Context) ([]history.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrClosed
	}

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return []history.Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	doc, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}
	if doc.Upgraded {
		if err := f.write(ctx, doc.Entries); err != nil {
			return nil, fmt.Errorf("upgrade legacy log: %w", err)
		}
		slog.Info("legacy log upgraded", "path", f.path, "entries", len(doc.Entries))
	}
	return doc.Entries, nil
}

// Save atomically replaces the log.
func (f *File) Save(ctx context.Context, entries []history.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	return f.write(ctx, entries)
}

// Close marks the store closed.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *File) write(ctx context.Context, entries []history.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeDocument(entries)
	if err != nil {
		return err
	}
	return writeAtomic(f.path, data)
}

// writeAtomic replaces path with data via a synced temporary file.
func writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace log: %w", err)
	}

	if d, derr := os.Open(dir); derr == nil {
		_ = d.Sync()
		d.Close()
	}
	return nil
}

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/scanledger/internal/history"
)

// File is an impact log kept in a local JSON or YAML file, for offline
// imports and exports. The format follows the extension: .yaml and .yml are
// YAML, anything else is JSON.
//
// Insert applies the same upsert rules as the server.
type File struct {
	mu   sync.Mutex
	path string
}

// NewFile returns a File store at path. The file need not exist yet.
func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) isYAML() bool {
	ext := strings.ToLower(filepath.Ext(f.path))
	return ext == ".yaml" || ext == ".yml"
}

// Fetch reads the file's records, most recent first.
// Malformed timestamps sort last and are passed through untouched.
func (f *File) Fetch(ctx context.Context, limit int) ([]history.RemoteRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	recs, err := f.read()
	if err != nil {
		return nil, err
	}
	sortRecent(recs)
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// Insert upserts rec by (dayKey, itemKey).
func (f *File) Insert(ctx context.Context, rec history.RemoteRecord) error {
	if _, err := validate(rec); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	recs, err := f.read()
	if err != nil {
		return err
	}
	replaced := false
	for i := range recs {
		if recs[i].DayKey == rec.DayKey && recs[i].ItemKey == rec.ItemKey {
			recs[i] = Upsert(recs[i], rec)
			replaced = true
			break
		}
	}
	if !replaced {
		recs = append(recs, Upsert(history.RemoteRecord{}, rec))
	}
	return f.write(recs)
}

func (f *File) read() ([]history.RemoteRecord, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var recs []history.RemoteRecord
	if f.isYAML() {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&recs)
	} else {
		err = json.Unmarshal(data, &recs)
	}
	if err != nil {
		return nil, fmt.Errorf("decode records %s: %w", f.path, err)
	}
	return recs, nil
}

func (f *File) write(recs []history.RemoteRecord) error {
	var (
		data []byte
		err  error
	)
	if f.isYAML() {
		data, err = yaml.Marshal(recs)
	} else {
		data, err = json.MarshalIndent(recs, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace records: %w", err)
	}
	return nil
}

// Upsert merges incoming into existing the way the server does: display
// fields follow the incoming record, counters and times keep their maxima,
// photo provenance sticks and an empty image path never clears a stored one.
func Upsert(existing, incoming history.RemoteRecord) history.RemoteRecord {
	out := incoming
	out.Source = string(history.ParseSource(incoming.Source))
	out.ScanCount = max(1, incoming.ScanCount)
	out.Points = max(0, incoming.Points)
	if existing.ItemKey == "" {
		return out
	}

	out.ScanCount = max(existing.ScanCount, out.ScanCount)
	out.Points = max(existing.Points, out.Points)
	if history.ParseSource(existing.Source) == history.SourcePhoto {
		out.Source = string(history.SourcePhoto)
	}
	if out.ImagePath == "" {
		out.ImagePath = existing.ImagePath
	}
	if a, ok := history.ParseTimestamp(existing.ScannedAt, time.UTC); ok {
		if b, ok := history.ParseTimestamp(incoming.ScannedAt, time.UTC); !ok || a.After(b) {
			out.ScannedAt = existing.ScannedAt
		}
	}
	return out
}

func sortRecent(recs []history.RemoteRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, okA := history.ParseTimestamp(recs[i].ScannedAt, time.UTC)
		b, okB := history.ParseTimestamp(recs[j].ScannedAt, time.UTC)
		switch {
		case okA && okB:
			return a.After(b)
		default:
			return okA && !okB
		}
	})
}

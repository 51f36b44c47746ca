package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scanledger/internal/history"
)

func TestFile_MissingFileIsEmptyLog(t *testing.T) {
	f, err := OpenFile(filepath.Join(t.TempDir(), "nested", "log.json"))
	require.NoError(t, err)

	got, err := f.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFile_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	f, err := OpenFile(filepath.Join(t.TempDir(), "log.json"))
	require.NoError(t, err)

	entries := []history.Entry{testEntry("b", time.Hour, "Soda Can"), testEntry("a", 0, "Jar")}
	require.NoError(t, f.Save(ctx, entries))

	got, err := f.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.InDelta(t, 0.25, got[1].CarbonSavedKg, 1e-9)

	data, err := os.ReadFile(f.Path())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"version\": 2"))
}

func TestFile_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	f, err := OpenFile(filepath.Join(dir, "log.json"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, f.Save(context.Background(), []history.Entry{testEntry("a", 0, "Jar")}))
	}

	names, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.Equal(t, "log.json", names[0].Name())
}

func TestFile_CancelledSaveKeepsPreviousLog(t *testing.T) {
	f, err := OpenFile(filepath.Join(t.TempDir(), "log.json"))
	require.NoError(t, err)
	require.NoError(t, f.Save(context.Background(), []history.Entry{testEntry("a", 0, "Jar")}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, f.Save(ctx, nil))

	got, err := f.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestFile_UpgradesLegacyInPlace(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte(legacyJSON), 0o644))

	f, err := OpenFile(path)
	require.NoError(t, err)

	got, err := f.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	chip, jar := got[0], got[1]
	assert.Equal(t, "legacy-2", chip.ID)
	assert.Equal(t, history.NonRecyclable, chip.Status)
	assert.Equal(t, 0.0, chip.CarbonSavedKg)
	assert.Equal(t, history.SourceText, chip.Source)

	assert.Equal(t, "legacy-1", jar.ID)
	assert.Equal(t, history.Recycled, jar.Status)
	assert.Equal(t, history.SourcePhoto, jar.Source)
	assert.Equal(t, "/captures/jar.jpg", jar.LocalImagePath)
	assert.Equal(t, 1, jar.ScanCount)
	require.Len(t, jar.Scans, 1)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version": 2`)

	again, err := f.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestFile_RejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 9, "entries": []}`), 0o644))

	f, err := OpenFile(path)
	require.NoError(t, err)

	_, err = f.Load(context.Background())
	assert.ErrorContains(t, err, "unsupported version 9")
}

func TestFile_Closed(t *testing.T) {
	f, err := OpenFile(filepath.Join(t.TempDir(), "log.json"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = f.Load(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDecodeDocument_MintsMissingAndRepeatedLegacyIDs(t *testing.T) {
	const doc = `[
  {"id": "", "date": "2026-05-01T08:00:00Z", "item": "Glass Jar", "material": "glass", "recyclable": true},
  {"id": "dup", "date": "2026-05-01T09:00:00Z", "item": "Chip Bag", "material": "film"},
  {"id": "dup", "date": "2026-05-01T10:00:00Z", "item": "Soda Can", "material": "aluminum", "recyclable": true},
  {"date": "2026-05-01T11:00:00Z", "item": "Egg Carton", "material": "paper", "recyclable": true}
]`

	first, err := decodeDocument([]byte(doc))
	require.NoError(t, err)
	require.Len(t, first.Entries, 4)

	ids := make(map[string]bool)
	for _, e := range first.Entries {
		require.NotEmpty(t, e.ID)
		assert.False(t, ids[e.ID], "duplicate id %s", e.ID)
		ids[e.ID] = true
	}
	assert.True(t, ids["dup"], "the first holder of an id keeps it")

	log := history.NewLog(first.Entries)
	assert.Equal(t, 4, log.Len())

	second, err := decodeDocument([]byte(doc))
	require.NoError(t, err)
	for i := range first.Entries {
		assert.Equal(t, first.Entries[i].ID, second.Entries[i].ID, "minted ids are stable")
	}
	for id := range ids {
		if id == "dup" {
			continue
		}
		u, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(3), u.Version())
	}
}

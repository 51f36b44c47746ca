package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/scanledger/internal/history"
)

var testDay = time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)

// createTestSQLite opens a fresh database under t.TempDir().
func createTestSQLite(t *testing.T, opts ...SQLiteOption) *SQLite {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "log.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// testEntry creates an Entry with one recyclable scan.
func testEntry(id string, offset time.Duration, item string) history.Entry {
	return history.NewEntry(id, history.Scan{
		At:            testDay.Add(offset),
		Item:          item,
		Material:      "plastic",
		Recyclable:    true,
		Bin:           "blue",
		CarbonSavedKg: 0.25,
		Source:        history.SourcePhoto,
	}, history.StatusNone)
}

const legacyJSON = `[
  {
    "id": "legacy-1",
    "date": "2026-05-01T08:00:00Z",
    "item": "Glass Jar",
    "material": "glass",
    "recyclable": true,
    "bin": "green",
    "carbonSavedKg": 0.3,
    "recycled": true,
    "source": "camera",
    "imagePath": "/captures/jar.jpg"
  },
  {
    "id": "legacy-2",
    "date": "2026-05-01T09:00:00Z",
    "item": "Chip Bag",
    "material": "film",
    "recyclable": false,
    "bin": "landfill",
    "carbonSavedKg": -1,
    "source": "text"
  }
]`

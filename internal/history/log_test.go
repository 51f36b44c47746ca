package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_OrdersByDateDescending(t *testing.T) {
	older := NewEntry("old", scanAt(0, "can", "aluminum", true, SourceText), StatusNone)
	newer := NewEntry("new", scanAt(time.Hour, "jar", "glass", true, SourceText), StatusNone)

	l := NewLog([]Entry{older, newer})

	snap := l.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "new", snap[0].ID)
	assert.Equal(t, "old", snap[1].ID)
}

func TestLog_SnapshotIsACopy(t *testing.T) {
	l := NewLog([]Entry{NewEntry("e1", scanAt(0, "can", "aluminum", true, SourceText), StatusNone)})

	snap := l.Snapshot()
	snap[0].Item = "mutated"
	snap[0].Scans[0].Item = "mutated"

	got, ok := l.Get("e1")
	require.True(t, ok)
	assert.Equal(t, "can", got.Item)
	assert.Equal(t, "can", got.Scans[0].Item)
}

func TestLog_UpdateUnknownIDIsNoOp(t *testing.T) {
	l := NewLog(nil)
	called := false

	ok := l.Update("missing", func(e Entry) Entry { called = true; return e })

	assert.False(t, ok)
	assert.False(t, called)
	assert.Zero(t, l.Len())
}

func TestLog_UpdateKeepsID(t *testing.T) {
	l := NewLog([]Entry{NewEntry("e1", scanAt(0, "can", "aluminum", true, SourceText), StatusNone)})

	ok := l.Update("e1", func(e Entry) Entry {
		e.ID = "hijacked"
		e.RemoteImagePath = "s3://b/k"
		return e
	})

	require.True(t, ok)
	got, ok := l.Get("e1")
	require.True(t, ok)
	assert.Equal(t, "e1", got.ID)
	assert.Equal(t, "s3://b/k", got.RemoteImagePath)
}

func TestLog_DuplicateIDsKeepFirst(t *testing.T) {
	a := NewEntry("e1", scanAt(0, "can", "aluminum", true, SourceText), StatusNone)
	b := NewEntry("e1", scanAt(time.Hour, "jar", "glass", true, SourceText), StatusNone)

	l := NewLog([]Entry{a, b})

	assert.Equal(t, 1, l.Len())
	got, _ := l.Get("e1")
	assert.Equal(t, "can", got.Item)
}

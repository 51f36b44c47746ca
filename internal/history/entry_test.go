package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scanledger/internal/keys"
)

func TestNewEntry(t *testing.T) {
	s := scanAt(0, "Plastic Bottle", "plastic", true, SourcePhoto)
	s.CarbonSavedKg = 0.2
	s.LocalImagePath = "/captures/1.jpg"

	e := NewEntry("e1", s, StatusNone)

	assert.Equal(t, "e1", e.ID)
	assert.Equal(t, 1, e.ScanCount)
	require.Len(t, e.Scans, 1)
	assert.Equal(t, MarkedForRecycle, e.Status)
	assert.Equal(t, SourcePhoto, e.Source)
	assert.Equal(t, "/captures/1.jpg", e.LocalImagePath)
	assert.Equal(t, s.At, e.Date)
	assert.InDelta(t, 0.2, e.CarbonSavedKg, 1e-9)
}

func TestRecordScan_AccumulatesWithoutDoubleCounting(t *testing.T) {
	first := scanAt(0, "Plastic Bottle", "plastic", true, SourcePhoto)
	first.CarbonSavedKg = 0.3
	second := scanAt(time.Hour, "plastic bottle", "plastic", true, SourceText)
	second.CarbonSavedKg = 0.1

	e := NewEntry("e1", first, StatusNone).RecordScan(second, StatusNone)

	assert.Equal(t, 2, e.ScanCount)
	require.Len(t, e.Scans, 2)
	assert.Equal(t, second.At, e.Scans[0].At, "most recent first")
	assert.InDelta(t, 0.3, e.CarbonSavedKg, 1e-9, "carbon is a running max")
	assert.Equal(t, "plastic bottle", e.Item, "display follows the latest scan")
	assert.Equal(t, SourcePhoto, e.Source, "photo wins")
	assert.Equal(t, second.At, e.Date)
}

func TestRecordScan_ClampsNegativeCarbon(t *testing.T) {
	s := scanAt(0, "can", "aluminum", true, SourceText)
	s.CarbonSavedKg = -4

	e := NewEntry("e1", s, StatusNone)

	assert.Equal(t, 0.0, e.CarbonSavedKg)
	assert.Equal(t, 0.0, e.Scans[0].CarbonSavedKg)
}

func TestRecordScan_DoesNotMutateReceiver(t *testing.T) {
	e := NewEntry("e1", scanAt(0, "can", "aluminum", true, SourceText), StatusNone)
	_ = e.RecordScan(scanAt(time.Minute, "can", "aluminum", true, SourceText), StatusNone)

	assert.Equal(t, 1, e.ScanCount)
	assert.Len(t, e.Scans, 1)
}

func TestRecordScan_TrimsHistoryButKeepsCounting(t *testing.T) {
	e := NewEntry("e1", scanAt(0, "can", "aluminum", true, SourceText), StatusNone)
	for i := 1; i < MaxRetainedScans+5; i++ {
		e = e.RecordScan(scanAt(time.Duration(i)*time.Minute, "can", "aluminum", true, SourceText), StatusNone)
	}

	assert.Len(t, e.Scans, MaxRetainedScans)
	assert.Equal(t, MaxRetainedScans+5, e.ScanCount)
	assert.GreaterOrEqual(t, e.ScanCount, len(e.Scans))
}

func TestRecordScan_StatusIsMonotonic(t *testing.T) {
	e := NewEntry("e1", scanAt(0, "can", "aluminum", true, SourceText), Recycled)
	require.Equal(t, Recycled, e.Status)

	e = e.RecordScan(scanAt(time.Minute, "can", "aluminum", true, SourceText), StatusNone)
	assert.Equal(t, Recycled, e.Status)

	e = e.RecordScan(scanAt(2*time.Minute, "can", "aluminum", false, SourceText), StatusNone)
	assert.Equal(t, Recycled, e.Status)
}

func remoteFacts(rec RemoteRecord) RemoteFacts {
	return rec.Facts(testDay, time.UTC, nil)
}

func TestMergeWithRemote_PhotoKeepsDisplayAgainstText(t *testing.T) {
	local := NewEntry("e1", scanAt(0, "Steel Can", "steel", true, SourcePhoto), StatusNone)
	rec := RemoteRecord{
		Item:       "can",
		Material:   "metal",
		Recyclable: true,
		ScannedAt:  testDay.Add(time.Hour).Format(time.RFC3339),
		ScanCount:  1,
		Source:     "text",
		Points:     500,
	}

	merged := local.MergeWithRemote(rec, remoteFacts(rec))

	assert.Equal(t, "Steel Can", merged.Item)
	assert.Equal(t, "steel", merged.Material)
	assert.Equal(t, SourcePhoto, merged.Source)
	assert.InDelta(t, 0.5, merged.CarbonSavedKg, 1e-9)
	assert.Equal(t, Recycled, merged.Status)
	assert.Equal(t, 2, merged.ScanCount)
}

func TestMergeWithRemote_TextRefreshedByPhoto(t *testing.T) {
	local := NewEntry("e1", scanAt(0, "can", "", true, SourceText), StatusNone)
	rec := RemoteRecord{
		Item:       "Steel Can",
		Material:   "steel",
		Recyclable: true,
		ScannedAt:  testDay.Add(time.Hour).Format(time.RFC3339),
		Source:     "photo",
	}

	merged := local.MergeWithRemote(rec, remoteFacts(rec))

	assert.Equal(t, "Steel Can", merged.Item)
	assert.Equal(t, "steel", merged.Material)
	assert.Equal(t, SourcePhoto, merged.Source)
}

func TestMergeWithRemote_EmptyFieldsDoNotBlankDisplay(t *testing.T) {
	local := NewEntry("e1", scanAt(0, "glass jar", "glass", true, SourceText), StatusNone)
	rec := RemoteRecord{Recyclable: true, ScannedAt: "not a time", Source: "text"}

	merged := local.MergeWithRemote(rec, remoteFacts(rec))

	assert.Equal(t, "glass jar", merged.Item)
	assert.Equal(t, "glass", merged.Material)
}

func TestMergeWithRemote_Idempotent(t *testing.T) {
	local := NewEntry("e1", scanAt(0, "Steel Can", "steel", true, SourcePhoto), StatusNone)
	rec := RemoteRecord{
		Item:       "steel can",
		Material:   "steel",
		Recyclable: true,
		ScannedAt:  testDay.Add(30 * time.Minute).Format(time.RFC3339),
		ScanCount:  1,
		Source:     "photo",
		Points:     120,
		ImagePath:  "s3://bucket/e1.jpg",
	}

	once := local.MergeWithRemote(rec, remoteFacts(rec))
	twice := once.MergeWithRemote(rec, remoteFacts(rec))

	assert.Equal(t, once, twice)
	assert.Equal(t, "s3://bucket/e1.jpg", twice.RemoteImagePath)
}

func TestMergeWithRemote_SameSecondIsNotANewScan(t *testing.T) {
	s := scanAt(0, "can", "aluminum", true, SourceText)
	s.At = s.At.Add(400 * time.Millisecond)
	local := NewEntry("e1", s, StatusNone)

	// The pushed copy of the local scan comes back with second precision.
	rec := RecordFor(local, time.UTC, nil)
	merged := local.MergeWithRemote(rec, remoteFacts(rec))

	assert.Equal(t, 1, merged.ScanCount)
	assert.Len(t, merged.Scans, 1)
}

func TestMergeWithRemote_StatusNeverRegresses(t *testing.T) {
	local := NewEntry("e1", scanAt(0, "can", "aluminum", true, SourceText), Recycled)
	rec := RemoteRecord{Item: "can", Material: "aluminum", Recyclable: true, ScannedAt: testDay.Format(time.RFC3339)}
	require.Equal(t, MarkedForRecycle, rec.ImpliedStatus())

	merged := local.MergeWithRemote(rec, remoteFacts(rec))

	assert.Equal(t, Recycled, merged.Status)
}

func TestMergeWithRemote_OldScanIntoFullHistory(t *testing.T) {
	e := NewEntry("e1", scanAt(time.Hour, "can", "aluminum", true, SourceText), StatusNone)
	for i := 1; i < MaxRetainedScans; i++ {
		e = e.RecordScan(scanAt(time.Hour+time.Duration(i)*time.Minute, "can", "aluminum", true, SourceText), StatusNone)
	}
	require.Len(t, e.Scans, MaxRetainedScans)

	rec := RemoteRecord{Item: "can", Material: "aluminum", Recyclable: true, ScannedAt: testDay.Format(time.RFC3339)}
	merged := e.MergeWithRemote(rec, remoteFacts(rec))

	assert.Equal(t, e.ScanCount, merged.ScanCount)
	assert.Equal(t, e.Scans, merged.Scans)
}

func TestMergeWithRemote_HeldScanOnlyJoins(t *testing.T) {
	local := NewEntry("e1", scanAt(0, "Steel Can", "steel", true, SourcePhoto), StatusNone)
	local.RemoteItemKey = "steel can|steel|blue"

	// Same capture as the local scan, but the server reports it as
	// non-recyclable under another key with more scans and points.
	rec := RemoteRecord{
		Item:       "Steel Can",
		Material:   "steel",
		Bin:        "blue",
		Recyclable: false,
		ItemKey:    "srv-7",
		ScannedAt:  testDay.Format(time.RFC3339),
		ScanCount:  3,
		Source:     "text",
		Points:     400,
		ImagePath:  "s3://bucket/e1.jpg",
	}
	require.True(t, local.Holds(testDay, keys.ItemKey(rec.Item, rec.Material, rec.Bin)))

	merged := local.MergeWithRemote(rec, remoteFacts(rec))

	assert.True(t, merged.Recyclable, "display fields are not refreshed by a held scan")
	assert.Equal(t, "steel can|steel|blue", merged.RemoteItemKey)
	assert.Equal(t, "s3://bucket/e1.jpg", merged.RemoteImagePath)
	assert.Equal(t, 3, merged.ScanCount)
	assert.Len(t, merged.Scans, 1)
	assert.InDelta(t, 0.4, merged.CarbonSavedKg, 1e-9)
	assert.Equal(t, MarkedForRecycle, merged.Status)
}

func TestMergeWithRemote_OtherItemInSameSecondIsNewScan(t *testing.T) {
	local := NewEntry("e1", scanAt(0, "can", "", true, SourcePhoto), StatusNone)
	rec := RemoteRecord{
		Item:       "can",
		Material:   "aluminum",
		Bin:        "blue",
		Recyclable: true,
		ScannedAt:  testDay.Format(time.RFC3339),
		Source:     "photo",
	}

	merged := local.MergeWithRemote(rec, remoteFacts(rec))

	assert.Len(t, merged.Scans, 2)
	assert.Equal(t, 2, merged.ScanCount)
	assert.Equal(t, "aluminum", merged.Material)
}

func TestMergeWithRemote_OwnPushedRowIsHeld(t *testing.T) {
	local := NewEntry("e1", scanAt(time.Hour, "can", "plastic", true, SourceText), StatusNone)
	photo := RemoteRecord{
		Item:       "Steel Can",
		Material:   "steel",
		Bin:        "blue",
		Recyclable: true,
		ScannedAt:  testDay.Format(time.RFC3339),
		Source:     "photo",
	}
	merged := local.MergeWithRemote(photo, remoteFacts(photo))
	require.Equal(t, "Steel Can", merged.Item)
	require.Equal(t, local.Date, merged.Date)

	pushed := RecordFor(merged, time.UTC, nil)
	again := merged.MergeWithRemote(pushed, remoteFacts(pushed))

	assert.Equal(t, merged.ScanCount, again.ScanCount)
	assert.Equal(t, merged.Scans, again.Scans)
}

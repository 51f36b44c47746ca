package history

import (
	"math"
	"time"

	"github.com/roach88/scanledger/internal/carbon"
	"github.com/roach88/scanledger/internal/keys"
)

// MaxRetainedScans bounds the scan history kept on one Entry.
// ScanCount keeps counting past it.
const MaxRetainedScans = 20

// Entry aggregates every Scan judged to be the same logical item on one day.
type Entry struct {
	ID              string    `json:"id"`
	Date            time.Time `json:"date"`
	Item            string    `json:"item"`
	Material        string    `json:"material"`
	Bin             string    `json:"bin"`
	Notes           string    `json:"notes,omitempty"`
	Recyclable      bool      `json:"recyclable"`
	CarbonSavedKg   float64   `json:"carbon_saved_kg"`
	Status          Status    `json:"status"`
	ScanCount       int       `json:"scan_count"`
	Scans           []Scan    `json:"scans"`
	Source          Source    `json:"source"`
	LocalImagePath  string    `json:"local_image_path,omitempty"`
	RemoteImagePath string    `json:"remote_image_path,omitempty"`

	// RemoteItemKey is the server item key this Entry was last merged under.
	RemoteItemKey string `json:"remote_item_key,omitempty"`
}

// NewEntry creates an Entry holding a single scan.
func NewEntry(id string, s Scan, requested Status) Entry {
	return Entry{ID: id}.RecordScan(s, requested)
}

// Clone returns a deep copy of e.
func (e Entry) Clone() Entry {
	if e.Scans != nil {
		scans := make([]Scan, len(e.Scans))
		copy(scans, e.Scans)
		e.Scans = scans
	}
	return e
}

// ItemKey is the exact-match key of the Entry's current display fields.
func (e Entry) ItemKey() string {
	return keys.ItemKey(e.Item, e.Material, e.Bin)
}

// DayKey is the calendar day of the Entry's most recent date in loc.
func (e Entry) DayKey(loc *time.Location) string {
	return keys.DayKey(e.Date, loc)
}

// Tokens returns the Entry's similarity tokens.
func (e Entry) Tokens() keys.Tokens {
	return keys.SimilarityTokens(e.Item, e.Material)
}

// HasLocalImage reports whether a local capture is attached.
func (e Entry) HasLocalImage() bool {
	return e.LocalImagePath != ""
}

// RecordScan returns e updated with a newly ingested scan.
//
// The scan is prepended and becomes authoritative for the display fields.
// Carbon and status take their maxima; the source becomes photo if either
// side is photo.
func (e Entry) RecordScan(s Scan, requested Status) Entry {
	s = s.Normalized()
	out := e.Clone()

	scans := make([]Scan, 0, len(e.Scans)+1)
	scans = append(scans, s)
	scans = append(scans, e.Scans...)

	out.ScanCount = max(e.ScanCount+1, len(scans))
	out.Scans = trimScans(scans)
	out.CarbonSavedKg = math.Max(carbon.Clamp(e.CarbonSavedKg), s.CarbonSavedKg)
	out.Status = MaxStatus(e.Status, StatusFor(s, requested))

	out.Item = s.Item
	out.Material = s.Material
	out.Bin = s.Bin
	out.Notes = s.Notes
	out.Recyclable = s.Recyclable

	out.Date = s.At
	out.Source = mergeSource(e.Source, s.Source)
	if s.LocalImagePath != "" {
		out.LocalImagePath = s.LocalImagePath
	}
	if s.RemoteImagePath != "" {
		out.RemoteImagePath = s.RemoteImagePath
	}
	return out
}

// Holds reports whether e already accounts for a capture of itemKey at at:
// a scan of that item in the same second, or the row RecordFor pushes for e.
func (e Entry) Holds(at time.Time, itemKey string) bool {
	if sameInstant(at, e.Date) && itemKey == e.ItemKey() {
		return true
	}
	return holdsScan(e.Scans, at, itemKey)
}

// MergeWithRemote returns e updated with an authoritative remote record whose
// derived facts have already been computed.
//
// Unlike RecordScan the merge is idempotent: when e already holds the
// record's scan (same second, same item) only the monotone fields are joined
// and display fields are left alone, so applying the same record twice yields
// the same Entry. Display fields are also kept when e came from a photo and
// the record is text only.
func (e Entry) MergeWithRemote(rec RemoteRecord, f RemoteFacts) Entry {
	if e.Holds(f.At, keys.ItemKey(rec.Item, rec.Material, rec.Bin)) {
		return e.joinRemote(rec, f)
	}
	out := e.Clone()

	scan := Scan{
		At:              f.At,
		Item:            rec.Item,
		Material:        rec.Material,
		Recyclable:      rec.Recyclable,
		Bin:             rec.Bin,
		Notes:           rec.Notes,
		CarbonSavedKg:   f.CarbonSavedKg,
		Source:          f.Source,
		RemoteImagePath: rec.ImagePath,
	}.Normalized()

	scans, inserted := insertScan(out.Scans, scan)
	out.Scans = scans
	count := e.ScanCount
	if inserted {
		count++
	}
	out.ScanCount = max(count, rec.ScanCount, len(scans))

	out.CarbonSavedKg = math.Max(carbon.Clamp(e.CarbonSavedKg), scan.CarbonSavedKg)
	out.Status = MaxStatus(e.Status, f.Status)

	if !(e.Source == SourcePhoto && f.Source == SourceText) {
		refreshNonEmpty(&out.Item, rec.Item)
		refreshNonEmpty(&out.Material, rec.Material)
		refreshNonEmpty(&out.Bin, rec.Bin)
		refreshNonEmpty(&out.Notes, rec.Notes)
		out.Recyclable = rec.Recyclable
	}

	if f.At.After(e.Date) {
		out.Date = f.At
	}
	out.Source = mergeSource(e.Source, f.Source)
	if rec.ImagePath != "" {
		out.RemoteImagePath = rec.ImagePath
	}
	out.RemoteItemKey = f.ItemKey
	return out
}

// joinRemote folds a record whose scan e already holds. Every field it
// touches only grows, so repeating it changes nothing.
func (e Entry) joinRemote(rec RemoteRecord, f RemoteFacts) Entry {
	out := e.Clone()
	out.ScanCount = max(e.ScanCount, rec.ScanCount, len(e.Scans))
	out.CarbonSavedKg = math.Max(carbon.Clamp(e.CarbonSavedKg), carbon.Clamp(f.CarbonSavedKg))
	out.Status = MaxStatus(e.Status, f.Status)
	if f.At.After(e.Date) {
		out.Date = f.At
	}
	out.Source = mergeSource(e.Source, f.Source)
	fillEmpty(&out.RemoteImagePath, rec.ImagePath)
	fillEmpty(&out.RemoteItemKey, f.ItemKey)
	return out
}

func fillEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func refreshNonEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

package history

import (
	"strings"
	"time"

	"github.com/roach88/scanledger/internal/carbon"
	"github.com/roach88/scanledger/internal/keys"
)

// RemoteRecord is one row of the authoritative impact log shared across a
// user's devices. Any field may be empty and ScannedAt may be malformed.
type RemoteRecord struct {
	Item       string `json:"item" yaml:"item"`
	Material   string `json:"material" yaml:"material"`
	Bin        string `json:"bin" yaml:"bin"`
	Notes      string `json:"notes,omitempty" yaml:"notes,omitempty"`
	Recyclable bool   `json:"recyclable" yaml:"recyclable"`
	ItemKey    string `json:"item_key" yaml:"item_key"`
	DayKey     string `json:"day_key" yaml:"day_key"`
	ScannedAt  string `json:"scanned_at" yaml:"scanned_at"`
	ScanCount  int    `json:"scan_count" yaml:"scan_count"`
	Source     string `json:"source" yaml:"source"`
	Points     int    `json:"points" yaml:"points"`
	ImagePath  string `json:"image_path,omitempty" yaml:"image_path,omitempty"`
}

// RemoteFacts are the values derived from a RemoteRecord before merging.
type RemoteFacts struct {
	At            time.Time
	DayKey        string
	ItemKey       string
	Status        Status
	CarbonSavedKg float64
	Source        Source
}

// timestampLayouts are tried in order by ParseTimestamp.
// Layouts without a zone are read in the caller's location.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses a remote timestamp. ok is false when no layout matches.
func ParseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ImpliedStatus is the status a remote record reports.
// Points are only awarded once an item is actually recycled.
func (r RemoteRecord) ImpliedStatus() Status {
	switch {
	case !r.Recyclable:
		return NonRecyclable
	case r.Points > 0:
		return Recycled
	default:
		return MarkedForRecycle
	}
}

// Facts derives the merge inputs for r.
//
// The scan time comes from ScannedAt. When that is malformed the record's own
// day key is used (as midnight of that day in loc) if it is well formed;
// otherwise now. The day key is always recomputed from the chosen time so an
// Entry built from r buckets back to the same day.
func (r RemoteRecord) Facts(now time.Time, loc *time.Location, policy carbon.Policy) RemoteFacts {
	if loc == nil {
		loc = time.Local
	}
	if policy == nil {
		policy = carbon.Default()
	}

	at, ok := ParseTimestamp(r.ScannedAt, loc)
	if !ok {
		// The row's own day_key wins over now so it stays on the day the
		// server filed it instead of landing on today.
		at = now
		if day, err := time.ParseInLocation(keys.DayLayout, strings.TrimSpace(r.DayKey), loc); err == nil {
			at = day
		}
	}

	itemKey := strings.TrimSpace(r.ItemKey)
	if itemKey == "" {
		itemKey = keys.ItemKey(r.Item, r.Material, r.Bin)
	}

	return RemoteFacts{
		At:            at,
		DayKey:        keys.DayKey(at, loc),
		ItemKey:       itemKey,
		Status:        r.ImpliedStatus(),
		CarbonSavedKg: policy.KgFromPoints(r.Points),
		Source:        ParseSource(r.Source),
	}
}

// RecordFor builds the row pushed to the remote impact log for e.
// Recycled entries always carry at least one point so the status survives
// the round trip.
func RecordFor(e Entry, loc *time.Location, policy carbon.Policy) RemoteRecord {
	if policy == nil {
		policy = carbon.Default()
	}
	points := 0
	if e.Status == Recycled {
		points = max(1, policy.PointsFromKg(e.CarbonSavedKg))
	}
	return RemoteRecord{
		Item:       e.Item,
		Material:   e.Material,
		Bin:        e.Bin,
		Notes:      e.Notes,
		Recyclable: e.Recyclable,
		ItemKey:    e.ItemKey(),
		DayKey:     e.DayKey(loc),
		ScannedAt:  e.Date.Format(time.RFC3339),
		ScanCount:  e.ScanCount,
		Source:     string(e.Source),
		Points:     points,
		ImagePath:  e.RemoteImagePath,
	}
}

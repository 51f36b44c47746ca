package history

import (
	"strings"
	"time"

	"github.com/roach88/scanledger/internal/carbon"
	"github.com/roach88/scanledger/internal/keys"
)

// Source records how a classification was produced.
type Source string

const (
	SourcePhoto Source = "photo"
	SourceText  Source = "text"
)

// ParseSource maps a free-form source tag onto a Source.
// Anything mentioning a photo, image or camera is SourcePhoto.
func ParseSource(tag string) Source {
	t := strings.ToLower(strings.TrimSpace(tag))
	for _, marker := range []string{"photo", "image", "camera"} {
		if strings.Contains(t, marker) {
			return SourcePhoto
		}
	}
	return SourceText
}

// mergeSource returns photo if either side is photo.
func mergeSource(a, b Source) Source {
	if a == SourcePhoto || b == SourcePhoto {
		return SourcePhoto
	}
	return SourceText
}

// Scan is one classification result applied to one capture. Scans are immutable.
type Scan struct {
	At              time.Time `json:"at"`
	Item            string    `json:"item"`
	Material        string    `json:"material"`
	Recyclable      bool      `json:"recyclable"`
	Bin             string    `json:"bin"`
	Notes           string    `json:"notes,omitempty"`
	CarbonSavedKg   float64   `json:"carbon_saved_kg"`
	Source          Source    `json:"source"`
	LocalImagePath  string    `json:"local_image_path,omitempty"`
	RemoteImagePath string    `json:"remote_image_path,omitempty"`
	Raw             string    `json:"raw,omitempty"`
}

// Normalized returns s with carbon clamped and an empty source defaulted to text.
func (s Scan) Normalized() Scan {
	s.CarbonSavedKg = carbon.Clamp(s.CarbonSavedKg)
	if s.Source != SourcePhoto {
		s.Source = SourceText
	}
	return s
}

// ItemKey is the exact-match key of the scan's own fields.
func (s Scan) ItemKey() string {
	return keys.ItemKey(s.Item, s.Material, s.Bin)
}

// sameInstant reports whether two scan times fall in the same second.
// Remote rows round-trip through text and lose sub-second precision.
func sameInstant(a, b time.Time) bool {
	return a.Truncate(time.Second).Equal(b.Truncate(time.Second))
}

// holdsScan reports whether scans already contain a scan of itemKey taken in
// the same second as at.
func holdsScan(scans []Scan, at time.Time, itemKey string) bool {
	for _, existing := range scans {
		if sameInstant(existing.At, at) && existing.ItemKey() == itemKey {
			return true
		}
	}
	return false
}

// insertScan places s into scans (most recent first) unless it is already
// present or too old to be retained. The input slice is not modified.
// Different items captured in the same second are distinct scans.
func insertScan(scans []Scan, s Scan) ([]Scan, bool) {
	if holdsScan(scans, s.At, s.ItemKey()) {
		return scans, false
	}
	if len(scans) >= MaxRetainedScans && s.At.Before(scans[len(scans)-1].At) {
		return scans, false
	}

	pos := len(scans)
	for i, existing := range scans {
		if existing.At.Before(s.At) {
			pos = i
			break
		}
	}

	out := make([]Scan, 0, len(scans)+1)
	out = append(out, scans[:pos]...)
	out = append(out, s)
	out = append(out, scans[pos:]...)
	return trimScans(out), true
}

func trimScans(scans []Scan) []Scan {
	if len(scans) > MaxRetainedScans {
		return scans[:MaxRetainedScans]
	}
	return scans
}

package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/scanledger/internal/history"
)

// FormatVersion is the version written by this package.
const FormatVersion = 2

// legacyNamespace seeds IDs minted for legacy records that lack a usable one.
// They are name-based version 3 UUIDs, so decoding the same file twice mints
// the same IDs and none is mistaken for a synthesized (version 5) one.
var legacyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("scanledger:legacy-entry"))

// fileDocument is the on-disk JSON shape.
type fileDocument struct {
	Version int             `json:"version"`
	Entries []history.Entry `json:"entries"`
}

// legacyEntry is one element of the version 1 format: a bare JSON array with
// exactly one scan folded into every entry.
type legacyEntry struct {
	ID            string    `json:"id"`
	Date          time.Time `json:"date"`
	Item          string    `json:"item"`
	Material      string    `json:"material"`
	Recyclable    bool      `json:"recyclable"`
	Bin           string    `json:"bin"`
	Notes         string    `json:"notes"`
	CarbonSavedKg float64   `json:"carbonSavedKg"`
	Recycled      bool      `json:"recycled"`
	Source        string    `json:"source"`
	ImagePath     string    `json:"imagePath"`
	RemoteImage   string    `json:"remoteImagePath"`
	Raw           string    `json:"rawResponse"`
}

// decoded is a parsed log plus whether it came from the legacy format.
type decoded struct {
	Entries  []history.Entry
	Upgraded bool
}

// decodeDocument parses either file format.
func decodeDocument(data []byte) (decoded, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return decoded{Entries: []history.Entry{}}, nil
	}

	if trimmed[0] == '[' {
		var legacy []legacyEntry
		if err := json.Unmarshal(trimmed, &legacy); err != nil {
			return decoded{}, fmt.Errorf("decode legacy log: %w", err)
		}
		entries := make([]history.Entry, 0, len(legacy))
		seen := make(map[string]bool, len(legacy))
		for i, l := range legacy {
			if l.ID == "" || seen[l.ID] {
				l.ID = legacyID(i, l)
			}
			seen[l.ID] = true
			entries = append(entries, l.upgrade())
		}
		return decoded{Entries: history.SortByDate(entries), Upgraded: true}, nil
	}

	var doc fileDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return decoded{}, fmt.Errorf("decode log: %w", err)
	}
	if doc.Version != FormatVersion {
		return decoded{}, fmt.Errorf("decode log: unsupported version %d", doc.Version)
	}
	if doc.Entries == nil {
		doc.Entries = []history.Entry{}
	}
	return decoded{Entries: doc.Entries}, nil
}

// encodeDocument renders entries in the current format.
func encodeDocument(entries []history.Entry) ([]byte, error) {
	if entries == nil {
		entries = []history.Entry{}
	}
	data, err := json.MarshalIndent(fileDocument{Version: FormatVersion, Entries: entries}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode log: %w", err)
	}
	return append(data, '\n'), nil
}

// legacyID mints the ID of the i-th legacy record.
func legacyID(i int, l legacyEntry) string {
	name := strconv.Itoa(i) + "|" + l.ID + "|" + l.Date.UTC().Format(time.RFC3339Nano) + "|" + l.Item
	return uuid.NewMD5(legacyNamespace, []byte(name)).String()
}

// upgrade turns a legacy record into a single-scan Entry.
func (l legacyEntry) upgrade() history.Entry {
	requested := history.MarkedForRecycle
	if l.Recycled {
		requested = history.Recycled
	}
	scan := history.Scan{
		At:              l.Date,
		Item:            l.Item,
		Material:        l.Material,
		Recyclable:      l.Recyclable,
		Bin:             l.Bin,
		Notes:           l.Notes,
		CarbonSavedKg:   l.CarbonSavedKg,
		Source:          history.ParseSource(l.Source),
		LocalImagePath:  l.ImagePath,
		RemoteImagePath: l.RemoteImage,
		Raw:             l.Raw,
	}
	return history.NewEntry(l.ID, scan, requested)
}

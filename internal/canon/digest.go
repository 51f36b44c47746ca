package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/roach88/scanledger/internal/history"
)

// DomainLog separates log digests from any other hash in the system.
const DomainLog = "scanledger/log/v1"

// hashWithDomain computes SHA256(domain || 0x00 || data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Grams converts kilograms to whole grams for canonical encoding.
func Grams(kg float64) int64 {
	return int64(math.Round(kg * 1000))
}

// Kilograms renders kg at full precision. Floats are not canonical, so the
// digest carries carbon as the shortest decimal string that round-trips.
func Kilograms(kg float64) string {
	return strconv.FormatFloat(kg, 'g', -1, 64)
}

// EntryView is the canonical map form of an Entry. Every field that affects
// what a user sees or what a later merge decides is included.
func EntryView(e history.Entry) map[string]any {
	scans := make([]any, len(e.Scans))
	for i, s := range e.Scans {
		scans[i] = map[string]any{
			"at":                timestamp(s.At),
			"item":              s.Item,
			"material":          s.Material,
			"bin":               s.Bin,
			"notes":             s.Notes,
			"recyclable":        s.Recyclable,
			"carbon_g":          Grams(s.CarbonSavedKg),
			"carbon_kg":         Kilograms(s.CarbonSavedKg),
			"source":            string(s.Source),
			"local_image_path":  s.LocalImagePath,
			"remote_image_path": s.RemoteImagePath,
			"raw":               s.Raw,
		}
	}
	return map[string]any{
		"id":                e.ID,
		"date":              timestamp(e.Date),
		"item":              e.Item,
		"material":          e.Material,
		"bin":               e.Bin,
		"notes":             e.Notes,
		"recyclable":        e.Recyclable,
		"carbon_g":          Grams(e.CarbonSavedKg),
		"carbon_kg":         Kilograms(e.CarbonSavedKg),
		"status":            e.Status.String(),
		"scan_count":        e.ScanCount,
		"scans":             scans,
		"source":            string(e.Source),
		"local_image_path":  e.LocalImagePath,
		"remote_image_path": e.RemoteImagePath,
		"remote_item_key":   e.RemoteItemKey,
	}
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// MarshalLog returns the canonical bytes of a log in its given order.
func MarshalLog(entries []history.Entry) ([]byte, error) {
	views := make([]any, len(entries))
	for i, e := range entries {
		views[i] = EntryView(e)
	}
	b, err := Marshal(views)
	if err != nil {
		return nil, fmt.Errorf("marshal log: %w", err)
	}
	return b, nil
}

// Digest returns the content digest of a log. Two logs share a digest
// exactly when their canonical bytes are equal.
func Digest(entries []history.Entry) (string, error) {
	b, err := MarshalLog(entries)
	if err != nil {
		return "", err
	}
	return hashWithDomain(DomainLog, b), nil
}

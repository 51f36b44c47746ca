package history

import "math"

// Compare orders two Entries that refer to the same key.
// It returns a positive number when a is preferred, negative when b is,
// and 0 when they are indistinguishable.
//
// Priority, highest first: status rank, photo over text, presence of a local
// image, scan count, most recent date, carbon saved.
func Compare(a, b Entry) int {
	if c := a.Status.Rank() - b.Status.Rank(); c != 0 {
		return c
	}
	if c := boolRank(a.Source == SourcePhoto) - boolRank(b.Source == SourcePhoto); c != 0 {
		return c
	}
	if c := boolRank(a.HasLocalImage()) - boolRank(b.HasLocalImage()); c != 0 {
		return c
	}
	if c := a.ScanCount - b.ScanCount; c != 0 {
		return c
	}
	if !a.Date.Equal(b.Date) {
		if a.Date.After(b.Date) {
			return 1
		}
		return -1
	}
	switch {
	case a.CarbonSavedKg > b.CarbonSavedKg:
		return 1
	case a.CarbonSavedKg < b.CarbonSavedKg:
		return -1
	}
	return 0
}

// Prefer reports whether a should be kept over b. Ties keep a.
func Prefer(a, b Entry) bool {
	return Compare(a, b) >= 0
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Absorb folds the evidence of a duplicate Entry into winner.
// The winner keeps its identity and display fields; scans, counts, carbon,
// status and image references are combined so nothing recorded on loser is lost.
func Absorb(winner, loser Entry) Entry {
	out := winner.Clone()
	if winner.ID == loser.ID {
		return out
	}

	scans := out.Scans
	for _, s := range loser.Scans {
		scans, _ = insertScan(scans, s)
	}
	out.Scans = scans
	out.ScanCount = max(winner.ScanCount, loser.ScanCount, len(scans))
	out.CarbonSavedKg = math.Max(winner.CarbonSavedKg, loser.CarbonSavedKg)
	out.Status = MaxStatus(winner.Status, loser.Status)
	out.Source = mergeSource(winner.Source, loser.Source)
	if loser.Date.After(out.Date) {
		out.Date = loser.Date
	}
	fillEmpty(&out.LocalImagePath, loser.LocalImagePath)
	fillEmpty(&out.RemoteImagePath, loser.RemoteImagePath)
	fillEmpty(&out.RemoteItemKey, loser.RemoteItemKey)
	return out
}

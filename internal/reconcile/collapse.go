package reconcile

import (
	"time"

	"github.com/roach88/scanledger/internal/history"
)

// Collapse merges Entries that share a (dayKey, itemKey) pair, keeping the
// preferred one under history.Prefer and absorbing the rest into it.
// A synthesized survivor keeps the ID of a local Entry it absorbs.
// The survivor takes the position of the first Entry of its group.
// It returns the collapsed log and the number of Entries removed.
func Collapse(entries []history.Entry, loc *time.Location) ([]history.Entry, int) {
	out := make([]history.Entry, 0, len(entries))
	index := make(map[string]int, len(entries))
	removed := 0
	for _, e := range entries {
		key := groupKey(e.DayKey(loc), e.ItemKey())
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, e.Clone())
			continue
		}
		removed++
		out[i] = absorbPreferred(out[i], e)
	}
	return out, removed
}

// absorbPreferred folds a and b into whichever history.Prefer keeps.
// A synthesized winner takes over a local loser's ID so Entries the user
// created keep their identity.
func absorbPreferred(a, b history.Entry) history.Entry {
	winner, loser := a, b
	if !history.Prefer(a, b) {
		winner, loser = b, a
	}
	out := history.Absorb(winner, loser)
	if isSynthesized(winner.ID) && !isSynthesized(loser.ID) {
		out.ID = loser.ID
	}
	return out
}

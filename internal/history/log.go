package history

import (
	"sort"
)

// Log is arena storage for Entries keyed by ID, with a display order.
//
// Log is not safe for concurrent use; the engine's run loop owns it.
// Everything handed out is a copy.
type Log struct {
	entries map[string]*Entry
	order   []string
}

// NewLog builds a Log from entries in the given order.
// Later occurrences of an ID are ignored.
func NewLog(entries []Entry) *Log {
	l := &Log{entries: make(map[string]*Entry, len(entries))}
	l.Replace(entries)
	return l
}

// Len returns the number of Entries.
func (l *Log) Len() int {
	return len(l.order)
}

// Get returns a copy of the Entry with the given ID.
func (l *Log) Get(id string) (Entry, bool) {
	e, ok := l.entries[id]
	if !ok {
		return Entry{}, false
	}
	return e.Clone(), true
}

// Snapshot returns copies of all Entries in display order.
func (l *Log) Snapshot() []Entry {
	out := make([]Entry, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.entries[id].Clone())
	}
	return out
}

// Replace swaps the whole content of the Log.
func (l *Log) Replace(entries []Entry) {
	l.entries = make(map[string]*Entry, len(entries))
	l.order = l.order[:0]
	for _, e := range entries {
		if _, ok := l.entries[e.ID]; ok {
			continue
		}
		c := e.Clone()
		l.entries[e.ID] = &c
		l.order = append(l.order, e.ID)
	}
	l.sortByDate()
}

// Update applies fn to the Entry with the given ID.
// It returns false, leaving the Log untouched, if the ID is unknown.
func (l *Log) Update(id string, fn func(Entry) Entry) bool {
	e, ok := l.entries[id]
	if !ok {
		return false
	}
	updated := fn(e.Clone())
	updated.ID = id
	*e = updated
	l.sortByDate()
	return true
}

// sortByDate orders Entries most recent first. The sort is stable so Entries
// sharing a date keep their relative order.
func (l *Log) sortByDate() {
	sort.SliceStable(l.order, func(i, j int) bool {
		return l.entries[l.order[i]].Date.After(l.entries[l.order[j]].Date)
	})
}

// SortByDate returns entries ordered most recent first (stable).
func SortByDate(entries []Entry) []Entry {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})
	return entries
}

package reconcile

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/scanledger/internal/carbon"
	"github.com/roach88/scanledger/internal/history"
	"github.com/roach88/scanledger/internal/keys"
)

// synthesizedNamespace seeds the UUIDv5 identifiers of Entries built from
// remote records.
var synthesizedNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("scanledger:synthesized-entry"))

// Fuzzy match score weights.
const (
	scorePhoto      = 20
	scoreLocalImage = 10
	scoreSubstring  = 3
)

// Options configures a reconciliation.
type Options struct {
	// Now stands in for unparseable record timestamps.
	Now time.Time

	// Location buckets both local and remote times into days. Nil means time.Local.
	Location *time.Location

	// Policy converts record points to carbon. Nil means carbon.Default().
	Policy carbon.Policy
}

// Result is the reconciled log plus what happened to build it.
type Result struct {
	// Entries is the new log, most recent first.
	Entries []history.Entry

	// Merged counts records folded into an existing Entry.
	Merged int

	// Synthesized counts records that became a new Entry.
	Synthesized int

	// Collapsed counts local duplicates removed by preference ranking.
	Collapsed int
}

type group struct {
	entry history.Entry
	key   string
}

// state indexes the groups under construction by (dayKey, display itemKey).
// No two groups share a key between records.
type state struct {
	opts      Options
	groups    []*group
	byKey     map[string]*group
	ids       map[string]bool
	collapsed int
}

func groupKey(day, itemKey string) string {
	return day + "\x00" + itemKey
}

// Reconcile merges records into local and returns the new log.
// Neither input is modified.
func Reconcile(local []history.Entry, records []history.RemoteRecord, opts Options) Result {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Policy == nil {
		opts.Policy = carbon.Default()
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	premerged, collapsed := Collapse(local, opts.Location)
	st := &state{
		opts:  opts,
		byKey: make(map[string]*group, len(premerged)),
		ids:   make(map[string]bool, len(premerged)),
	}
	for _, e := range premerged {
		g := &group{entry: e, key: st.keyOf(e)}
		st.groups = append(st.groups, g)
		st.byKey[g.key] = g
		st.ids[e.ID] = true
	}

	res := Result{}
	for _, rec := range records {
		if st.apply(rec) {
			res.Merged++
		} else {
			res.Synthesized++
		}
	}

	out := make([]history.Entry, 0, len(st.groups))
	for _, g := range st.groups {
		out = append(out, g.entry)
	}
	out, n := Collapse(out, opts.Location)
	res.Collapsed = collapsed + st.collapsed + n
	res.Entries = history.SortByDate(out)
	return res
}

func (st *state) keyOf(e history.Entry) string {
	return groupKey(e.DayKey(st.opts.Location), e.ItemKey())
}

// apply folds one record into the state. It reports whether the record
// merged into an existing group.
func (st *state) apply(rec history.RemoteRecord) bool {
	f := rec.Facts(st.opts.Now, st.opts.Location, st.opts.Policy)
	scanKey := keys.ItemKey(rec.Item, rec.Material, rec.Bin)

	// A group already holding the scan wins over the exact key: an earlier
	// pass may have folded the record into an Entry displayed under another key.
	g := st.holding(f, scanKey)
	if g == nil {
		g = st.byKey[groupKey(f.DayKey, f.ItemKey)]
	}
	if g == nil {
		g = st.byKey[groupKey(f.DayKey, scanKey)]
	}
	if g == nil {
		g = st.linked(f)
	}
	if g == nil {
		g = st.fuzzy(rec, f)
	}
	if g == nil {
		st.synthesize(rec, f)
		return false
	}

	g.entry = g.entry.MergeWithRemote(rec, f)
	st.rekey(g)
	return true
}

// holding finds a group on the record's day that already contains the
// record's scan.
func (st *state) holding(f history.RemoteFacts, scanKey string) *group {
	for _, g := range st.groups {
		if g.entry.DayKey(st.opts.Location) == f.DayKey && g.entry.Holds(f.At, scanKey) {
			return g
		}
	}
	return nil
}

// linked finds the first group on the record's day that an earlier
// reconciliation attached to the same server item key.
func (st *state) linked(f history.RemoteFacts) *group {
	for _, g := range st.groups {
		if g.entry.RemoteItemKey == f.ItemKey && g.entry.DayKey(st.opts.Location) == f.DayKey {
			return g
		}
	}
	return nil
}

// fuzzy returns the highest scoring similar group on the record's day.
// Ties go to the earliest group.
func (st *state) fuzzy(rec history.RemoteRecord, f history.RemoteFacts) *group {
	tokens := keys.SimilarityTokens(rec.Item, rec.Material)
	var best *group
	bestScore := -1
	for _, g := range st.groups {
		if g.entry.DayKey(st.opts.Location) != f.DayKey {
			continue
		}
		if !keys.Compatible(tokens, g.entry.Tokens(), rec.Material, g.entry.Material) {
			continue
		}
		if s := score(g.entry, f.ItemKey); s > bestScore {
			best, bestScore = g, s
		}
	}
	return best
}

func score(e history.Entry, recordItemKey string) int {
	s := max(1, e.ScanCount)
	if e.Source == history.SourcePhoto {
		s += scorePhoto
	}
	if e.HasLocalImage() {
		s += scoreLocalImage
	}
	if recordItemKey != "" && strings.Contains(e.ItemKey(), recordItemKey) {
		s += scoreSubstring
	}
	return s
}

// rekey moves g to the key of its current display fields. A group already
// under that key is collapsed with g on the spot.
func (st *state) rekey(g *group) {
	key := st.keyOf(g.entry)
	if key == g.key {
		return
	}
	if st.byKey[g.key] == g {
		delete(st.byKey, g.key)
	}
	g.key = key
	other, taken := st.byKey[key]
	if !taken {
		st.byKey[key] = g
		return
	}
	other.entry = absorbPreferred(other.entry, g.entry)
	st.remove(g)
	st.collapsed++
}

func (st *state) remove(g *group) {
	for i, x := range st.groups {
		if x == g {
			st.groups = append(st.groups[:i], st.groups[i+1:]...)
			return
		}
	}
}

func (st *state) synthesize(rec history.RemoteRecord, f history.RemoteFacts) {
	g := &group{entry: history.Entry{ID: st.synthesizedID(f.DayKey, f.ItemKey)}.MergeWithRemote(rec, f)}
	st.groups = append(st.groups, g)
	st.rekey(g)
}

// synthesizedID derives a stable identifier for a synthesized Entry,
// stepping past identifiers already in use.
func (st *state) synthesizedID(day, itemKey string) string {
	id := SynthesizedID(day, itemKey)
	for n := 1; st.ids[id]; n++ {
		id = nameID(fmt.Sprintf("%s|%s#%d", day, itemKey, n))
	}
	st.ids[id] = true
	return id
}

// SynthesizedID is the identifier a record with the given keys receives when
// it becomes a new Entry and nothing else already holds that identifier.
func SynthesizedID(day, itemKey string) string {
	return nameID(day + "|" + itemKey)
}

// isSynthesized reports whether id was minted by SynthesizedID.
func isSynthesized(id string) bool {
	u, err := uuid.Parse(id)
	return err == nil && u.Version() == 5
}

func nameID(name string) string {
	return uuid.NewSHA1(synthesizedNamespace, []byte(name)).String()
}

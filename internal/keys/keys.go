package keys

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// DayLayout is the wire format of a day key.
const DayLayout = "2006-01-02"

// UnknownMaterial is the sentinel for materials the classifier could not name.
const UnknownMaterial = "unknown"

// itemKeySeparator joins the three ItemKey fields.
const itemKeySeparator = "|"

// noInformation lists the material spellings that mean "nothing known".
var noInformation = map[string]bool{
	"":     true,
	"n/a":  true,
	"null": true,
	"-":    true,
}

// DayKey returns the calendar day t falls on in loc.
// A nil loc means time.Local.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DayLayout)
}

// ValidDayKey reports whether s is a well-formed day key.
func ValidDayKey(s string) bool {
	_, err := time.Parse(DayLayout, s)
	return err == nil
}

// ItemKey builds the exact-match composite key for an item.
//
// Each field is NFKC-normalised, lowercased and whitespace-collapsed; the
// material goes through NormalizedMaterial so every "no information" spelling
// produces the same key.
func ItemKey(item, material, bin string) string {
	return strings.Join([]string{
		fold(item),
		NormalizedMaterial(material),
		fold(bin),
	}, itemKeySeparator)
}

// NormalizedMaterial lowercases and trims a material label, mapping the
// recognised "no information" spellings to UnknownMaterial.
func NormalizedMaterial(material string) string {
	m := fold(material)
	if noInformation[m] {
		return UnknownMaterial
	}
	return m
}

// fold normalises s for key comparison.
// cases.Caser is stateful, so a fresh one is built per call.
func fold(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Lower(language.Und).String(s)
	return strings.Join(strings.Fields(s), " ")
}

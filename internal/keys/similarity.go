package keys

import (
	"strings"
	"unicode"
)

// Tokens is a set of lowercase alphanumeric words.
type Tokens map[string]struct{}

// SimilarityTokens tokenizes an item name and its material into a word set.
// A material carrying no information contributes nothing.
// Only used for fuzzy matching, never for identity.
func SimilarityTokens(item, material string) Tokens {
	if NormalizedMaterial(material) == UnknownMaterial {
		material = ""
	}
	t := make(Tokens)
	for _, field := range []string{item, material} {
		words := strings.FieldsFunc(fold(field), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, w := range words {
			if w != "" {
				t[w] = struct{}{}
			}
		}
	}
	return t
}

// Overlap returns the number of tokens present in both sets.
func (t Tokens) Overlap(other Tokens) int {
	small, large := t, other
	if len(small) > len(large) {
		small, large = large, small
	}
	n := 0
	for w := range small {
		if _, ok := large[w]; ok {
			n++
		}
	}
	return n
}

// SubsetOf reports whether every token of t is in other.
func (t Tokens) SubsetOf(other Tokens) bool {
	for w := range t {
		if _, ok := other[w]; !ok {
			return false
		}
	}
	return true
}

// AreSimilar reports whether two token sets name the same item.
//
// Two shared tokens are always enough. A single shared token only counts when
// one set is contained in the other, so one generic word ("bottle") does not
// join unrelated items.
func AreSimilar(a, b Tokens) bool {
	n := a.Overlap(b)
	if n >= 2 {
		return true
	}
	return n >= 1 && (a.SubsetOf(b) || b.SubsetOf(a))
}

// Compatible applies AreSimilar together with the material veto.
//
// An unknown material never vetoes. When both materials are known and differ,
// the match stands only on an overlap of at least two tokens.
func Compatible(a, b Tokens, materialA, materialB string) bool {
	if !AreSimilar(a, b) {
		return false
	}
	ma, mb := NormalizedMaterial(materialA), NormalizedMaterial(materialB)
	if ma == UnknownMaterial || mb == UnknownMaterial || ma == mb {
		return true
	}
	return a.Overlap(b) >= 2
}

package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarityTokens(t *testing.T) {
	tokens := SimilarityTokens("Jar (Glass), 500ml!", "glass")
	assert.Equal(t, Tokens{"500ml": {}, "glass": {}, "jar": {}}, tokens)
}

func TestSimilarityTokens_Empty(t *testing.T) {
	assert.Empty(t, SimilarityTokens("", "  "))
	assert.Empty(t, SimilarityTokens("--", "()"))
}

func TestAreSimilar(t *testing.T) {
	tests := []struct {
		name string
		a, b Tokens
		want bool
	}{
		{
			name: "two shared tokens",
			a:    SimilarityTokens("plastic bottle", "plastic"),
			b:    SimilarityTokens("Plastic Bottle", "PET plastic"),
			want: true,
		},
		{
			name: "single shared token without subset",
			a:    SimilarityTokens("plastic bottle", ""),
			b:    SimilarityTokens("glass bottle", ""),
			want: false,
		},
		{
			name: "single shared token with subset",
			a:    SimilarityTokens("bottle", ""),
			b:    SimilarityTokens("glass bottle", ""),
			want: true,
		},
		{
			name: "can is not candle",
			a:    SimilarityTokens("can", ""),
			b:    SimilarityTokens("candle", ""),
			want: false,
		},
		{
			name: "no overlap",
			a:    SimilarityTokens("glass jar", "glass"),
			b:    SimilarityTokens("aluminum can", "aluminum"),
			want: false,
		},
		{
			name: "empty sets",
			a:    Tokens{},
			b:    SimilarityTokens("jar", ""),
			want: false,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AreSimilar(tc.a, tc.b))
			assert.Equal(t, tc.want, AreSimilar(tc.b, tc.a), "must be symmetric")
		})
	}
}

func TestCompatible_UnknownMaterialNeverVetoes(t *testing.T) {
	a := SimilarityTokens("bottle", "")
	b := SimilarityTokens("bottle", "plastic")

	assert.True(t, Compatible(a, b, "n/a", "plastic"))
}

func TestCompatible_DifferentMaterialsNeedTwoTokens(t *testing.T) {
	// "jar" alone is a subset match but the materials disagree.
	weak := SimilarityTokens("jar", "")
	other := SimilarityTokens("jar", "")
	assert.False(t, Compatible(weak, other, "glass", "plastic"))

	// Strong naming evidence outweighs a material wording mismatch.
	a := SimilarityTokens("glass jar", "glass")
	b := SimilarityTokens("jar (glass)", "glass jar")
	assert.True(t, Compatible(a, b, "glass", "glass jar"))
}

func TestCompatible_SameMaterial(t *testing.T) {
	a := SimilarityTokens("bottle", "")
	b := SimilarityTokens("water bottle", "")
	assert.True(t, Compatible(a, b, "Plastic", "plastic"))
}

func TestSimilarityTokens_UnknownMaterialAddsNothing(t *testing.T) {
	for _, m := range []string{"n/a", "NULL", "-", "unknown", " "} {
		assert.Equal(t, Tokens{"bottle": {}}, SimilarityTokens("Bottle", m), m)
	}
}

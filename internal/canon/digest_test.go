package canon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scanledger/internal/history"
)

func sampleEntry(id string) history.Entry {
	return history.NewEntry(id, history.Scan{
		At:            time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC),
		Item:          "Steel Can",
		Material:      "steel",
		Recyclable:    true,
		Bin:           "blue",
		CarbonSavedKg: 0.1234,
		Source:        history.SourcePhoto,
	}, history.StatusNone)
}

func TestGrams(t *testing.T) {
	assert.Equal(t, int64(500), Grams(0.5))
	assert.Equal(t, int64(123), Grams(0.1234))
	assert.Equal(t, int64(0), Grams(0))
}

func TestDigest_StableAndSensitive(t *testing.T) {
	a := []history.Entry{sampleEntry("e1")}
	b := []history.Entry{sampleEntry("e1")}

	da, err := Digest(a)
	require.NoError(t, err)
	db, err := Digest(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)
	assert.Len(t, da, 64)

	b[0].Status = history.Recycled
	dc, err := Digest(b)
	require.NoError(t, err)
	assert.NotEqual(t, da, dc)
}

func TestDigest_OrderMatters(t *testing.T) {
	e1, e2 := sampleEntry("e1"), sampleEntry("e2")

	d1, err := Digest([]history.Entry{e1, e2})
	require.NoError(t, err)
	d2, err := Digest([]history.Entry{e2, e1})
	require.NoError(t, err)
	assert.NotEqual(t, d1, d2)
}

func TestMarshalLog_Empty(t *testing.T) {
	b, err := MarshalLog(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))
}

func TestKilograms(t *testing.T) {
	assert.Equal(t, "0.5", Kilograms(0.5))
	assert.Equal(t, "0.1234", Kilograms(0.1234))
	assert.Equal(t, "0", Kilograms(0))
}

func TestDigest_SeesSubGramCarbon(t *testing.T) {
	a := sampleEntry("e1")
	b := sampleEntry("e1")
	b.CarbonSavedKg += 0.0004
	require.Equal(t, Grams(a.CarbonSavedKg), Grams(b.CarbonSavedKg))

	da, err := Digest([]history.Entry{a})
	require.NoError(t, err)
	db, err := Digest([]history.Entry{b})
	require.NoError(t, err)
	assert.NotEqual(t, da, db)
}

func TestDigest_SeesRawClassifierOutput(t *testing.T) {
	a := sampleEntry("e1")
	b := sampleEntry("e1").Clone()
	b.Scans[0].Raw = `{"item":"Steel Can"}`

	da, err := Digest([]history.Entry{a})
	require.NoError(t, err)
	db, err := Digest([]history.Entry{b})
	require.NoError(t, err)
	assert.NotEqual(t, da, db)
}

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/faceted-index/internal/fieldmap"
	"github.com/gcbaptista/faceted-index/model"
)

func TestEncodeDecode_RoundTripsDocument(t *testing.T) {
	ids := fieldmap.New()
	doc := model.Document{
		"title": "Inception",
		"year":  float64(2010),
		"cast":  []interface{}{"Leonardo DiCaprio", "Joseph Gordon-Levitt"},
	}

	data, err := Encode(doc, ids)
	require.NoError(t, err)

	decoded, err := DecodeDocument(data, ids)
	require.NoError(t, err)
	assert.Equal(t, doc["title"], decoded["title"])
	assert.Equal(t, doc["year"], decoded["year"])
	assert.Equal(t, doc["cast"], decoded["cast"])
}

func TestDecode_RecordsAreAscendingByFieldID(t *testing.T) {
	ids := fieldmap.New()
	doc := model.Document{"zeta": "last", "alpha": "first"}

	data, err := Encode(doc, ids)
	require.NoError(t, err)

	records, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Less(t, records[0].FieldID, records[1].FieldID)
}

func TestMergeRecords_NewValuesWinPerField(t *testing.T) {
	old := []Record{
		{FieldID: 0, Raw: []byte(`"old-title"`)},
		{FieldID: 1, Raw: []byte(`2000`)},
	}
	new := []Record{
		{FieldID: 0, Raw: []byte(`"new-title"`)},
	}

	merged := MergeRecords(old, new)
	require.Len(t, merged, 2)
	assert.Equal(t, `"new-title"`, string(merged[0].Raw))
	assert.Equal(t, `2000`, string(merged[1].Raw))
}

func TestMergeRecords_IntroducesNewFields(t *testing.T) {
	old := []Record{{FieldID: 0, Raw: []byte(`"title"`)}}
	new := []Record{{FieldID: 5, Raw: []byte(`"genre"`)}}

	merged := MergeRecords(old, new)
	require.Len(t, merged, 2)
	assert.Equal(t, uint16(0), merged[0].FieldID)
	assert.Equal(t, uint16(5), merged[1].FieldID)
}

func TestEncodeRecords_RoundTripsThroughDecode(t *testing.T) {
	records := []Record{
		{FieldID: 0, Raw: []byte(`"a"`)},
		{FieldID: 2, Raw: []byte(`"b"`)},
	}
	data := EncodeRecords(records)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, records, decoded)
}

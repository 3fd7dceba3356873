package indexing

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/faceted-index/config"
	"github.com/gcbaptista/faceted-index/internal/docids"
	"github.com/gcbaptista/faceted-index/internal/fieldmap"
	"github.com/gcbaptista/faceted-index/model"
	docstore "github.com/gcbaptista/faceted-index/store"
)

func drainDocuments(t *testing.T, out *TransformOutput) map[uint32]model.Document {
	t.Helper()
	got := make(map[uint32]model.Document)
	for {
		k, v, err := out.Documents.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		doc, err := docstore.DecodeDocument(v, out.FieldsIdsMap)
		require.NoError(t, err)
		got[DecodeInternalIDKey(k)] = doc
	}
	return got
}

func TestTransform_AssignsInternalIDsAndTracksDistribution(t *testing.T) {
	out, err := Transform(TransformInput{
		Documents: []model.Document{
			{"movie_id": "tt001", "title": "Inception"},
			{"movie_id": "tt002", "title": "Arrival"},
		},
		FieldsIdsMap:        fieldmap.New(),
		ExternalDocumentIds: docids.New(),
		Mode:                config.ReplaceDocuments,
	})
	require.NoError(t, err)
	defer out.Documents.Close()

	assert.Equal(t, "movie_id", out.PrimaryKey)
	assert.Equal(t, 2, out.DocumentsCount)
	assert.Equal(t, 2, out.FieldDistribution["title"])
	assert.Equal(t, uint64(2), out.NewDocumentsIds.GetCardinality())

	docs := drainDocuments(t, out)
	assert.Equal(t, "Inception", docs[0]["title"])
	assert.Equal(t, "Arrival", docs[1]["title"])
}

func TestTransform_LastOccurrenceWinsForDuplicatePrimaryKey(t *testing.T) {
	out, err := Transform(TransformInput{
		Documents: []model.Document{
			{"movie_id": "tt001", "title": "First"},
			{"movie_id": "tt001", "title": "Second"},
		},
		FieldsIdsMap:        fieldmap.New(),
		ExternalDocumentIds: docids.New(),
		Mode:                config.ReplaceDocuments,
	})
	require.NoError(t, err)
	defer out.Documents.Close()

	assert.Equal(t, 1, out.DocumentsCount)
	docs := drainDocuments(t, out)
	assert.Equal(t, "Second", docs[0]["title"])
}

func TestTransform_ReusesInternalIDAndTracksReplaced(t *testing.T) {
	ids := docids.New()
	ids.Insert("tt001", 7)
	require.NoError(t, ids.Rebuild())

	out, err := Transform(TransformInput{
		Documents: []model.Document{
			{"movie_id": "tt001", "title": "Replaced"},
		},
		FieldsIdsMap:        fieldmap.New(),
		ExternalDocumentIds: ids,
		Mode:                config.ReplaceDocuments,
		NextInternalID:      8,
	})
	require.NoError(t, err)
	defer out.Documents.Close()

	assert.Equal(t, uint64(1), out.ReplacedDocumentsIds.GetCardinality())
	assert.True(t, out.ReplacedDocumentsIds.Contains(7))
	docs := drainDocuments(t, out)
	assert.Equal(t, "Replaced", docs[7]["title"])
}

func TestTransform_MissingDocumentIDFailsWithoutAutogenerate(t *testing.T) {
	_, err := Transform(TransformInput{
		Documents: []model.Document{
			{"title": "No id field here"},
		},
		FieldsIdsMap:        fieldmap.New(),
		ExternalDocumentIds: docids.New(),
		PrimaryKey:          "movie_id",
		Mode:                config.ReplaceDocuments,
	})
	require.Error(t, err)
}

func TestTransform_InvalidDocumentIDRejected(t *testing.T) {
	_, err := Transform(TransformInput{
		Documents: []model.Document{
			{"movie_id": "not a valid id!", "title": "x"},
		},
		FieldsIdsMap:        fieldmap.New(),
		ExternalDocumentIds: docids.New(),
		Mode:                config.ReplaceDocuments,
	})
	require.Error(t, err)
}

func TestTransform_AutogeneratesUUIDWhenMissing(t *testing.T) {
	out, err := Transform(TransformInput{
		Documents: []model.Document{
			{"title": "Untitled"},
		},
		FieldsIdsMap:        fieldmap.New(),
		ExternalDocumentIds: docids.New(),
		PrimaryKey:          "movie_id",
		AutogenerateDocids:  true,
		Mode:                config.ReplaceDocuments,
	})
	require.NoError(t, err)
	defer out.Documents.Close()
	assert.Equal(t, 1, out.DocumentsCount)
}

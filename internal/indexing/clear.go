package indexing

import (
	"github.com/gcbaptista/faceted-index/internal/docids"
	"github.com/gcbaptista/faceted-index/internal/store"
)

// ClearDocuments implements spec.md §4.8: truncates every posting table,
// resets WordsFst/WordsPrefixesFst/ExternalDocumentsIds/FieldDistribution,
// the documents table, the geo tree, and per-field faceted-document
// bitmaps. The fields-id map is preserved. Returns the count of documents
// removed.
func ClearDocuments(tx *store.Tx) (int, error) {
	documentsTable, err := tx.Table(store.TableDocuments)
	if err != nil {
		return 0, err
	}
	removed := 0
	if err := documentsTable.ForEach(func(k, v []byte) error {
		removed++
		return nil
	}); err != nil {
		return 0, err
	}

	for _, name := range store.AllTables {
		table, err := tx.Table(name)
		if err != nil {
			return 0, err
		}
		if err := table.Clear(); err != nil {
			return 0, err
		}
	}

	return removed, nil
}

// ResetExternalDocumentsIds returns a fresh, empty ExternalDocumentsIds,
// used alongside ClearDocuments since the hard FST and soft overlay tables
// it persists to were already truncated above.
func ResetExternalDocumentsIds() *docids.ExternalDocumentsIds {
	return docids.New()
}

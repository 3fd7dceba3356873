package indexing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/faceted-index/internal/store"
)

func TestClearDocuments_TruncatesTablesButKeepsFieldsIDMap(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Update(func(tx *store.Tx) error {
		docs, err := tx.Table(store.TableDocuments)
		require.NoError(t, err)
		require.NoError(t, docs.Put([]byte{0, 0, 0, 1}, []byte("doc-1")))
		require.NoError(t, docs.Put([]byte{0, 0, 0, 2}, []byte("doc-2")))

		words, err := tx.Table(store.TableWordDocids)
		require.NoError(t, err)
		require.NoError(t, words.Put([]byte("quick"), bitmap(t, 1)))

		fields, err := tx.Table(store.TableFieldsIDMap)
		require.NoError(t, err)
		return fields.Put([]byte("title"), []byte{0, 0})
	}))

	var removed int
	require.NoError(t, s.Update(func(tx *store.Tx) error {
		var err error
		removed, err = ClearDocuments(tx)
		return err
	}))
	assert.Equal(t, 2, removed)

	require.NoError(t, s.View(func(tx *store.Tx) error {
		docs, err := tx.Table(store.TableDocuments)
		require.NoError(t, err)
		assert.True(t, docs.Empty())

		words, err := tx.Table(store.TableWordDocids)
		require.NoError(t, err)
		assert.True(t, words.Empty())

		fields, err := tx.Table(store.TableFieldsIDMap)
		require.NoError(t, err)
		assert.False(t, fields.Empty(), "fields id map must survive ClearDocuments")
		return nil
	}))
}

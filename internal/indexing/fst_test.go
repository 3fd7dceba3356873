package indexing

import (
	"testing"

	"github.com/blevesearch/vellum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/faceted-index/internal/store"
)

func seedWordDocids(t *testing.T, s *store.Store, words ...string) {
	t.Helper()
	require.NoError(t, s.Update(func(tx *store.Tx) error {
		table, err := tx.Table(store.TableWordDocids)
		require.NoError(t, err)
		for _, w := range words {
			require.NoError(t, table.Put([]byte(w), bitmap(t, 1)))
		}
		return nil
	}))
}

func TestRebuildWordsFst_ContainsEveryWordDocidsKey(t *testing.T) {
	s := openTestStore(t)
	seedWordDocids(t, s, "cat", "car", "cart", "dog")

	var fstBytes []byte
	require.NoError(t, s.View(func(tx *store.Tx) error {
		var err error
		fstBytes, err = RebuildWordsFst(tx)
		return err
	}))

	fst, err := vellum.Load(fstBytes)
	require.NoError(t, err)
	for _, w := range []string{"cat", "car", "cart", "dog"} {
		_, exists, err := fst.Get([]byte(w))
		require.NoError(t, err)
		assert.True(t, exists, "expected %q in rebuilt FST", w)
	}
}

func TestDerivePrefixes_KeepsOnlyPrefixesAtOrAboveThreshold(t *testing.T) {
	s := openTestStore(t)
	words := []string{"cart", "card", "care", "cap"}
	seedWordDocids(t, s, words...)

	var fstBytes []byte
	require.NoError(t, s.View(func(tx *store.Tx) error {
		var err error
		fstBytes, err = RebuildWordsFst(tx)
		return err
	}))

	prefixes, err := DerivePrefixes(fstBytes, 4, 3)
	require.NoError(t, err)

	var found bool
	for _, p := range prefixes {
		if p.Prefix == "ca" {
			found = true
			assert.Equal(t, 4, p.Count)
		}
		assert.LessOrEqual(t, len(p.Prefix), 4)
	}
	assert.True(t, found, "expected prefix \"ca\" to be retained")
}

func TestDiffPrefixFsts_ClassifiesNewCommonDeleted(t *testing.T) {
	oldFst, err := BuildPrefixFst([]PrefixCount{{Prefix: "ca", Count: 5}, {Prefix: "do", Count: 5}})
	require.NoError(t, err)

	diff, err := DiffPrefixFsts(oldFst, []PrefixCount{
		{Prefix: "ca", Count: 6},
		{Prefix: "el", Count: 5},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"el"}, diff.New)
	assert.Equal(t, []string{"do"}, diff.Deleted)
	assert.Contains(t, diff.Common['c'], "ca")
}

func TestDiffPrefixFsts_NilOldTreatsEveryPrefixAsNew(t *testing.T) {
	diff, err := DiffPrefixFsts(nil, []PrefixCount{{Prefix: "ab", Count: 5}})
	require.NoError(t, err)
	assert.Equal(t, []string{"ab"}, diff.New)
	assert.Empty(t, diff.Deleted)
}

package indexing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/faceted-index/config"
	"github.com/gcbaptista/faceted-index/index"
	"github.com/gcbaptista/faceted-index/internal/store"
)

func seedFacetLevel0(t *testing.T, s *store.Store, fieldID uint16, years []float64) {
	t.Helper()
	require.NoError(t, s.Update(func(tx *store.Tx) error {
		table, err := tx.Table(store.TableFacetNumber)
		require.NoError(t, err)
		for i, y := range years {
			key := index.FacetNumberKey(fieldID, 0, y, y)
			require.NoError(t, table.Put(key, bitmap(t, uint32(i))))
		}
		return nil
	}))
}

func TestBuildFacetLevels_BucketsConsecutiveEntries(t *testing.T) {
	s := openTestStore(t)
	years := []float64{1990, 1995, 2000, 2005, 2010, 2015, 2020, 2025, 2030, 2035, 2040, 2045, 2050, 2055, 2060, 2065, 2070, 2075, 2080, 2085}
	seedFacetLevel0(t, s, 1, years)

	cfg := config.DefaultIndexerConfig()
	cfg.FacetLevelGroupSize = 4
	cfg.FacetMinLevelSize = 2

	require.NoError(t, s.Update(func(tx *store.Tx) error {
		return BuildFacetLevels(tx, 1, cfg)
	}))

	require.NoError(t, s.View(func(tx *store.Tx) error {
		table, err := tx.Table(store.TableFacetNumber)
		require.NoError(t, err)
		level1, err := readFacetLevel(table, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, 5, len(level1)) // 20 entries / group size 4

		first := level1[0]
		assert.Equal(t, float64(1990), first.left)
		assert.Equal(t, float64(2005), first.right)
		assert.Equal(t, uint64(4), first.bitmap.GetCardinality())
		return nil
	}))
}

func TestBuildFacetLevels_StopsBelowMinLevelSize(t *testing.T) {
	s := openTestStore(t)
	seedFacetLevel0(t, s, 1, []float64{1, 2, 3, 4, 5})

	cfg := config.DefaultIndexerConfig()
	cfg.FacetLevelGroupSize = 4
	cfg.FacetMinLevelSize = 5

	require.NoError(t, s.Update(func(tx *store.Tx) error {
		return BuildFacetLevels(tx, 1, cfg)
	}))

	require.NoError(t, s.View(func(tx *store.Tx) error {
		table, err := tx.Table(store.TableFacetNumber)
		require.NoError(t, err)
		level1, err := readFacetLevel(table, 1, 1)
		require.NoError(t, err)
		assert.Empty(t, level1, "5 entries in groups of 4 makes 2 groups, below min_level_size 5")
		return nil
	}))
}

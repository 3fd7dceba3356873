package indexing

import (
	"encoding/binary"
	"sort"

	"github.com/RoaringBitmap/roaring"

	"github.com/gcbaptista/faceted-index/config"
	"github.com/gcbaptista/faceted-index/index"
	"github.com/gcbaptista/faceted-index/internal/store"
)

// facetLevel0Entry is one (range, bitmap) pair read back from level 0 of
// the FacetNumberDocids table for a single field.
type facetLevel0Entry struct {
	left, right float64
	bitmap      *roaring.Bitmap
}

// BuildFacetLevels implements spec.md §4.7: for each faceted numeric field,
// build a hierarchy of levels above level 0, bucketing level_group_size
// consecutive entries of level L into one range-union entry at level L+1,
// stopping once a level would contain fewer than min_level_size groups.
func BuildFacetLevels(tx *store.Tx, fieldID uint16, cfg config.IndexerConfig) error {
	table, err := tx.Table(store.TableFacetNumber)
	if err != nil {
		return err
	}

	level0, err := readFacetLevel(table, fieldID, 0)
	if err != nil {
		return err
	}
	if len(level0) == 0 {
		return nil
	}

	groupSize := cfg.FacetLevelGroupSize
	if groupSize <= 0 {
		groupSize = 4
	}
	minLevelSize := cfg.FacetMinLevelSize
	if minLevelSize <= 0 {
		minLevelSize = 5
	}

	current := level0
	level := uint8(1)
	for {
		numGroups := (len(current) + groupSize - 1) / groupSize
		if numGroups < minLevelSize {
			return nil
		}

		next := make([]facetLevel0Entry, 0, numGroups)
		for i := 0; i < len(current); i += groupSize {
			end := i + groupSize
			if end > len(current) {
				end = len(current)
			}
			group := current[i:end]
			bitmap := roaring.New()
			left := group[0].left
			right := group[0].right
			for _, e := range group {
				bitmap.Or(e.bitmap)
				if e.left < left {
					left = e.left
				}
				if e.right > right {
					right = e.right
				}
			}
			next = append(next, facetLevel0Entry{left: left, right: right, bitmap: bitmap})

			key := index.FacetNumberKey(fieldID, level, left, right)
			value, err := bitmap.ToBytes()
			if err != nil {
				return err
			}
			if err := table.Put(key, value); err != nil {
				return err
			}
		}

		current = next
		level++
		if level == 0 { // uint8 wraparound guard; unreachable in practice
			return nil
		}
	}
}

func readFacetLevel(table *store.Table, fieldID uint16, level uint8) ([]facetLevel0Entry, error) {
	var entries []facetLevel0Entry
	prefix := make([]byte, 3)
	binary.BigEndian.PutUint16(prefix[:2], fieldID)
	prefix[2] = level

	err := table.PrefixIterator(prefix, false, func(k, v []byte) error {
		left, right := decodeFacetRange(k)
		bitmap := roaring.New()
		if err := bitmap.UnmarshalBinary(v); err != nil {
			return err
		}
		entries = append(entries, facetLevel0Entry{left: left, right: right, bitmap: bitmap})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].left < entries[j].left })
	return entries, nil
}

func decodeFacetRange(key []byte) (left, right float64) {
	var leftBytes, rightBytes [8]byte
	copy(leftBytes[:], key[3:11])
	copy(rightBytes[:], key[11:19])
	return index.DecodeFloat64(leftBytes), index.DecodeFloat64(rightBytes)
}

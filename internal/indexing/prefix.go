package indexing

import (
	"io"
	"sort"
	"strings"

	"github.com/gcbaptista/faceted-index/internal/sorter"
	"github.com/gcbaptista/faceted-index/internal/store"
)

// PrefixDerivativeKind identifies which of the three word-level snapshots a
// prefix-derivative pass scans.
type PrefixDerivativeKind int

const (
	PrefixDerivativeDocids PrefixDerivativeKind = iota
	PrefixDerivativePairProximity
	PrefixDerivativePosition
)

// derivativeTable maps a derivative kind to its target table and merge
// function. All three kinds merge by roaring-bitmap union, since their
// values are docid bitmaps; proximity and position payloads are not
// byte-concatenated.
func derivativeTable(kind PrefixDerivativeKind) (table string, merge sorter.MergeFunc) {
	switch kind {
	case PrefixDerivativeDocids:
		return store.TableWordPrefixDocids, sorter.MergeRoaringBitmaps
	case PrefixDerivativePairProximity:
		return store.TableWordPrefixPairProx, sorter.MergeRoaringBitmaps
	case PrefixDerivativePosition:
		return store.TableWordPrefixPosition, sorter.MergeRoaringBitmaps
	default:
		return "", nil
	}
}

// sourceSnapshot picks which word-level snapshot map a derivative kind
// scans.
func sourceSnapshot(kind PrefixDerivativeKind, snap WriterSnapshot) map[string][]byte {
	switch kind {
	case PrefixDerivativeDocids:
		return snap.WordDocids
	case PrefixDerivativePairProximity:
		return snap.WordPairProximity
	case PrefixDerivativePosition:
		return snap.WordPosition
	default:
		return nil
	}
}

// wordOf extracts the word a word-level table key starts with, so
// single-pass prefix-group matching can operate uniformly across all three
// source tables regardless of each key's suffix shape.
func wordOf(kind PrefixDerivativeKind, key string) string {
	switch kind {
	case PrefixDerivativeDocids:
		return key
	case PrefixDerivativePairProximity:
		if i := strings.IndexByte(key, 0x00); i >= 0 {
			return key[:i]
		}
		return key
	case PrefixDerivativePosition:
		if len(key) > 4 {
			return key[:len(key)-4]
		}
		return key
	default:
		return key
	}
}

// UpdatePrefixTable runs the §4.6 algorithm for one derivative table: scan
// the word-level snapshot, assign each key to its active prefix group by
// single-pass stateful matching, additionally range-scan word_docids for
// brand-new prefixes, delete keys under deleted prefixes, then drain the
// accumulation into the target table.
func UpdatePrefixTable(tx *store.Tx, kind PrefixDerivativeKind, snap WriterSnapshot, diff PrefixDiff) error {
	tableName, merge := derivativeTable(kind)
	target, err := tx.Table(tableName)
	if err != nil {
		return err
	}

	// Step 4: delete everything under a deleted prefix before re-deriving.
	for _, p := range diff.Deleted {
		if err := target.DeletePrefix([]byte(p)); err != nil {
			return err
		}
	}

	allPrefixes := make([]string, 0, len(diff.New)+len(diff.Common))
	allPrefixes = append(allPrefixes, diff.New...)
	for _, group := range diff.Common {
		allPrefixes = append(allPrefixes, group...)
	}
	sort.Strings(allPrefixes)
	if len(allPrefixes) == 0 {
		return nil
	}

	s := sorter.New(merge, 64*1024*1024, 20)

	// Steps 1-2: single-pass stateful matching over this batch's word-level
	// snapshot, sorted by key so group transitions are monotonic.
	source := sourceSnapshot(kind, snap)
	keys := make([]string, 0, len(source))
	for k := range source {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	activeIdx := 0
	for _, key := range keys {
		word := wordOf(kind, key)
		for activeIdx < len(allPrefixes) && !strings.HasPrefix(word, allPrefixes[activeIdx]) && allPrefixes[activeIdx] < word {
			activeIdx++
		}
		if activeIdx >= len(allPrefixes) {
			break
		}
		if strings.HasPrefix(word, allPrefixes[activeIdx]) {
			if err := s.Insert([]byte(allPrefixes[activeIdx]), source[key]); err != nil {
				return err
			}
		}
	}

	// Step 3: for every new prefix, range-scan word_docids (the source of
	// truth for words that existed before this batch) so an entirely new
	// prefix still picks up pre-existing words.
	if kind == PrefixDerivativeDocids && len(diff.New) > 0 {
		wordDocids, err := tx.Table(store.TableWordDocids)
		if err != nil {
			return err
		}
		for _, p := range diff.New {
			if err := wordDocids.PrefixIterator([]byte(p), false, func(k, v []byte) error {
				return s.Insert([]byte(p), v)
			}); err != nil {
				return err
			}
		}
	}

	// Step 5: drain into the target table with the type-appropriate merge.
	reader, err := s.IntoReader()
	if err != nil {
		return err
	}
	defer reader.Close()

	for {
		k, v, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		existing := target.Get(k)
		if existing == nil {
			if err := target.Put(k, v); err != nil {
				return err
			}
			continue
		}
		mergedValue, err := merge(existing, v)
		if err != nil {
			return err
		}
		if err := target.Put(k, mergedValue); err != nil {
			return err
		}
	}
	return nil
}

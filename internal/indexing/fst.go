package indexing

import (
	"bytes"
	"sort"

	"github.com/blevesearch/vellum"

	idxerrors "github.com/gcbaptista/faceted-index/internal/errors"
	"github.com/gcbaptista/faceted-index/internal/store"
)

// RebuildWordsFst streams the (already sorted, by table iteration order)
// keys of the word-docids table into a fresh FST (spec.md §4.5).
func RebuildWordsFst(tx *store.Tx) ([]byte, error) {
	table, err := tx.Table(store.TableWordDocids)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	builder, err := vellum.New(&buf, nil)
	if err != nil {
		return nil, idxerrors.ErrFST
	}
	if err := table.ForEach(func(k, v []byte) error {
		return builder.Insert(k, 0)
	}); err != nil {
		return nil, err
	}
	if err := builder.Close(); err != nil {
		return nil, idxerrors.ErrFST
	}
	return buf.Bytes(), nil
}

// PrefixCount pairs a retained prefix with the number of words under it, so
// the caller can also derive the union bitmap lazily from word_docids.
type PrefixCount struct {
	Prefix string
	Count  int
}

// DerivePrefixes walks the newly built WordsFst and emits every prefix p
// with len(p) <= maxPrefixLength whose descendant-word count is >=
// wordsPrefixThreshold (spec.md §4.5).
func DerivePrefixes(wordsFstBytes []byte, maxPrefixLength, wordsPrefixThreshold int) ([]PrefixCount, error) {
	fst, err := vellum.Load(wordsFstBytes)
	if err != nil {
		return nil, idxerrors.ErrFST
	}

	counts := make(map[string]int)
	itr, err := fst.Iterator(nil, nil)
	for err == nil {
		k, _ := itr.Current()
		word := string(k)
		for n := 1; n <= maxPrefixLength && n <= len(word); n++ {
			counts[word[:n]]++
		}
		err = itr.Next()
	}
	if err != nil && err != vellum.ErrIteratorDone {
		return nil, idxerrors.ErrFST
	}

	var out []PrefixCount
	for p, c := range counts {
		if c >= wordsPrefixThreshold {
			out = append(out, PrefixCount{Prefix: p, Count: c})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Prefix < out[j].Prefix })
	return out, nil
}

// BuildPrefixFst serializes a sorted prefix list into an FST.
func BuildPrefixFst(prefixes []PrefixCount) ([]byte, error) {
	var buf bytes.Buffer
	builder, err := vellum.New(&buf, nil)
	if err != nil {
		return nil, idxerrors.ErrFST
	}
	for _, p := range prefixes {
		if err := builder.Insert([]byte(p.Prefix), uint64(p.Count)); err != nil {
			return nil, idxerrors.ErrFST
		}
	}
	if err := builder.Close(); err != nil {
		return nil, idxerrors.ErrFST
	}
	return buf.Bytes(), nil
}

// PrefixDiff is the three-way classification spec.md §4.5 requires between
// an old and new prefix FST.
type PrefixDiff struct {
	New     []string
	Common  map[byte][]string // grouped by first byte for batched iteration
	Deleted []string
}

// DiffPrefixFsts computes New/Common/Deleted prefix sets between the
// previous prefix FST (oldBytes, possibly nil for "no previous FST") and the
// newly derived prefix list.
func DiffPrefixFsts(oldBytes []byte, newPrefixes []PrefixCount) (PrefixDiff, error) {
	oldSet := make(map[string]struct{})
	if len(oldBytes) > 0 {
		fst, err := vellum.Load(oldBytes)
		if err != nil {
			return PrefixDiff{}, idxerrors.ErrFST
		}
		itr, err := fst.Iterator(nil, nil)
		for err == nil {
			k, _ := itr.Current()
			oldSet[string(k)] = struct{}{}
			err = itr.Next()
		}
		if err != nil && err != vellum.ErrIteratorDone {
			return PrefixDiff{}, idxerrors.ErrFST
		}
	}

	newSet := make(map[string]struct{}, len(newPrefixes))
	diff := PrefixDiff{Common: make(map[byte][]string)}
	for _, p := range newPrefixes {
		newSet[p.Prefix] = struct{}{}
		if _, existed := oldSet[p.Prefix]; existed {
			diff.Common[p.Prefix[0]] = append(diff.Common[p.Prefix[0]], p.Prefix)
		} else {
			diff.New = append(diff.New, p.Prefix)
		}
	}
	for p := range oldSet {
		if _, still := newSet[p]; !still {
			diff.Deleted = append(diff.Deleted, p)
		}
	}
	sort.Strings(diff.New)
	sort.Strings(diff.Deleted)
	for k := range diff.Common {
		sort.Strings(diff.Common[k])
	}
	return diff, nil
}

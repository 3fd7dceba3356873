package sorter

import (
	"github.com/RoaringBitmap/roaring"
)

// MergeRoaringBitmaps unions two roaring-bitmap-encoded values. This is the
// merge function used by every docid posting table (word-docids,
// word-pair-proximity-docids, word-position-docids, facet-*-docids,
// geo-docids): duplicate keys arise whenever the same word or facet value
// appears in documents spread across different extraction chunks.
func MergeRoaringBitmaps(a, b []byte) ([]byte, error) {
	ra := roaring.New()
	if err := ra.UnmarshalBinary(a); err != nil {
		return nil, err
	}
	rb := roaring.New()
	if err := rb.UnmarshalBinary(b); err != nil {
		return nil, err
	}
	ra.Or(rb)
	return ra.ToBytes()
}

// ConcatenateBytes appends b after a. Used for keys whose value is a list of
// fixed-size records rather than a bitmap, e.g. docid-word-positions, where
// two chunks contributing to the same docid simply extend the position
// list.
func ConcatenateBytes(a, b []byte) ([]byte, error) {
	out := make([]byte, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out, nil
}

// KeepFirst returns a unchanged, discarding b. Used for tables where a
// duplicate key within one transform batch is not expected, and the safest
// resolution is "first write wins" rather than silently growing (the
// typed-chunk writer already handles table-existing merges; this is only
// reached for within-sorter duplicates).
func KeepFirst(a, b []byte) ([]byte, error) {
	return a, nil
}

// CBORoaringUnion unions two CBO (compressed-bitmap) roaring values encoded
// with run-length optimization applied before serialization, matching
// milli's CboRoaringBitmapCodec merge function for word-pair-proximity and
// word-position tables at scale. Functionally identical to
// MergeRoaringBitmaps from the caller's perspective; RunOptimize is applied
// to the merged result to keep the compressed form compact across repeated
// merges.
func CBORoaringUnion(a, b []byte) ([]byte, error) {
	merged, err := MergeRoaringBitmaps(a, b)
	if err != nil {
		return nil, err
	}
	rb := roaring.New()
	if err := rb.UnmarshalBinary(merged); err != nil {
		return nil, err
	}
	rb.RunOptimize()
	return rb.ToBytes()
}

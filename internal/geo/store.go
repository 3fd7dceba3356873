package geo

import (
	"encoding/binary"

	"github.com/RoaringBitmap/roaring"
)

// EncodeKey returns the geo_points table key for a point: its Morton hash,
// big-endian, so ascending byte-key order matches ascending Morton order.
func EncodeKey(p Point) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], MortonKey(p))
	return b[:]
}

// EncodeValue returns the geo_points table value: the docid owning this
// point, so a key collision between two points hashing to the same cell can
// still be disambiguated by scanning forward.
func EncodeValue(docid uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], docid)
	return b[:]
}

// DecodeValue recovers the docid from a geo_points table value.
func DecodeValue(v []byte) uint32 {
	return binary.BigEndian.Uint32(v)
}

// DocidsBitmap returns a fresh roaring bitmap value for the geo_documents_ids
// table, recording that docid carries a valid geo point.
func DocidsBitmap(docid uint32) ([]byte, error) {
	rb := roaring.New()
	rb.Add(docid)
	return rb.ToBytes()
}

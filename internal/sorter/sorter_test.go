package sorter

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/RoaringBitmap/roaring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bitmapBytes(t *testing.T, ids ...uint32) []byte {
	t.Helper()
	rb := roaring.New()
	rb.AddMany(ids)
	b, err := rb.ToBytes()
	require.NoError(t, err)
	return b
}

func drain(t *testing.T, r *Reader) map[string][]uint32 {
	t.Helper()
	out := make(map[string][]uint32)
	for {
		k, v, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		rb := roaring.New()
		require.NoError(t, rb.UnmarshalBinary(v))
		out[string(k)] = rb.ToArray()
	}
	return out
}

func TestSorter_MergesDuplicateKeysInMemory(t *testing.T) {
	s := New(MergeRoaringBitmaps, 64*1024*1024, 20)
	require.NoError(t, s.Insert([]byte("apple"), bitmapBytes(t, 1, 2)))
	require.NoError(t, s.Insert([]byte("banana"), bitmapBytes(t, 5)))
	require.NoError(t, s.Insert([]byte("apple"), bitmapBytes(t, 3)))

	r, err := s.IntoReader()
	require.NoError(t, err)
	defer r.Close()

	got := drain(t, r)
	assert.Equal(t, []uint32{1, 2, 3}, got["apple"])
	assert.Equal(t, []uint32{5}, got["banana"])
}

func TestSorter_SpillsAndMergesAcrossFiles(t *testing.T) {
	// A tiny memory cap forces a spill after nearly every insert.
	s := New(MergeRoaringBitmaps, 16, 20)
	require.NoError(t, s.Insert([]byte("a"), bitmapBytes(t, 1)))
	require.NoError(t, s.Insert([]byte("b"), bitmapBytes(t, 2)))
	require.NoError(t, s.Insert([]byte("a"), bitmapBytes(t, 3)))
	require.NoError(t, s.Insert([]byte("a"), bitmapBytes(t, 4)))

	r, err := s.IntoReader()
	require.NoError(t, err)
	defer r.Close()

	got := drain(t, r)
	assert.Equal(t, []uint32{1, 3, 4}, got["a"])
	assert.Equal(t, []uint32{2}, got["b"])
}

func TestSorter_ForcesCompactionPastChunksCap(t *testing.T) {
	s := New(MergeRoaringBitmaps, 16, 2)
	for i := 0; i < 10; i++ {
		key := []byte{byte(i % 3)}
		require.NoError(t, s.Insert(key, bitmapBytes(t, uint32(i))))
	}

	// Compaction should have kept the number of spill files bounded.
	assert.LessOrEqual(t, len(s.files), 2)

	r, err := s.IntoReader()
	require.NoError(t, err)
	defer r.Close()

	got := drain(t, r)
	assert.Len(t, got, 3)
}

func TestConcatenateBytes_AppendsInOrder(t *testing.T) {
	var posBuf [4]byte
	binary.BigEndian.PutUint32(posBuf[:], 7)

	merged, err := ConcatenateBytes([]byte("abc"), posBuf[:])
	require.NoError(t, err)
	assert.Equal(t, append([]byte("abc"), posBuf[:]...), merged)
}

func TestKeepFirst_DiscardsSecondValue(t *testing.T) {
	got, err := KeepFirst([]byte("first"), []byte("second"))
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)
}

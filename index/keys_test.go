package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFloat64_PreservesNumericOrdering(t *testing.T) {
	values := []float64{-100.5, -1, 0, 0.5, 1, 100.25}
	var encoded [][8]byte
	for _, v := range values {
		encoded = append(encoded, EncodeFloat64(v))
	}
	for i := 1; i < len(encoded); i++ {
		assert.True(t, string(encoded[i-1][:]) < string(encoded[i][:]),
			"expected %v to sort before %v", values[i-1], values[i])
	}
}

func TestEncodeFloat64_RoundTrips(t *testing.T) {
	for _, v := range []float64{-100.5, 0, 42.125, 1e10, -1e-10} {
		assert.Equal(t, v, DecodeFloat64(EncodeFloat64(v)))
	}
}

func TestClampWordCount_BoundsToOneTen(t *testing.T) {
	assert.Equal(t, uint8(1), ClampWordCount(0))
	assert.Equal(t, uint8(1), ClampWordCount(-5))
	assert.Equal(t, uint8(5), ClampWordCount(5))
	assert.Equal(t, uint8(10), ClampWordCount(50))
}

func TestBucketedPosition_SeparatesFields(t *testing.T) {
	assert.Equal(t, uint32(0), BucketedPosition(0, 0))
	assert.Equal(t, uint32(1000), BucketedPosition(1, 0))
	assert.Equal(t, uint32(1999), BucketedPosition(1, 5000))
}

func TestProximity_CapsAtSeven(t *testing.T) {
	assert.Equal(t, uint8(3), Proximity(2, 5))
	assert.Equal(t, uint8(3), Proximity(5, 2))
	assert.Equal(t, uint8(7), Proximity(0, 100))
}

func TestWordPairProximityKey_RoundTripsViaSplit(t *testing.T) {
	key := WordPairProximityKey("quick", "brown", 2)
	w1, w2, prox, ok := SplitWordPairProximityKey(key)
	require.True(t, ok)
	assert.Equal(t, "quick", w1)
	assert.Equal(t, "brown", w2)
	assert.Equal(t, uint8(2), prox)
}

func TestWordPositionKey_RoundTripsViaSplit(t *testing.T) {
	key := WordPositionKey("brown", 2005)
	word, pos := SplitWordPositionKey(key)
	assert.Equal(t, "brown", word)
	assert.Equal(t, uint32(2005), pos)
}

func TestFacetStringValue_RoundTrips(t *testing.T) {
	bitmap := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	encoded := EncodeFacetStringValue("Sci-Fi", bitmap)
	original, got := DecodeFacetStringValue(encoded)
	assert.Equal(t, "Sci-Fi", original)
	assert.Equal(t, bitmap, got)
}

func TestFacetNumberKey_OrdersByFieldThenLevelThenRange(t *testing.T) {
	a := FacetNumberKey(1, 0, 1990, 1990)
	b := FacetNumberKey(1, 0, 2000, 2000)
	assert.True(t, string(a) < string(b))
	c := FacetNumberKey(1, 1, 0, 0)
	assert.True(t, string(b) < string(c))
	d := FacetNumberKey(2, 0, -5, -5)
	assert.True(t, string(c) < string(d))
}

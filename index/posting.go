package index

import "math"

// EncodeFloat64 order-preserving-encodes an IEEE-754 float64 into 8
// big-endian bytes: the sign bit is flipped, and if the original value was
// negative every bit is flipped. The resulting byte strings sort in the same
// order as the floats they encode (spec.md §6, "Floats use order-preserving
// encoding").
func EncodeFloat64(f float64) [8]byte {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	var out [8]byte
	for i := 7; i >= 0; i-- {
		out[i] = byte(bits)
		bits >>= 8
	}
	return out
}

// DecodeFloat64 reverses EncodeFloat64.
func DecodeFloat64(b [8]byte) float64 {
	var bits uint64
	for i := 0; i < 8; i++ {
		bits = bits<<8 | uint64(b[i])
	}
	if bits&(1<<63) != 0 {
		bits &^= 1 << 63
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits)
}

// ClampWordCount bounds a per-attribute word count to the [1, 10] range the
// FieldIdWordCountDocids table uses as its count byte (spec.md §4.3).
func ClampWordCount(count int) uint8 {
	if count < 1 {
		return 1
	}
	if count > 10 {
		return 10
	}
	return uint8(count)
}

// BucketedPosition computes the WordPositionDocids position component:
// field_id*1000 + min(local_pos, 999), so positions from different fields
// never collide (spec.md §4.3).
func BucketedPosition(fieldID uint16, localPos int) uint32 {
	if localPos > 999 {
		localPos = 999
	}
	return uint32(fieldID)*1000 + uint32(localPos)
}

// Proximity returns min(abs(j-i), 7), the capped token-distance used by
// WordPairProximityDocids keys (spec.md §4.3).
func Proximity(i, j int) uint8 {
	d := i - j
	if d < 0 {
		d = -d
	}
	if d > 7 {
		d = 7
	}
	return uint8(d)
}

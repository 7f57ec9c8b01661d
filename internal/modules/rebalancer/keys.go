package rebalancer

import (
	"encoding/binary"
	"math"
)

// DefaultPrecision is the number of decimal digits kept when discretizing vectors
const DefaultPrecision = 3

// maxPrecision bounds the scale so rounded components stay well inside int64
const maxPrecision = 9

// Key is a discretized vector: every component rounded to a fixed number of
// decimals and stored as a big-endian int64. Keys are comparable, so equal
// rounded vectors always map to the same table entry.
type Key string

// EncodeKey discretizes v at the given precision
func EncodeKey(v []float64, precision int) Key {
	scale := math.Pow10(precision)
	ints := make([]int64, len(v))
	for i, x := range v {
		ints[i] = int64(math.Round(x * scale))
	}
	return KeyFromInts(ints)
}

// KeyFromInts packs already-scaled components into a Key
func KeyFromInts(ints []int64) Key {
	buf := make([]byte, 8*len(ints))
	for i, n := range ints {
		binary.BigEndian.PutUint64(buf[i*8:], uint64(n))
	}
	return Key(buf)
}

// Ints unpacks the scaled components
func (k Key) Ints() []int64 {
	n := len(k) / 8
	ints := make([]int64, n)
	for i := 0; i < n; i++ {
		ints[i] = int64(binary.BigEndian.Uint64([]byte(k[i*8 : (i+1)*8])))
	}
	return ints
}

// Len returns the number of components
func (k Key) Len() int {
	return len(k) / 8
}

// Decode recovers the rounded vector. precision must match the one used to encode.
func (k Key) Decode(precision int) []float64 {
	scale := math.Pow10(precision)
	ints := k.Ints()
	v := make([]float64, len(ints))
	for i, n := range ints {
		v[i] = float64(n) / scale
	}
	return v
}

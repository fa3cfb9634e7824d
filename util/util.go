// Package util contains misc internal utilities.
package util

import "math"

// Clamp bounds v to the range [low, high].
func Clamp(v, low, high float64) float64 {
	return math.Max(low, math.Min(high, v))
}

// SatInt32 rounds v to the nearest integer and clamps it to the signed 32-bit
// range.  Values beyond the range saturate instead of wrapping.
func SatInt32(v float64) int {
	v = math.Round(v)
	v = Clamp(v, math.MinInt32, math.MaxInt32)
	return int(v)
}

// GetBit returns the value of a given bit in a 32-bit word
func GetBit(w uint32, bitIndex uint) bool {
	return w&(1<<bitIndex) != 0
}

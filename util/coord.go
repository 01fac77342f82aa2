package util

import "math"

// FixedPointFactor is the scale of the stored coordinates. All vertex and boundary data of the index uses int32
// values of degree*10^7, which keeps the precision loss below 1cm at the equator.
const FixedPointFactor = 10_000_000

// ToFixed converts a degree value into its fixed-point representation.
func ToFixed(degree float64) int32 {
	return int32(math.Round(degree * FixedPointFactor))
}

// FromFixed converts a fixed-point value back into degrees.
func FromFixed(value int32) float64 {
	return float64(value) / FixedPointFactor
}

// FromFixed64 is like FromFixed but for intermediate values that already left the int32 range, e.g. computed
// intersections.
func FromFixed64(value float64) float64 {
	return value / FixedPointFactor
}

// Package mapping turns raw gesture measurements into bounded control values.
package mapping

import "math"

// DefaultGamma is the response-curve exponent used for volume control.
const DefaultGamma = 1.8

// Map linearly interpolates value from [srcLo, srcHi] onto [dstLo, dstHi]
// and clamps the result to the destination range. Either range may be
// inverted. A degenerate source range (srcLo == srcHi) yields dstLo.
func Map(value, srcLo, srcHi, dstLo, dstHi float64) float64 {
	if srcHi == srcLo {
		return dstLo
	}

	out := dstLo + (value-srcLo)*(dstHi-dstLo)/(srcHi-srcLo)
	return Clamp(out, math.Min(dstLo, dstHi), math.Max(dstLo, dstHi))
}

// Clamp limits v to [lo, hi]. NaN is mapped to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

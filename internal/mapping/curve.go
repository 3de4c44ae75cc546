package mapping

import "math"

// Curve reshapes a normalized percent with a power law so that equal gesture
// steps near the bottom of the range produce finer output steps:
//
//	round((p/100)^gamma * 100)
//
// p is clamped to [0, 100] first, so the result is always in [0, 100].
func Curve(p, gamma float64) int {
	p = Clamp(p, 0, 100)
	return int(math.Round(math.Pow(p/100, gamma) * 100))
}

// Package gesture extracts the pinch measurement used as the raw control
// signal and buffers recent measurements.
package gesture

import "github.com/ayusman/handvolume/internal/detector"

// Sampler measures the distance between two fixed landmarks.
type Sampler struct {
	From int
	To   int
}

// NewSampler returns a Sampler measuring thumb tip to index fingertip.
func NewSampler() Sampler {
	return Sampler{From: detector.ThumbTip, To: detector.IndexTip}
}

// Sample returns the pixel distance between the sampler's landmarks.
// It reports false when no hand is present or either landmark is missing.
func (s Sampler) Sample(points []detector.Landmark) (float64, bool) {
	if len(points) == 0 {
		return 0, false
	}

	a, ok := detector.Find(points, s.From)
	if !ok {
		return 0, false
	}
	b, ok := detector.Find(points, s.To)
	if !ok {
		return 0, false
	}

	return detector.Distance(a, b), true
}

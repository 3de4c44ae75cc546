// Package detector provides hand detection interfaces and landmark types.
package detector

import "math"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D is a landmark position as reported by MediaPipe: X and Y are
// normalized to the frame size, Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Landmark is one tracked point in image-pixel space for the current frame.
type Landmark struct {
	ID int `json:"id"`
	X  int `json:"x"`
	Y  int `json:"y"`
}

// Pixels converts the hand's normalized points into pixel landmarks for a
// frame of the given size. Coordinates are truncated toward zero.
func (h *HandLandmarks) Pixels(width, height int) []Landmark {
	if h == nil {
		return nil
	}

	out := make([]Landmark, NumLandmarks)
	for i, p := range h.Points {
		out[i] = Landmark{
			ID: i,
			X:  int(p.X * float64(width)),
			Y:  int(p.Y * float64(height)),
		}
	}
	return out
}

// Find returns the landmark with the given ID.
func Find(points []Landmark, id int) (Landmark, bool) {
	// Estimators emit points in index order, so try the direct slot first.
	if id >= 0 && id < len(points) && points[id].ID == id {
		return points[id], true
	}
	for _, p := range points {
		if p.ID == id {
			return p, true
		}
	}
	return Landmark{}, false
}

// Midpoint returns the integer midpoint between two landmarks.
func Midpoint(a, b Landmark) (int, int) {
	return (a.X + b.X) / 2, (a.Y + b.Y) / 2
}

// Distance returns the Euclidean pixel distance between two landmarks.
func Distance(a, b Landmark) float64 {
	return math.Hypot(float64(b.X-a.X), float64(b.Y-a.Y))
}

// Package calibration implements the operator-paced calibration protocol
// that establishes a user's minimum and maximum gesture distance.
package calibration

import "github.com/ayusman/handvolume/internal/gesture"

// State is the lifecycle state of a Session.
type State int

const (
	// AwaitingInput collects samples until the operator confirms.
	AwaitingInput State = iota
	// Complete holds the final result; further samples are ignored.
	Complete
)

func (s State) String() string {
	switch s {
	case AwaitingInput:
		return "awaiting_input"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// Target identifies which end of the range a session calibrates.
type Target int

const (
	Min Target = iota
	Max
)

func (t Target) String() string {
	if t == Max {
		return "max"
	}
	return "min"
}

// Label is the operator-facing description of the pose to hold.
func (t Target) Label() string {
	if t == Max {
		return "an open hand (max)"
	}
	return "a fist (min)"
}

// Result is the reference distance produced by a completed session.
type Result struct {
	Target         Target  `json:"target"`
	ReferenceValue float64 `json:"reference_value"`
	Samples        int     `json:"samples"`
}

// Range is the user's calibrated gesture range. MaxDistance is not required
// to exceed MinDistance.
type Range struct {
	MinDistance float64 `json:"min_distance"`
	MaxDistance float64 `json:"max_distance"`
}

// NewRange composes the results of a min and a max session.
func NewRange(min, max Result) Range {
	return Range{MinDistance: min.ReferenceValue, MaxDistance: max.ReferenceValue}
}

// Degenerate reports whether the range has zero width.
func (r Range) Degenerate() bool {
	return r.MinDistance == r.MaxDistance
}

// Inverted reports whether the max reference is below the min reference.
func (r Range) Inverted() bool {
	return r.MaxDistance < r.MinDistance
}

// Session collects samples into a rolling window until confirmed.
// A Session is owned by a single goroutine.
type Session struct {
	target Target
	state  State
	window *gesture.Window
	result Result
}

// NewSession starts a session for target with a window of windowSize samples.
func NewSession(target Target, windowSize int) *Session {
	return &Session{
		target: target,
		state:  AwaitingInput,
		window: gesture.NewWindow(windowSize),
	}
}

// Target returns the session's target.
func (s *Session) Target() Target {
	return s.target
}

// State returns the session's current state.
func (s *Session) State() State {
	return s.state
}

// Len returns the number of samples currently buffered.
func (s *Session) Len() int {
	if s.window == nil {
		return 0
	}
	return s.window.Len()
}

// Observe records one frame's measurement. Frames without a sample and
// frames after completion are ignored.
func (s *Session) Observe(distance float64, ok bool) {
	if s.state != AwaitingInput || !ok {
		return
	}
	s.window.Push(distance)
}

// Confirm completes the session and returns the mean of the buffered
// samples (0 for an empty window). The window is discarded. Calling
// Confirm again returns the same result.
func (s *Session) Confirm() Result {
	if s.state == Complete {
		return s.result
	}

	s.result = Result{
		Target:         s.target,
		ReferenceValue: s.window.Mean(),
		Samples:        s.window.Len(),
	}
	s.state = Complete
	s.window = nil

	return s.result
}

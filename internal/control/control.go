// Package control runs the per-frame calibration and volume control cycle.
package control

import (
	"errors"
	"time"

	"github.com/ayusman/handvolume/internal/detector"
)

// ErrCaptureLost is returned when the frame source fails after calibration.
var ErrCaptureLost = errors.New("capture source lost")

// Image is one captured video frame. *gocv.Mat satisfies it.
type Image interface {
	Close() error
}

// FrameSource yields captured frames, blocking until one is ready.
type FrameSource interface {
	Next() (Image, error)
}

// Estimator returns the pixel landmarks of the tracked hand in img, or an
// empty slice when no hand is visible.
type Estimator interface {
	Estimate(img Image) ([]detector.Landmark, error)
}

// Sink applies control values to the output device.
type Sink interface {
	// Range returns the device's accepted value range.
	Range() (min, max float64, err error)
	// SetLevel applies v, already clamped to Range.
	SetLevel(v float64) error
}

// Signals are the discrete operator events observed on one frame.
type Signals struct {
	ConfirmMin bool `json:"confirm_min"`
	ConfirmMax bool `json:"confirm_max"`
	Quit       bool `json:"quit"`
}

// SignalSource is polled once per frame and must not block.
type SignalSource interface {
	Poll() Signals
}

// Renderer draws a frame's derived state onto the captured image.
type Renderer interface {
	Render(img Image, f Frame)
}

// Observer receives every processed frame. Implementations must not block.
type Observer interface {
	ObserveFrame(f Frame)
}

// Recorder counts loop events.
type Recorder interface {
	FrameProcessed(f Frame)
	CaptureFailed()
	EstimateFailed()
	SinkFailed()
}

// Frame is the derived state of one processed video frame.
type Frame struct {
	Seq       uint64    `json:"seq"`
	Phase     Phase     `json:"phase"`
	Timestamp time.Time `json:"timestamp"`

	Detected bool              `json:"detected"`
	Thumb    detector.Landmark `json:"thumb"`
	Index    detector.Landmark `json:"index"`

	RawDistance       float64 `json:"raw_distance"`
	NormalizedPercent float64 `json:"normalized_percent"`
	AdjustedPercent   int     `json:"adjusted_percent"`
	DeviceValue       float64 `json:"device_value"`
	BarPosition       float64 `json:"bar_position"`
	Applied           bool    `json:"applied"`

	FPS float64 `json:"fps"`

	// Set while calibrating.
	Prompt  string `json:"prompt,omitempty"`
	Samples int    `json:"samples,omitempty"`
}

package app

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/handvolume/internal/capture"
	"github.com/ayusman/handvolume/internal/control"
	"github.com/ayusman/handvolume/internal/detector"
)

// ErrNotMat is returned by HandEstimator for images that are not gocv mats.
var ErrNotMat = errors.New("image is not a gocv.Mat")

// CameraSource adapts a capture.Camera to control.FrameSource.
type CameraSource struct {
	Camera capture.Camera
}

// Next reads one frame from the camera.
func (s CameraSource) Next() (control.Image, error) {
	mat, err := s.Camera.ReadFrame()
	if err != nil {
		return nil, err
	}
	return mat, nil
}

// HandEstimator adapts a detector.Detector to control.Estimator. It reports
// the first detected hand in the frame's pixel space.
type HandEstimator struct {
	Detector detector.Detector
}

// Estimate runs the detector on img.
func (e HandEstimator) Estimate(img control.Image) ([]detector.Landmark, error) {
	mat, ok := img.(*gocv.Mat)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotMat, img)
	}

	hands, err := e.Detector.Detect(mat)
	if err != nil {
		return nil, err
	}
	if len(hands) == 0 {
		return nil, nil
	}

	return hands[0].Pixels(mat.Cols(), mat.Rows()), nil
}
